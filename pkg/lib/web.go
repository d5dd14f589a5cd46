package lib

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

const userAgentString = "rfcpilot/1.0 (+https://github.com/rfcpilot/rfcpilot)"

// FetchTextFromURL fetches a URL and extracts its plain-text content.
// Plain text is passed through, PDF and HTML payloads are converted.
func FetchTextFromURL(ctx context.Context, logger *zerolog.Logger, url string) (string, error) {
	resp, err := FetchURL(ctx, url)
	if err != nil {
		return "", fmt.Errorf("fetch url: %w", err)
	}

	defer resp.Body.Close()

	text, err := TextFromHTTPResponse(logger, resp)
	if err != nil {
		return "", fmt.Errorf("text from http response: %w", err)
	}

	return text, nil
}

// FetchURL fetches a URL and returns the http response.
// The response body should be closed by the caller.
func FetchURL(ctx context.Context, url string) (*http.Response, error) {
	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgentString)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch url: %w", err)
	}

	return resp, nil
}

func TextFromHTTPResponse(logger *zerolog.Logger, resp *http.Response) (string, error) {
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http status: %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	url := resp.Request.URL.String()

	switch {
	case strings.Contains(contentType, "application/pdf") || strings.HasSuffix(url, ".pdf"):
		return extractTextFromPDF(resp.Body)
	case strings.Contains(contentType, "text/html"), strings.Contains(contentType, "application/xhtml+xml"):
		return extractTextFromHTML(logger, url)
	case strings.Contains(contentType, "text/plain"), strings.HasSuffix(url, ".txt"):
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}
		return string(body), nil
	}

	logger.Warn().
		Str("url", url).
		Str("content_type", contentType).
		Msg("Unsupported content type")

	return "", fmt.Errorf("unsupported content type: %s", contentType)
}

func extractTextFromPDF(body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("create pdf reader: %w", err)
	}

	plainText, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("get plain text: %w", err)
	}

	textBytes, err := io.ReadAll(plainText)
	if err != nil {
		return "", fmt.Errorf("read plain text: %w", err)
	}

	return string(textBytes), nil
}

func extractTextFromHTML(logger *zerolog.Logger, url string) (string, error) {
	var result string
	var resultErr error

	defer func() {
		if r := recover(); r != nil {
			// Readability occasionally panics on malformed markup.
			logger.Error().
				Str("url", url).
				Interface("panic", r).
				Msg("html parsing panic")
		}
	}()

	article, err := readability.FromURL(url, 5*time.Second)
	if err != nil {
		resultErr = fmt.Errorf("readability from url: %w", err)
		return result, resultErr
	}

	result = article.TextContent
	return result, resultErr
}
