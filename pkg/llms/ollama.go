package llms

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// OllamaModel talks to the Ollama /api/generate endpoint directly.
// It implements llms.Model, including token streaming over the
// newline-delimited JSON response body.
type OllamaModel struct {
	baseURL     string
	model       string
	client      *http.Client
	contextSize int
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func NewOllamaModel(baseURL, model string, client *http.Client, contextSize int) *OllamaModel {
	if client == nil {
		client = http.DefaultClient
	}
	if contextSize == 0 {
		contextSize = 32768
	}
	return &OllamaModel{
		baseURL:     baseURL,
		model:       model,
		client:      client,
		contextSize: contextSize,
	}
}

func (o *OllamaModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return o.generate(ctx, prompt, "", options...)
}

// GenerateContent satisfies llms.Model. Message parts are flattened into a
// single prompt; a leading system message is forwarded as the system field.
func (o *OllamaModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	prompt, system := flattenMessages(messages)

	out, err := o.generate(ctx, prompt, system, options...)
	if err != nil {
		return nil, err
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: out}},
	}, nil
}

func (o *OllamaModel) generate(ctx context.Context, prompt, system string, options ...llms.CallOption) (string, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	apiURL, err := url.JoinPath(o.baseURL, "api", "generate")
	if err != nil {
		return "", fmt.Errorf("construct API URL: %w", err)
	}

	reqBody := ollamaGenerateRequest{
		Model:   o.model,
		Prompt:  prompt,
		System:  system,
		Stream:  opts.StreamingFunc != nil,
		Options: map[string]any{"num_ctx": o.contextSize},
	}

	if opts.Temperature != 0 {
		reqBody.Options["temperature"] = opts.Temperature
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	if opts.StreamingFunc != nil {
		return o.readStream(ctx, resp.Body, opts.StreamingFunc)
	}

	var ollamaResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return ollamaResp.Response, nil
}

// readStream consumes the newline-delimited JSON stream, invoking fn for
// every token chunk until the backend reports done.
func (o *OllamaModel) readStream(ctx context.Context, body io.Reader, fn func(ctx context.Context, chunk []byte) error) (string, error) {
	var full strings.Builder

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return full.String(), err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk ollamaGenerateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return full.String(), fmt.Errorf("decode stream chunk: %w", err)
		}

		if chunk.Response != "" {
			full.WriteString(chunk.Response)
			if err := fn(ctx, []byte(chunk.Response)); err != nil {
				return full.String(), fmt.Errorf("streaming func: %w", err)
			}
		}

		if chunk.Done {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("read stream: %w", err)
	}

	return full.String(), nil
}

func flattenMessages(messages []llms.MessageContent) (prompt, system string) {
	var promptParts []string
	var systemParts []string

	for _, msg := range messages {
		var texts []string
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				texts = append(texts, text.Text)
			}
		}
		if len(texts) == 0 {
			continue
		}
		if msg.Role == llms.ChatMessageTypeSystem {
			systemParts = append(systemParts, texts...)
			continue
		}
		promptParts = append(promptParts, texts...)
	}

	return strings.Join(promptParts, "\n"), strings.Join(systemParts, "\n")
}
