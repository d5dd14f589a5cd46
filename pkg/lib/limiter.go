package lib

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Limiter is a rate limiter for OpenAI-compatible APIs.
// It implements an openaiclient.Doer and retries requests that hit
// rate limits or overloaded backends, honoring the reset headers.
type Limiter struct {
	client  *http.Client
	logger  *zerolog.Logger
	tracker *UsageTracker
}

func NewLimiter(logger *zerolog.Logger) *Limiter {
	return &Limiter{
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// NewLimiterWithTracker returns a Limiter that also records token usage
// from successful completion and embedding responses.
func NewLimiterWithTracker(logger *zerolog.Logger, tracker *UsageTracker) *Limiter {
	l := NewLimiter(logger)
	l.tracker = tracker
	return l
}

func (r *Limiter) Do(req *http.Request) (*http.Response, error) {
	maxRetries := 5

	for attempt := range maxRetries {
		if attempt > 0 {
			clonedReq, err := r.cloneRequest(req)
			if err != nil {
				return nil, fmt.Errorf("clone request: %w", err)
			}
			req = clonedReq
		}

		resp, err := r.client.Do(req)
		if err != nil {
			r.logger.Error().
				Err(err).
				Msg("LLM API request failed")
			return nil, err
		}

		errBody := ""
		if resp.StatusCode != http.StatusOK {
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, fmt.Errorf("read response body: %w", err)
			}
			errBody = string(body)
		}

		rateLimitHeaders := parseRateLimitHeaders(resp)
		attemptEvent := r.attemptEvent(rateLimitHeaders, errBody, resp.StatusCode, attempt)

		// See: https://platform.openai.com/docs/guides/error-codes#api-errors
		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			resp.Body.Close()

			delay := backoffWithJitter(rateLimitHeaders)
			attemptEvent.
				Dur("delay", delay).
				Msg("LLM API throttled, retrying with backoff")

			time.Sleep(delay)
			continue
		case http.StatusOK:
			attemptEvent.Msg("LLM API request successful")

			if r.tracker != nil {
				// Best effort: not every OpenAI-compatible backend
				// returns a usage block.
				_, _ = r.tracker.TrackUsage(resp)
			}

			return resp, nil
		default:
			resp.Body.Close()

			// API sometimes returns 400 response, log the body for debugging.
			attemptEvent.Msg("LLM API returned non-ok response")

			return resp, nil
		}
	}

	return nil, fmt.Errorf("max retries exceeded for rate limited request")
}

func backoffWithJitter(headers *rateLimitHeaders) time.Duration {
	jitter := time.Duration(rand.Intn(1000)) * time.Millisecond

	if headers.RemainingRequests >= 0 && headers.RemainingRequests <= 1 && headers.ResetRequests > 0 {
		return headers.ResetRequests + jitter
	}
	if headers.RemainingTokens >= 0 && headers.RemainingTokens <= 1 && headers.ResetTokens > 0 {
		return headers.ResetTokens + jitter
	}

	return jitter
}

func (r *Limiter) cloneRequest(req *http.Request) (*http.Request, error) {
	clonedReq := req.Clone(req.Context())
	if req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		clonedReq.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}
	return clonedReq, nil
}

type rateLimitHeaders struct {
	RemainingRequests int
	// The time until the request rate limit resets to its initial state.
	ResetRequests   time.Duration
	RemainingTokens int
	// The time until the token rate limit resets to its initial state.
	ResetTokens time.Duration
}

func parseRateLimitHeaders(resp *http.Response) *rateLimitHeaders {
	// See: https://platform.openai.com/docs/guides/rate-limits#rate-limits-in-headers
	return &rateLimitHeaders{
		RemainingRequests: parseIntHeader(resp.Header.Get("x-ratelimit-remaining-requests")),
		ResetRequests:     parseResetHeader(resp.Header.Get("x-ratelimit-reset-requests")),
		RemainingTokens:   parseIntHeader(resp.Header.Get("x-ratelimit-remaining-tokens")),
		ResetTokens:       parseResetHeader(resp.Header.Get("x-ratelimit-reset-tokens")),
	}
}

func (r *Limiter) attemptEvent(headers *rateLimitHeaders, errBody string, statusCode int, attempt int) *zerolog.Event {
	return r.logger.Debug().
		Int("remaining_requests", headers.RemainingRequests).
		Dur("reset_requests", headers.ResetRequests).
		Int("remaining_tokens", headers.RemainingTokens).
		Dur("reset_tokens", headers.ResetTokens).
		Int("status_code", statusCode).
		Str("body", errBody).
		Int("attempt", attempt)
}

// parseIntHeader converts a numeric header string to int; returns -1 on failure.
func parseIntHeader(s string) int {
	if s == "" {
		return -1
	}

	if i, err := strconv.Atoi(s); err == nil {
		return i
	}

	return -1
}

// parseResetHeader parses the time until the rate limit resets to its initial state.
// The value is either a bare number of seconds or a Go-style duration.
func parseResetHeader(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second))
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	return 0
}
