package lib

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// UsageMetrics represents the token usage and cost information from one API call.
type UsageMetrics struct {
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	TotalTokens      int       `json:"totalTokens"`
	PromptCost       float64   `json:"promptCost"`
	CompletionCost   float64   `json:"completionCost"`
	TotalCost        float64   `json:"totalCost"`
	Model            string    `json:"model"`
	Timestamp        time.Time `json:"timestamp"`
}

// ModelPricing defines the cost per token for a model.
type ModelPricing struct {
	InputCostPer1MTokens  float64
	OutputCostPer1MTokens float64
}

// UsageTracker records token usage and costs across LLM API calls.
type UsageTracker struct {
	logger  *zerolog.Logger
	metrics []UsageMetrics
	mu      sync.RWMutex
	pricing map[string]ModelPricing
}

func NewUsageTracker(logger *zerolog.Logger) *UsageTracker {
	return &UsageTracker{
		logger:  logger,
		metrics: make([]UsageMetrics, 0),
		pricing: defaultPricing(),
	}
}

// response docs: https://platform.openai.com/docs/api-reference/completions/object#completions/object-usage
type usageResponse struct {
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

// TrackUsage extracts usage metrics from an OpenAI-compatible API response.
// It reads the response body and replaces it with a fresh reader so the
// caller can still consume the same data.
func (ut *UsageTracker) TrackUsage(resp *http.Response) (*UsageMetrics, error) {
	if resp == nil || resp.Body == nil {
		return nil, fmt.Errorf("response or response body is nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))

	var apiResponse usageResponse
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return nil, fmt.Errorf("parse usage response: %w", err)
	}

	if apiResponse.Model == "" || apiResponse.Usage.TotalTokens == 0 {
		return nil, fmt.Errorf("response carries no usage block")
	}

	pricing, exists := ut.pricing[apiResponse.Model]
	if !exists {
		ut.logger.Debug().
			Str("model", apiResponse.Model).
			Msg("Unknown model pricing, tracking tokens without cost")
	}

	metrics := calculateCosts(apiResponse, pricing)

	ut.mu.Lock()
	ut.metrics = append(ut.metrics, metrics)
	ut.mu.Unlock()

	ut.logUsage(metrics)

	return &metrics, nil
}

// TotalUsage returns aggregated usage statistics.
func (ut *UsageTracker) TotalUsage() UsageMetrics {
	ut.mu.RLock()
	defer ut.mu.RUnlock()

	var total UsageMetrics
	for _, metric := range ut.metrics {
		total.PromptTokens += metric.PromptTokens
		total.CompletionTokens += metric.CompletionTokens
		total.TotalTokens += metric.TotalTokens
		total.PromptCost += metric.PromptCost
		total.CompletionCost += metric.CompletionCost
		total.TotalCost += metric.TotalCost
	}

	return total
}

// UsageByModel returns usage statistics grouped by model.
func (ut *UsageTracker) UsageByModel() map[string]UsageMetrics {
	ut.mu.RLock()
	defer ut.mu.RUnlock()

	modelUsage := make(map[string]UsageMetrics)
	for _, metric := range ut.metrics {
		existing := modelUsage[metric.Model]
		existing.Model = metric.Model
		existing.PromptTokens += metric.PromptTokens
		existing.CompletionTokens += metric.CompletionTokens
		existing.TotalTokens += metric.TotalTokens
		existing.PromptCost += metric.PromptCost
		existing.CompletionCost += metric.CompletionCost
		existing.TotalCost += metric.TotalCost
		modelUsage[metric.Model] = existing
	}

	return modelUsage
}

// ClearUsage clears all stored usage metrics.
func (ut *UsageTracker) ClearUsage() {
	ut.mu.Lock()
	defer ut.mu.Unlock()
	ut.metrics = make([]UsageMetrics, 0)
}

func calculateCosts(res usageResponse, pricing ModelPricing) UsageMetrics {
	promptCost := float64(res.Usage.PromptTokens) * pricing.InputCostPer1MTokens / 1_000_000
	completionCost := float64(res.Usage.CompletionTokens) * pricing.OutputCostPer1MTokens / 1_000_000

	return UsageMetrics{
		PromptTokens:     res.Usage.PromptTokens,
		CompletionTokens: res.Usage.CompletionTokens,
		TotalTokens:      res.Usage.TotalTokens,
		PromptCost:       promptCost,
		CompletionCost:   completionCost,
		TotalCost:        promptCost + completionCost,
		Model:            res.Model,
		Timestamp:        time.Now(),
	}
}

func (ut *UsageTracker) logUsage(metrics UsageMetrics) {
	ut.logger.Info().
		Str("model", metrics.Model).
		Int("prompt_tokens", metrics.PromptTokens).
		Int("completion_tokens", metrics.CompletionTokens).
		Int("total_tokens", metrics.TotalTokens).
		Float64("prompt_cost", metrics.PromptCost).
		Float64("completion_cost", metrics.CompletionCost).
		Float64("total_cost", metrics.TotalCost).
		Time("timestamp", metrics.Timestamp).
		Msg("LLM API usage tracked")
}

func defaultPricing() map[string]ModelPricing {
	// Docs: https://openai.com/api/pricing
	return map[string]ModelPricing{
		"gpt-4o-mini": {
			InputCostPer1MTokens:  0.15,
			OutputCostPer1MTokens: 0.6,
		},
		"gpt-4o": {
			InputCostPer1MTokens:  2.5,
			OutputCostPer1MTokens: 10.0,
		},
		"text-embedding-ada-002": {
			InputCostPer1MTokens: 0.1,
		},
		"text-embedding-3-small": {
			InputCostPer1MTokens: 0.02,
		},
		"text-embedding-3-large": {
			InputCostPer1MTokens: 0.13,
		},
	}
}
