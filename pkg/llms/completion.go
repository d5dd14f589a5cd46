package llms

import (
	"fmt"
	"net/http"

	"github.com/rfcpilot/rfcpilot/pkg/lib"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewCompletionModel builds the completion backend selected by
// DEFAULT_MODEL_TYPE. The ark provider is served by the same
// OpenAI-compatible client, pointed at the configured base URL.
func NewCompletionModel(config *Config, logger *zerolog.Logger) (llms.Model, error) {
	switch config.DefaultModelType {
	case "openai", "ark":
		usageTracker := lib.NewUsageTracker(logger)
		limiter := lib.NewLimiterWithTracker(logger, usageTracker)
		openaiModel, err := openai.New(
			openai.WithBaseURL(config.OpenAIBaseURL),
			openai.WithToken(config.OpenAIAPIKey),
			openai.WithModel(config.OpenAIModel),
			openai.WithHTTPClient(limiter),
		)
		if err != nil {
			return nil, fmt.Errorf("create OpenAI model: %w", err)
		}
		return openaiModel, nil
	case "ollama":
		return NewOllamaModel(config.OllamaBaseURL, config.OllamaModel, http.DefaultClient, config.OllamaContextSize), nil
	default:
		return nil, fmt.Errorf("unsupported model type: %s", config.DefaultModelType)
	}
}
