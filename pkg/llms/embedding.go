package llms

import (
	"context"
	"fmt"

	"github.com/rfcpilot/rfcpilot/pkg/lib"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms/openai"
)

// EmbedderModel is the embedding surface exposed by the providers.
type EmbedderModel interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// embeddingDimensions maps known embedding models to their vector width.
var embeddingDimensions = map[string]int{
	"text-embedding-ada-002":             1536,
	"text-embedding-3-small":             1536,
	"text-embedding-3-large":             3072,
	"doubao-embedding-text-240715":       2560,
	"doubao-embedding-large-text-240915": 4096,
}

// providerDefaultDimensions is used for models missing from the table.
var providerDefaultDimensions = map[string]int{
	"openai": 1536,
	"ark":    2560,
}

// NewEmbeddingModel builds the embedding backend selected by
// EMBEDDING_MODEL_TYPE. Both supported providers speak the OpenAI
// embeddings schema, so they share a client.
func NewEmbeddingModel(config *Config, logger *zerolog.Logger) (*openai.LLM, error) {
	switch config.EmbeddingModelType {
	case "openai", "ark":
		usageTracker := lib.NewUsageTracker(logger)
		limiter := lib.NewLimiterWithTracker(logger, usageTracker)
		embeddingModel, err := openai.New(
			openai.WithBaseURL(config.EmbeddingBaseURL),
			openai.WithToken(config.EmbeddingAPIKey),
			openai.WithEmbeddingModel(config.EmbeddingModel),
			openai.WithHTTPClient(limiter),
		)
		if err != nil {
			return nil, fmt.Errorf("create %s embedding model: %w", config.EmbeddingModelType, err)
		}
		return embeddingModel, nil
	default:
		return nil, fmt.Errorf("unsupported embedding model type: %s", config.EmbeddingModelType)
	}
}

// EmbeddingDimension reports the vector width for the configured
// embedding model, falling back to the provider default.
func (c *Config) EmbeddingDimension() int {
	if dim, ok := embeddingDimensions[c.EmbeddingModel]; ok {
		return dim
	}
	if dim, ok := providerDefaultDimensions[c.EmbeddingModelType]; ok {
		return dim
	}
	return 1536
}
