package llms

import (
	"context"
	"fmt"

	"github.com/rfcpilot/rfcpilot/pkg/lib"
	"github.com/tmc/langchaingo/llms"
)

// CachedEmbedderModel memoizes embeddings per input text.
type CachedEmbedderModel struct {
	model EmbedderModel
	cache *lib.Cache
}

func NewCachedEmbedderModel(model EmbedderModel, cache *lib.Cache) *CachedEmbedderModel {
	return &CachedEmbedderModel{
		model: model,
		cache: cache,
	}
}

func (cm *CachedEmbedderModel) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	// Cache each text element separately
	results := make([][]float32, len(texts))
	uncachedIndices := make([]int, 0)
	uncachedTexts := make([]string, 0)

	for i, text := range texts {
		key := embeddingCacheKey(text)
		if response, found := cm.cache.Get(key); found {
			if embedding, ok := response.([]float32); ok {
				results[i] = embedding
				continue
			}
		}
		uncachedIndices = append(uncachedIndices, i)
		uncachedTexts = append(uncachedTexts, text)
	}

	if len(uncachedTexts) == 0 {
		return results, nil
	}

	uncachedEmbeddings, err := cm.model.CreateEmbedding(ctx, uncachedTexts)
	if err != nil {
		return nil, err
	}

	for i, embedding := range uncachedEmbeddings {
		originalIndex := uncachedIndices[i]
		originalText := uncachedTexts[i]

		cm.cache.Set(embeddingCacheKey(originalText), embedding)

		results[originalIndex] = embedding
	}

	return results, nil
}

// CachedCompletionModel memoizes non-streaming completions per prompt.
// Streaming calls always pass through.
type CachedCompletionModel struct {
	model llms.Model
	cache *lib.Cache
}

func NewCachedCompletionModel(model llms.Model, cache *lib.Cache) *CachedCompletionModel {
	return &CachedCompletionModel{
		model: model,
		cache: cache,
	}
}

func (cm *CachedCompletionModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	key := completionCacheKey(prompt)

	if response, found := cm.cache.Get(key); found {
		value, ok := response.(string)
		if ok {
			return value, nil
		}
	}

	response, err := cm.model.Call(ctx, prompt, options...)
	if err != nil {
		return "", err
	}

	cm.cache.Set(key, response)
	return response, nil
}

func (cm *CachedCompletionModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	if opts.StreamingFunc != nil {
		return cm.model.GenerateContent(ctx, messages, options...)
	}

	prompt, system := flattenMessages(messages)
	key := completionCacheKey(system + "\n" + prompt)

	if response, found := cm.cache.Get(key); found {
		if value, ok := response.(string); ok {
			return &llms.ContentResponse{
				Choices: []*llms.ContentChoice{{Content: value}},
			}, nil
		}
	}

	response, err := cm.model.GenerateContent(ctx, messages, options...)
	if err != nil {
		return nil, err
	}

	if len(response.Choices) > 0 {
		cm.cache.Set(key, response.Choices[0].Content)
	}

	return response, nil
}

func embeddingCacheKey(text string) string {
	// TODO: include the model ID once more than one embedding backend
	// 	is configured at a time
	return fmt.Sprintf("embedding:%s", lib.HashParams(text))
}

func completionCacheKey(prompt string) string {
	return fmt.Sprintf("completion:%s", lib.HashParams(prompt))
}
