package llms_test

import (
	"testing"

	llmpkg "github.com/rfcpilot/rfcpilot/pkg/llms"
	"github.com/rs/zerolog"
)

func TestNewCompletionModel(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("ollama provider", func(t *testing.T) {
		config := &llmpkg.Config{
			DefaultModelType: "ollama",
			OllamaBaseURL:    "http://localhost:11434",
			OllamaModel:      "deepseek-r1:32b",
		}

		model, err := llmpkg.NewCompletionModel(config, &logger)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, ok := model.(*llmpkg.OllamaModel); !ok {
			t.Errorf("expected *OllamaModel, got %T", model)
		}
	})

	t.Run("openai provider", func(t *testing.T) {
		config := &llmpkg.Config{
			DefaultModelType: "openai",
			OpenAIBaseURL:    "https://api.openai.com/v1",
			OpenAIAPIKey:     "test-key",
			OpenAIModel:      "gpt-4o-mini",
		}

		model, err := llmpkg.NewCompletionModel(config, &logger)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if model == nil {
			t.Fatal("expected a model")
		}
	})

	t.Run("ark provider", func(t *testing.T) {
		config := &llmpkg.Config{
			DefaultModelType: "ark",
			OpenAIBaseURL:    "https://ark.cn-beijing.volces.com/api/v3",
			OpenAIAPIKey:     "test-key",
			OpenAIModel:      "doubao-pro-32k",
		}

		model, err := llmpkg.NewCompletionModel(config, &logger)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if model == nil {
			t.Fatal("expected a model")
		}
	})

	t.Run("unsupported provider", func(t *testing.T) {
		config := &llmpkg.Config{DefaultModelType: "llamafile"}

		if _, err := llmpkg.NewCompletionModel(config, &logger); err == nil {
			t.Fatal("expected error for unsupported provider")
		}
	})
}
