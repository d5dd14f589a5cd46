package llms

type Config struct {
	// Completion
	DefaultModelType string `env:"DEFAULT_MODEL_TYPE,default=ollama" validate:"required,oneof=ollama openai ark"`

	// Ollama
	OllamaBaseURL     string `env:"OLLAMA_API_BASE,default=http://localhost:11434"`
	OllamaModel       string `env:"OLLAMA_MODEL_NAME,default=deepseek-r1:32b"`
	OllamaContextSize int    `env:"OLLAMA_CONTEXT_SIZE,default=32768"` // context window size in tokens

	// OpenAI-compatible (also used for the ark completion endpoint,
	// which speaks the OpenAI chat schema)
	OpenAIBaseURL string `env:"OPENAI_API_BASE,default=https://api.openai.com/v1"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY,default="`
	OpenAIModel   string `env:"OPENAI_MODEL_NAME,default=gpt-4o-mini"`

	// Embedding
	EmbeddingModelType string `env:"EMBEDDING_MODEL_TYPE,default=openai" validate:"required,oneof=openai ark"`
	EmbeddingBaseURL   string `env:"EMBEDDING_MODEL_BASE,default=https://api.openai.com/v1"`
	EmbeddingAPIKey    string `env:"EMBEDDING_API_KEY,default="`
	EmbeddingModel     string `env:"EMBEDDING_MODEL_NAME,default=text-embedding-ada-002"`
}
