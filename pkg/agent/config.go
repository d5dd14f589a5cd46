package agent

type Config struct {
	ChunkSize      int `env:"CHUNK_SIZE,default=1000" validate:"required,gt=0"`
	ChunkOverlap   int `env:"CHUNK_OVERLAP,default=200" validate:"gte=0"`
	MaxConcurrency int `env:"INDEX_MAX_CONCURRENCY,default=4" validate:"required,gt=0"`
}
