package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rfcpilot/rfcpilot/pkg/agent"
	appconfig "github.com/rfcpilot/rfcpilot/pkg/config"
	"github.com/rfcpilot/rfcpilot/pkg/corpus"
	"github.com/rfcpilot/rfcpilot/pkg/lib"
	"github.com/rfcpilot/rfcpilot/pkg/lib/log"
	"github.com/rfcpilot/rfcpilot/pkg/llms"
	"github.com/rfcpilot/rfcpilot/pkg/rag"
	"github.com/rfcpilot/rfcpilot/pkg/storage/postgres"
	"github.com/rs/zerolog"
)

type cliConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	CorpusDir      string
	MaxConcurrency int
	DryRun         bool
	List           bool
	Prune          bool
	EnvFilePath    string
}

func main() {
	var config cliConfig

	flag.IntVar(&config.ChunkSize, "chunk-size", 0, "Target chunk size in characters (defaults to CHUNK_SIZE)")
	flag.IntVar(&config.ChunkOverlap, "chunk-overlap", -1, "Overlap between adjacent chunks in characters (defaults to CHUNK_OVERLAP)")
	flag.StringVar(&config.CorpusDir, "corpus", "", "Corpus directory (defaults to CORPUS_DIR)")
	flag.IntVar(&config.MaxConcurrency, "max-concurrency", 0, "Documents to index in parallel (defaults to INDEX_MAX_CONCURRENCY)")
	flag.BoolVar(&config.DryRun, "dry-run", false, "Show which documents would be indexed without doing it")
	flag.BoolVar(&config.List, "list", false, "List indexed documents and exit")
	flag.BoolVar(&config.Prune, "prune", false, "Remove index records for documents deleted from the corpus")
	flag.StringVar(&config.EnvFilePath, "env-file", ".env", "Path to .env file")
	flag.Parse()

	ctx := context.Background()
	if err := run(ctx, config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, config cliConfig) error {
	if err := godotenv.Load(config.EnvFilePath); err != nil {
		fmt.Println("Warning: Could not load .env file")
	}

	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := log.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	corpusDir := cfg.Corpus.Dir
	if config.CorpusDir != "" {
		corpusDir = config.CorpusDir
	}
	maxConcurrency := cfg.Index.MaxConcurrency
	if config.MaxConcurrency > 0 {
		maxConcurrency = config.MaxConcurrency
	}
	chunkSize := cfg.Index.ChunkSize
	if config.ChunkSize > 0 {
		chunkSize = config.ChunkSize
	}
	chunkOverlap := cfg.Index.ChunkOverlap
	if config.ChunkOverlap >= 0 {
		chunkOverlap = config.ChunkOverlap
	}

	db := postgres.NewDB(&cfg.DB)
	if err := db.Connect(ctx, cfg.LLM.EmbeddingDimension()); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	embeddingModel, err := llms.NewEmbeddingModel(&cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("create embedding model: %w", err)
	}

	llmCache := lib.NewCache(2*time.Hour, logger)
	cachedEmbeddingModel := llms.NewCachedEmbedderModel(embeddingModel, llmCache)

	embedder, err := rag.NewEmbedder(cachedEmbeddingModel)
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}

	splitter := rag.NewSplitter(chunkSize, chunkOverlap)
	documentRepo := postgres.NewDocumentRepository(db)
	chunkRepo := postgres.NewChunkRepository(db)

	indexer := agent.NewIndexer(logger, corpusDir, splitter, embedder, documentRepo, chunkRepo, maxConcurrency)

	if config.List {
		records, err := documentRepo.List(ctx)
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}

		for _, record := range records {
			fmt.Printf("%s\t%d chunks\tindexed %s\n", record.Source, record.ChunkCount, record.ProcessedTime.Format(time.RFC3339))
		}
		return nil
	}

	if config.Prune {
		return pruneDeleted(ctx, logger, documentRepo, corpusDir)
	}

	if config.DryRun {
		toProcess, err := indexer.Plan(ctx)
		if err != nil {
			return fmt.Errorf("plan indexing: %w", err)
		}

		for _, doc := range toProcess {
			fmt.Println(doc.Source)
		}
		logger.Info().
			Int("documents", len(toProcess)).
			Msg("Dry run: documents needing indexing")
		return nil
	}

	return indexer.Run(ctx)
}

// pruneDeleted drops index records whose corpus file no longer exists.
// Stored chunks are removed by the schema's cascade.
func pruneDeleted(ctx context.Context, logger *zerolog.Logger, documentRepo *postgres.DocumentRepository, corpusDir string) error {
	records, err := documentRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	pruned := 0
	for _, record := range records {
		if _, err := os.Stat(corpus.SourcePath(corpusDir, record.Source)); err == nil {
			continue
		}

		if err := documentRepo.Remove(ctx, record.Source); err != nil {
			return fmt.Errorf("remove document %s: %w", record.Source, err)
		}

		logger.Info().
			Str("source", record.Source).
			Msg("Pruned deleted document")
		pruned++
	}

	logger.Info().
		Int("pruned", pruned).
		Msg("Prune finished")

	return nil
}
