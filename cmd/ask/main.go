package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rfcpilot/rfcpilot/pkg/agent"
	appconfig "github.com/rfcpilot/rfcpilot/pkg/config"
	"github.com/rfcpilot/rfcpilot/pkg/lib"
	"github.com/rfcpilot/rfcpilot/pkg/lib/log"
	"github.com/rfcpilot/rfcpilot/pkg/llms"
	"github.com/rfcpilot/rfcpilot/pkg/prompts"
	"github.com/rfcpilot/rfcpilot/pkg/rag"
	"github.com/rfcpilot/rfcpilot/pkg/storage/postgres"
)

type cliConfig struct {
	Question      string
	K             int
	Preset        string
	System        string
	Sources       []string
	MinSimilarity float64
	Stream        bool
	JSON          bool
	EnvFilePath   string
}

func main() {
	var config cliConfig

	flag.StringVar(&config.Question, "q", "", "Question to answer (required)")
	flag.IntVar(&config.K, "k", rag.DefaultTopK, "Number of excerpts to retrieve")
	flag.StringVar(&config.Preset, "prompt", "", fmt.Sprintf("Prompt preset (%s)", strings.Join(prompts.PresetKeys(), ", ")))
	flag.StringVar(&config.System, "system", "", "Extra system prompt instructions")
	flag.Var((*stringSlice)(&config.Sources), "source", "Restrict retrieval to a source (can be specified multiple times)")
	flag.Float64Var(&config.MinSimilarity, "min-similarity", 0, "Minimum excerpt similarity in [0, 1]")
	flag.BoolVar(&config.Stream, "stream", false, "Stream answer tokens to stdout")
	flag.BoolVar(&config.JSON, "json", false, "Emit a structured JSON answer with cited sources")
	flag.StringVar(&config.EnvFilePath, "env-file", ".env", "Path to .env file")
	flag.Parse()

	ctx := context.Background()
	if err := run(ctx, config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, config cliConfig) error {
	if config.Question == "" {
		return fmt.Errorf("question is required, pass -q")
	}
	if config.Stream && config.JSON {
		return fmt.Errorf("-stream and -json are mutually exclusive")
	}

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

	db := postgres.NewDB(&cfg.DB)
	if err := db.Connect(ctx, cfg.LLM.EmbeddingDimension()); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	llmCache := lib.NewCache(2*time.Hour, logger)

	embeddingModel, err := llms.NewEmbeddingModel(&cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("create embedding model: %w", err)
	}

	embedder, err := rag.NewEmbedder(llms.NewCachedEmbedderModel(embeddingModel, llmCache))
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}

	completionModel, err := llms.NewCompletionModel(&cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("create completion model: %w", err)
	}
	cachedCompletionModel := llms.NewCachedCompletionModel(completionModel, llmCache)

	chunkRepo := postgres.NewChunkRepository(db)
	retriever := rag.NewRetriever(embedder, chunkRepo, logger)
	answerer := agent.NewAnswerer(cachedCompletionModel, retriever, logger)

	req := agent.AnswerRequest{
		Question:      config.Question,
		Preset:        config.Preset,
		System:        config.System,
		Sources:       config.Sources,
		K:             config.K,
		MinSimilarity: config.MinSimilarity,
	}

	switch {
	case config.JSON:
		return answerJSON(ctx, answerer, req)
	case config.Stream:
		req.StreamFunc = func(ctx context.Context, chunk []byte) error {
			_, err := os.Stdout.Write(chunk)
			return err
		}
		answer, err := answerer.Answer(ctx, req)
		if err != nil {
			return describeNoExcerpts(err)
		}
		// The full text already went to stdout chunk by chunk.
		fmt.Println()
		printExcerptSummary(answer)
		return nil
	default:
		answer, err := answerer.Answer(ctx, req)
		if err != nil {
			return describeNoExcerpts(err)
		}
		fmt.Println(answer.Text)
		printExcerptSummary(answer)
		return nil
	}
}

func answerJSON(ctx context.Context, answerer *agent.Answerer, req agent.AnswerRequest) error {
	answer, err := answerer.AnswerStructured(ctx, req)
	if err != nil {
		return describeNoExcerpts(err)
	}

	type excerptOut struct {
		Source     string  `json:"source"`
		Seq        int     `json:"seq"`
		Similarity float64 `json:"similarity"`
	}
	out := struct {
		Answer   string       `json:"answer"`
		Sources  []string     `json:"sources"`
		Excerpts []excerptOut `json:"excerpts"`
	}{
		Answer:  answer.Text,
		Sources: answer.CitedSources,
	}
	for _, excerpt := range answer.Excerpts {
		out.Excerpts = append(out.Excerpts, excerptOut{
			Source:     excerpt.Source,
			Seq:        excerpt.Seq,
			Similarity: excerpt.Similarity,
		})
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func describeNoExcerpts(err error) error {
	if errors.Is(err, agent.ErrNoExcerpts) {
		return fmt.Errorf("%w: index documents first or relax -min-similarity", err)
	}
	return err
}

func printExcerptSummary(answer *agent.Answer) {
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Sources:")
	for i, excerpt := range answer.Excerpts {
		fmt.Fprintf(os.Stderr, "  [%d] %s#%d (similarity %.2f)\n", i+1, excerpt.Source, excerpt.Seq, excerpt.Similarity)
	}
}

// stringSlice implements flag.Value for string slices
type stringSlice []string

func (s *stringSlice) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSlice) Set(value string) error {
	*s = append(*s, value)
	return nil
}
