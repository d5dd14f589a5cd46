package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/rfcpilot/rfcpilot/pkg/corpus"
	"github.com/rfcpilot/rfcpilot/pkg/lib"
	"github.com/rfcpilot/rfcpilot/pkg/lib/log"
	"golang.org/x/sync/errgroup"
)

type cliConfig struct {
	RFCs        []string
	Recent      bool
	CorpusDir   string
	EnvFilePath string
}

// fetchConfig is the subset of the application environment the fetcher
// needs, so downloading RFCs works without a database configured.
type fetchConfig struct {
	Corpus corpus.Config `env:""`
	Log    log.Config    `env:""`
}

func main() {
	var config cliConfig

	flag.Var((*stringSlice)(&config.RFCs), "rfc", "RFC number to download (can be specified multiple times)")
	flag.BoolVar(&config.Recent, "recent", false, "List recently published RFCs instead of downloading")
	flag.StringVar(&config.CorpusDir, "corpus", "", "Corpus directory (overrides CORPUS_DIR)")
	flag.StringVar(&config.EnvFilePath, "env-file", ".env", "Path to .env file")
	flag.Parse()

	ctx := context.Background()
	if err := run(ctx, config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, config cliConfig) error {
	if !config.Recent && len(config.RFCs) == 0 {
		return fmt.Errorf("nothing to do, pass -rfc or -recent")
	}

	if err := godotenv.Load(config.EnvFilePath); err != nil {
		fmt.Println("Warning: Could not load .env file")
	}

	var cfg fetchConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := lib.ValidateStruct(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logger, err := log.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	dir := cfg.Corpus.Dir
	if config.CorpusDir != "" {
		dir = config.CorpusDir
	}

	fetcher := corpus.NewFetcher(logger, dir)

	if config.Recent {
		recent, err := fetcher.Recent(ctx)
		if err != nil {
			return fmt.Errorf("list recent RFCs: %w", err)
		}
		for _, rfc := range recent {
			fmt.Printf("RFC %d\t%s\t%s\n", rfc.Number, rfc.Published.Format("2006-01-02"), rfc.Title)
		}
		return nil
	}

	numbers := make([]int, 0, len(config.RFCs))
	for _, raw := range config.RFCs {
		number, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(raw), "rfc"))
		if err != nil {
			return fmt.Errorf("invalid RFC number %q", raw)
		}
		numbers = append(numbers, number)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(4)

	for _, number := range numbers {
		group.Go(func() error {
			path, err := fetcher.Fetch(ctx, number)
			if err != nil {
				return fmt.Errorf("download rfc %d: %w", number, err)
			}

			logger.Info().
				Int("rfc", number).
				Str("path", path).
				Msg("Downloaded RFC")
			return nil
		})
	}

	return group.Wait()
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
