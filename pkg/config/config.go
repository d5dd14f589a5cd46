package config

import (
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/rfcpilot/rfcpilot/pkg/agent"
	"github.com/rfcpilot/rfcpilot/pkg/corpus"
	"github.com/rfcpilot/rfcpilot/pkg/lib"
	"github.com/rfcpilot/rfcpilot/pkg/lib/log"
	"github.com/rfcpilot/rfcpilot/pkg/llms"
	"github.com/rfcpilot/rfcpilot/pkg/storage/postgres"
)

type Config struct {
	DB     postgres.Config `env:""`
	LLM    llms.Config     `env:""`
	Log    log.Config      `env:""`
	Corpus corpus.Config   `env:""`
	Index  agent.Config    `env:""`
}

func Load() (*Config, error) {
	var cfg Config

	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := lib.ValidateStruct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
