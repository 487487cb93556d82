package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the server reads from its environment.
type Config struct {
	// HTTPAddr is the MCP JSON-RPC listen address.
	HTTPAddr string `env:"SUPPLYCHAIN_HTTP_ADDR" envDefault:":3333"`

	// StoreDSN selects the SQLite database file. Empty keeps entities in
	// memory, which is what the test and demo setups want.
	StoreDSN string `env:"SUPPLYCHAIN_STORE_DSN"`

	// ActivitySize bounds the in-memory activity feed.
	ActivitySize int `env:"SUPPLYCHAIN_ACTIVITY_SIZE" envDefault:"200"`

	// LogLevel is a logrus level name; blank means info.
	LogLevel string `env:"SUPPLYCHAIN_LOG_LEVEL" envDefault:"info"`

	// OpenAI settings drive the outbound sampling transport. Without a key
	// the bridge stays empty and generative tools fall back to their
	// deterministic computations.
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// SamplingConfigured reports whether an outbound transport can be built.
func (c Config) SamplingConfigured() bool { return c.OpenAIKey != "" }
