// Package config loads the server configuration from a YAML file with
// sensible defaults for local development.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Storage backend names accepted by Config.Store.Backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Engine  EngineConfig  `yaml:"engine"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`

	// SQLitePath is the database file when Backend is "sqlite".
	SQLitePath string `yaml:"sqlite_path"`

	// RedisAddr is the host:port when Backend is "redis".
	RedisAddr string `yaml:"redis_addr"`
}

type OpenAIConfig struct {
	// APIKey may be left empty in the file; the OPENAI_API_KEY environment
	// variable then takes over.
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type EngineConfig struct {
	MaxIterations int `yaml:"max_iterations"`

	// LeaseTTLSeconds controls how long a run holds a thread's lease
	// between renewals.
	LeaseTTLSeconds int `yaml:"lease_ttl_seconds"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: ":8080"},
		Store:   StoreConfig{Backend: BackendMemory, SQLitePath: "advisa.db", RedisAddr: "localhost:6379"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads path and overlays it on the defaults. An empty path returns
// the defaults. The OPENAI_API_KEY environment variable overrides the
// file's api_key either way.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAI.APIKey = key
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Engine.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must not be negative")
	}
	return nil
}
