package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for tradewind-gateway.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Oracle configuration (external text-generation service)
	Oracle OracleConfig `yaml:"oracle"`

	// Gateway behavior
	Gateway GatewayConfig `yaml:"gateway"`

	// CSV ingestion
	CSVRoot string `yaml:"csv_root" env:"CSV_ROOT" env-default:"./data"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"tradewind"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"tradewind"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// OracleConfig holds configuration for the SQL-generating model endpoint.
// Provider selects the client implementation: "openai" for any
// OpenAI-compatible endpoint, "anthropic" for the Anthropic API.
type OracleConfig struct {
	Provider string `yaml:"provider" env:"ORACLE_PROVIDER" env-default:"openai"`
	Endpoint string `yaml:"endpoint" env:"ORACLE_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"ORACLE_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"ORACLE_API_KEY"` // Secret - not in YAML

	// TimeoutSeconds is the client-side bound on a single generation call.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"ORACLE_TIMEOUT_SECONDS" env-default:"30"`
}

// GatewayConfig holds the text2sql request-handling knobs.
type GatewayConfig struct {
	// DefaultMaxRows is the LIMIT injected when a request does not specify one.
	DefaultMaxRows int `yaml:"default_max_rows" env:"GATEWAY_DEFAULT_MAX_ROWS" env-default:"1000"`

	// StatementTimeoutMs bounds a single query execution on the database side.
	StatementTimeoutMs int `yaml:"statement_timeout_ms" env:"GATEWAY_STATEMENT_TIMEOUT_MS" env-default:"5000"`

	// SchemaCacheTTLSeconds is how long a rendered schema description is reused
	// before re-introspecting. Zero disables caching.
	SchemaCacheTTLSeconds int `yaml:"schema_cache_ttl_seconds" env:"GATEWAY_SCHEMA_CACHE_TTL_SECONDS" env-default:"60"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Gateway.DefaultMaxRows < 1 || c.Gateway.DefaultMaxRows > 1000 {
		return fmt.Errorf("default_max_rows must be in 1..1000, got %d", c.Gateway.DefaultMaxRows)
	}
	if c.Gateway.StatementTimeoutMs <= 0 {
		return fmt.Errorf("statement_timeout_ms must be positive, got %d", c.Gateway.StatementTimeoutMs)
	}
	switch c.Oracle.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown oracle provider %q (expected openai or anthropic)", c.Oracle.Provider)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
