package llm

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tradewind-io/tradewind-gateway/pkg/config"
)

// NewGenerator creates the SQLGenerator selected by the oracle configuration.
func NewGenerator(cfg *config.OracleConfig, logger *zap.Logger) (SQLGenerator, error) {
	clientCfg := &Config{
		Endpoint: cfg.Endpoint,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
		Timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	switch cfg.Provider {
	case "openai":
		return NewClient(clientCfg, logger)
	case "anthropic":
		return NewAnthropicClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
}
