package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// maxGenerationTokens bounds the model's answer. A single SELECT statement
// fits comfortably; anything longer is noise the sanitizer would reject.
const maxGenerationTokens = 1024

// AnthropicClient generates SQL via the Anthropic Messages API.
type AnthropicClient struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewAnthropicClient creates a generator backed by the Anthropic API.
func NewAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	return &AnthropicClient{
		client:  anthropic.NewClient(cfg.APIKey),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.Named("llm"),
	}, nil
}

// GenerateSQL implements SQLGenerator.
func (c *AnthropicClient) GenerateSQL(ctx context.Context, question string, schemaHint string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := buildUserPrompt(question, schemaHint)
	start := time.Now()

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		System:    systemPrompt,
		MaxTokens: maxGenerationTokens,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
	})
	if err != nil {
		c.logger.Error("generation request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("create messages: %w", err)
	}

	text := ""
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			text = *block.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}

	c.logger.Info("generation request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return stripCodeFences(text), nil
}

// GetModel implements SQLGenerator.
func (c *AnthropicClient) GetModel() string {
	return c.model
}
