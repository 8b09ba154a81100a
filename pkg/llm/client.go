package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client generates SQL via an OpenAI-compatible chat completion endpoint.
type Client struct {
	client   *openai.Client
	endpoint string
	model    string
	timeout  time.Duration
	logger   *zap.Logger
}

// Config holds configuration for creating a generator client.
type Config struct {
	Endpoint string        // Base URL, e.g., "https://api.openai.com/v1"
	Model    string        // Model name, e.g., "gpt-4o-mini"
	APIKey   string        // Optional for local endpoints
	Timeout  time.Duration // Client-side bound per generation call
}

// NewClient creates a new OpenAI-compatible generator client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	return &Client{
		client:   openai.NewClientWithConfig(clientConfig),
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		logger:   logger.Named("llm"),
	}, nil
}

// GenerateSQL implements SQLGenerator.
func (c *Client) GenerateSQL(ctx context.Context, question string, schemaHint string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := buildUserPrompt(question, schemaHint)

	c.logger.Debug("generation request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)))

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		c.logger.Error("generation request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	c.logger.Info("generation request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return stripCodeFences(resp.Choices[0].Message.Content), nil
}

// GetModel implements SQLGenerator.
func (c *Client) GetModel() string {
	return c.model
}
