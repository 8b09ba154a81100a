package llm

import (
	"testing"

	"go.uber.org/zap"

	"github.com/tradewind-io/tradewind-gateway/pkg/config"
)

func TestNewGenerator_OpenAI(t *testing.T) {
	gen, err := NewGenerator(&config.OracleConfig{
		Provider: "openai",
		Endpoint: "http://localhost:8000/v1",
		Model:    "qwen2.5-coder",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.GetModel() != "qwen2.5-coder" {
		t.Errorf("got model %q", gen.GetModel())
	}
}

func TestNewGenerator_Anthropic(t *testing.T) {
	gen, err := NewGenerator(&config.OracleConfig{
		Provider: "anthropic",
		Model:    "claude-sonnet-4-5",
		APIKey:   "test-key",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := gen.(*AnthropicClient); !ok {
		t.Errorf("expected *AnthropicClient, got %T", gen)
	}
}

func TestNewGenerator_UnknownProvider(t *testing.T) {
	if _, err := NewGenerator(&config.OracleConfig{Provider: "gemini"}, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewClient_RequiresEndpointAndModel(t *testing.T) {
	if _, err := NewClient(&Config{Model: "m"}, zap.NewNop()); err == nil {
		t.Error("expected error for missing endpoint")
	}
	if _, err := NewClient(&Config{Endpoint: "http://x"}, zap.NewNop()); err == nil {
		t.Error("expected error for missing model")
	}
}
