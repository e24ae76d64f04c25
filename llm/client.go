package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/kavehmz/agentic-office-manager/config"
	"github.com/kavehmz/agentic-office-manager/errors"
	"github.com/kavehmz/agentic-office-manager/session"
	"github.com/kavehmz/agentic-office-manager/tools"
)

// maxTokens bounds the completion length requested from every backend.
const maxTokens = 8192

// Client is the interface for interacting with a turn-based completion
// service. Chat consumes the ordered transcript and returns the assistant's
// reply, which carries tool calls when the model requested any. It must not
// mutate session state and does not retry on failure.
type Client interface {
	Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error)
}

// New selects and constructs a backend. The MODEL_PROVIDER and MODEL_NAME
// environment values take precedence over configuration.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	provider := os.Getenv("MODEL_PROVIDER")
	if provider == "" {
		provider = cfg.LLMClient
	}
	if provider == "" {
		provider = "openai"
	}
	model := os.Getenv("MODEL_NAME")
	if model == "" {
		model = cfg.Model
	}
	if model == "" {
		model = "gpt-4o"
	}

	switch provider {
	case "openai":
		return NewOpenAIClient(ctx, model)
	case "anthropic":
		return NewAnthropicClient(ctx, model)
	case "gemini":
		return NewGeminiClient(ctx, model)
	case "bedrock":
		return NewBedrockClient(ctx, model)
	case "mock":
		return &MockClient{}, nil
	default:
		return nil, errors.New("unknown model provider '%s'", provider)
	}
}

// MockClient is a placeholder backend for development without credentials.
// It parrots the last message and never requests tools.
type MockClient struct{}

func (m *MockClient) Chat(_ context.Context, messages []session.Message, _ []tools.Tool) (*session.Message, error) {
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return &session.Message{
		Role:    "assistant",
		Content: fmt.Sprintf("I am a mock model. You said: '%s'.", last),
	}, nil
}
