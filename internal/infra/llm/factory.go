package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/yanqian/ai-chatbot/internal/domain/pipeline"
	"github.com/yanqian/ai-chatbot/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/ai-chatbot/pkg/errors"
)

// ProviderConfig holds the credentials and endpoint for one provider.
type ProviderConfig struct {
	APIKey      string
	BaseURL     string
	Temperature float32
}

// Factory builds generators for known providers. Both supported providers
// speak the OpenAI wire protocol, so they share one client implementation.
type Factory struct {
	providers map[string]ProviderConfig
	logger    *slog.Logger
}

// NewFactory constructs the factory. Providers without an API key are
// registered anyway and fail at generator construction time.
func NewFactory(providers map[string]ProviderConfig, logger *slog.Logger) *Factory {
	normalized := make(map[string]ProviderConfig, len(providers))
	for name, cfg := range providers {
		normalized[strings.ToLower(strings.TrimSpace(name))] = cfg
	}
	return &Factory{
		providers: normalized,
		logger:    logger.With("component", "llm.factory"),
	}
}

// Generator implements pipeline.GeneratorFactory.
func (f *Factory) Generator(provider, model string) (pipeline.Generator, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	cfg, ok := f.providers[name]
	if !ok {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "unknown llm provider "+provider, nil)
	}
	if strings.TrimSpace(model) == "" {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "model must not be empty", nil)
	}
	client, err := chatgpt.NewClient(cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "llm provider "+name+" is not configured", err)
	}
	return &chatGenerator{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

// chatGenerator adapts the completion client to the pipeline contract.
type chatGenerator struct {
	client      *chatgpt.Client
	model       string
	temperature float32
}

func (g *chatGenerator) Model() string { return g.model }

func (g *chatGenerator) Generate(ctx context.Context, messages []pipeline.Message) (string, error) {
	wire := make([]chatgpt.Message, 0, len(messages))
	for _, message := range messages {
		role, ok := message.Role()
		if !ok {
			role = "user"
		}
		wire = append(wire, chatgpt.Message{Role: role, Content: message.Content()})
	}

	resp, err := g.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model:       g.model,
		Messages:    wire,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeLLM, "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.Wrap(apperrors.CodeLLM, "chat completion returned no choices", errors.New("empty choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

var (
	_ pipeline.GeneratorFactory = (*Factory)(nil)
	_ pipeline.Generator        = (*chatGenerator)(nil)
)
