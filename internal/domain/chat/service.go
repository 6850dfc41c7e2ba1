package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/yanqian/ai-chatbot/internal/domain/pipeline"
	"github.com/yanqian/ai-chatbot/internal/domain/qacache"
	apperrors "github.com/yanqian/ai-chatbot/pkg/errors"
	"github.com/yanqian/ai-chatbot/pkg/metrics"
)

// Config holds runtime knobs for the chat service.
type Config struct {
	SimilarityThreshold float64
	SearchLimit         int
	WebSearchResults    int
	EmbeddingModel      string
}

// Request is one inbound chat turn.
type Request struct {
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	Usecase        string `json:"usecase"`
	Message        string `json:"message"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
}

// Response is returned to the HTTP transport.
type Response struct {
	Content    string              `json:"content"`
	FromCache  bool                `json:"from_cache"`
	TokenUsage *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}

// Service answers chat requests through a per-request pipeline.
type Service interface {
	Run(ctx context.Context, req Request) (Response, error)
}

type service struct {
	cfg      Config
	cache    qacache.Cache
	factory  pipeline.GeneratorFactory
	searcher WebSearcher
	usage    UsageRecorder
	logger   *slog.Logger
}

// NewService wires up the chat domain.
func NewService(cfg Config, cache qacache.Cache, factory pipeline.GeneratorFactory, searcher WebSearcher, usage UsageRecorder, logger *slog.Logger) Service {
	return &service{
		cfg:      cfg,
		cache:    cache,
		factory:  factory,
		searcher: searcher,
		usage:    usage,
		logger:   logger.With("component", "chat.service"),
	}
}

func (s *service) Run(ctx context.Context, req Request) (Response, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "message cannot be empty", nil)
	}

	// Cached entries are embedded with one model; queries under a different
	// model would compare incompatible vectors.
	if req.EmbeddingModel != "" && s.cfg.EmbeddingModel != "" && req.EmbeddingModel != s.cfg.EmbeddingModel {
		return Response{}, apperrors.Wrap(apperrors.CodeConfig, "embedding model "+req.EmbeddingModel+" is not configured", nil)
	}

	usecase, err := pipeline.ParseUseCase(req.Usecase)
	if err != nil {
		return Response{}, err
	}
	if usecase == pipeline.UseCaseAINews {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "use the news summary endpoint for AI News", nil)
	}

	generator, err := s.factory.Generator(req.Provider, req.Model)
	if err != nil {
		return Response{}, err
	}
	if usecase == pipeline.UseCaseChatbotWithWeb {
		generator = NewWebAugmentedGenerator(generator, s.searcher, s.cfg.WebSearchResults, s.logger)
	}

	responder := NewResponder(s.cache, generator, s.cfg.SimilarityThreshold, s.cfg.SearchLimit, s.logger)
	run := pipeline.New(usecase, s.logger, responder)

	state := pipeline.State{Messages: []pipeline.Message{pipeline.StructuredMessage("user", message)}}
	final, err := run.Run(ctx, state)
	if err != nil {
		return Response{}, err
	}

	content := final.FinalText()
	fromCache := strings.Contains(content, ProvenanceMarker)

	s.recordUsage(ctx, string(usecase), message, fromCache)

	usage := metrics.NewTokenUsage(req.Model, message, content)
	return Response{Content: content, FromCache: fromCache, TokenUsage: &usage}, nil
}

func (s *service) recordUsage(ctx context.Context, usecase, question string, hit bool) {
	if s.usage == nil {
		return
	}
	if err := s.usage.RecordLookup(ctx, usecase, hit); err != nil {
		s.logger.Warn("usage lookup record failed", "error", err)
	}
	if err := s.usage.RecordQuestion(ctx, normalizeQuestion(question), question); err != nil {
		s.logger.Warn("usage question record failed", "error", err)
	}
}
