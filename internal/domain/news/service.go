package news

import (
	"context"
	"log/slog"

	"github.com/yanqian/ai-chatbot/internal/domain/pipeline"
	"github.com/yanqian/ai-chatbot/internal/domain/qacache"
	apperrors "github.com/yanqian/ai-chatbot/pkg/errors"
)

// Service produces news digests through the three-stage pipeline.
type Service interface {
	Run(ctx context.Context, req Request) (Result, error)
}

type service struct {
	cfg      Config
	cache    qacache.Cache
	searcher Searcher
	factory  pipeline.GeneratorFactory
	sink     Sink
	logger   *slog.Logger
}

// NewService wires up the news domain.
func NewService(cfg Config, cache qacache.Cache, searcher Searcher, factory pipeline.GeneratorFactory, sink Sink, logger *slog.Logger) Service {
	return &service{
		cfg:      cfg,
		cache:    cache,
		searcher: searcher,
		factory:  factory,
		sink:     sink,
		logger:   logger.With("component", "news.service"),
	}
}

func (s *service) Run(ctx context.Context, req Request) (Result, error) {
	if req.EmbeddingModel != "" && s.cfg.EmbeddingModel != "" && req.EmbeddingModel != s.cfg.EmbeddingModel {
		return Result{}, apperrors.Wrap(apperrors.CodeConfig, "embedding model "+req.EmbeddingModel+" is not configured", nil)
	}

	generator, err := s.factory.Generator(s.cfg.Provider, s.cfg.Model)
	if err != nil {
		return Result{}, err
	}

	frequency := MapTimeframe(req.Timeframe)
	run := pipeline.New(pipeline.UseCaseAINews, s.logger,
		fetchStage{
			cache:     s.cache,
			searcher:  s.searcher,
			threshold: s.cfg.SimilarityThreshold,
			limit:     s.cfg.SearchLimit,
			max:       s.cfg.MaxArticles,
			logger:    s.logger,
		},
		summarizeStage{cache: s.cache, generator: generator, logger: s.logger},
		persistStage{sink: s.sink, logger: s.logger},
	)

	state := pipeline.State{
		UserQuery: req.Timeframe,
		Frequency: frequency,
		Messages:  []pipeline.Message{pipeline.TextMessage(frequency)},
	}
	final, err := run.Run(ctx, state)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Summary:   final.Summary,
		SavedFile: final.SavedFile,
		FromCache: final.FromCache,
	}, nil
}
