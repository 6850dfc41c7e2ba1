package chat

import (
	"context"
	"log/slog"

	"github.com/yanqian/ai-chatbot/internal/domain/pipeline"
	"github.com/yanqian/ai-chatbot/internal/domain/qacache"
)

// ProvenanceMarker is appended to answers served from the cache so
// downstream consumers can detect them without re-querying.
const ProvenanceMarker = "*[This response was retrieved from previous similar questions]*"

// Responder answers the latest user message, consulting the similarity
// cache before falling back to generation and writing fresh pairs back.
type Responder struct {
	cache     qacache.Cache
	generator pipeline.Generator
	threshold float64
	limit     int
	logger    *slog.Logger
}

// NewResponder builds the cache-gated chat stage.
func NewResponder(cache qacache.Cache, generator pipeline.Generator, threshold float64, limit int, logger *slog.Logger) *Responder {
	if limit <= 0 {
		limit = 3
	}
	return &Responder{
		cache:     cache,
		generator: generator,
		threshold: threshold,
		limit:     limit,
		logger:    logger.With("component", "chat.responder"),
	}
}

func (r *Responder) Name() string { return "chatbot" }

// Run checks the cache for a sufficiently similar prior question. A hit
// needs a top score strictly above the threshold; an exact tie is a miss.
func (r *Responder) Run(ctx context.Context, state pipeline.State) (pipeline.State, error) {
	question, ok := state.LatestText()
	if !ok {
		r.logger.Warn("no messages in state")
		state.Messages = nil
		return state, nil
	}
	usecase := string(state.UseCase)

	matches := r.cache.Search(ctx, question, usecase, r.limit, r.threshold)
	if len(matches) > 0 && matches[0].Score > r.threshold {
		r.logger.Info("cache hit", "usecase", usecase, "score", matches[0].Score)
		state.FromCache = true
		state.CacheHitScore = matches[0].Score
		answer := matches[0].Answer + "\n\n" + ProvenanceMarker
		return state.WithMessage(pipeline.StructuredMessage("assistant", answer)), nil
	}

	r.logger.Info("cache miss, generating", "usecase", usecase)
	answer, err := r.generator.Generate(ctx, state.Messages)
	if err != nil {
		return state, err
	}

	// Best-effort write-back; a failed store never fails the response.
	r.cache.Store(ctx, question, answer, usecase, map[string]any{
		"model":  r.generator.Model(),
		"method": "llm_generated",
	})

	return state.WithMessage(pipeline.StructuredMessage("assistant", answer)), nil
}

var _ pipeline.Stage = (*Responder)(nil)
