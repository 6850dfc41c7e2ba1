package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// Stage is one node of a pipeline. Stages must be stateless across requests;
// per-request data travels exclusively through State.
type Stage interface {
	Name() string
	Run(ctx context.Context, state State) (State, error)
}

// Pipeline runs its stages in order, synchronously, threading the state
// value through each. Topologies are built fresh per request.
type Pipeline struct {
	usecase UseCase
	stages  []Stage
	logger  *slog.Logger
}

// New assembles a pipeline for a use case.
func New(usecase UseCase, logger *slog.Logger, stages ...Stage) Pipeline {
	return Pipeline{
		usecase: usecase,
		stages:  stages,
		logger:  logger.With("component", "pipeline", "usecase", string(usecase)),
	}
}

// Run executes every stage to completion and returns the final state. The
// first stage error aborts the run.
func (p Pipeline) Run(ctx context.Context, state State) (State, error) {
	state.UseCase = p.usecase
	for _, stage := range p.stages {
		p.logger.Debug("running stage", "stage", stage.Name())
		next, err := stage.Run(ctx, state)
		if err != nil {
			return state, fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		state = next
	}
	return state, nil
}
