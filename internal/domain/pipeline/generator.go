package pipeline

import "context"

// Generator is the opaque text generation capability stages invoke.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
	// Model labels the generator for cache metadata.
	Model() string
}

// GeneratorFactory builds a generator for a provider/model selector.
// Unknown providers and missing credentials are configuration faults.
type GeneratorFactory interface {
	Generator(provider, model string) (Generator, error)
}
