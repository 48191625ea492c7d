package resilience

import (
	"context"

	"github.com/medkit-ai/medrag/internal/core/domain"
	"github.com/medkit-ai/medrag/internal/core/ports"
)

// GuardedGenerator runs generation calls through a circuit breaker. Exactly
// one attempt per call; an open breaker surfaces as ErrUnavailable so the
// pipeline can fall back to extraction immediately.
type GuardedGenerator struct {
	guard     *Guard
	operation string
	inner     ports.Generator
	classify  ErrorClassifier
}

func NewGuardedGenerator(guard *Guard, operation string, inner ports.Generator, classify ErrorClassifier) *GuardedGenerator {
	return &GuardedGenerator{
		guard:     guard,
		operation: operation,
		inner:     inner,
		classify:  classify,
	}
}

func (g *GuardedGenerator) Generate(ctx context.Context, prompt string, maxTokens int, images []string) (string, string, error) {
	var text, model string
	err := g.guard.Execute(ctx, g.operation, func(callCtx context.Context) error {
		var callErr error
		text, model, callErr = g.inner.Generate(callCtx, prompt, maxTokens, images)
		return callErr
	}, g.classify)
	if err != nil {
		if IsCircuitOpen(err) {
			return "", "", domain.WrapError(domain.ErrUnavailable, g.operation, err)
		}
		return "", "", err
	}
	return text, model, nil
}

// GuardedEmbedder runs embedding calls through a circuit breaker.
type GuardedEmbedder struct {
	guard     *Guard
	operation string
	inner     ports.Embedder
	classify  ErrorClassifier
}

func NewGuardedEmbedder(guard *Guard, operation string, inner ports.Embedder, classify ErrorClassifier) *GuardedEmbedder {
	return &GuardedEmbedder{
		guard:     guard,
		operation: operation,
		inner:     inner,
		classify:  classify,
	}
}

func (e *GuardedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := e.guard.Execute(ctx, e.operation, func(callCtx context.Context) error {
		var callErr error
		vectors, callErr = e.inner.Embed(callCtx, texts)
		return callErr
	}, e.classify)
	if err != nil {
		if IsCircuitOpen(err) {
			return nil, domain.WrapError(domain.ErrUnavailable, e.operation, err)
		}
		return nil, err
	}
	return vectors, nil
}

func (e *GuardedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := e.guard.Execute(ctx, e.operation, func(callCtx context.Context) error {
		var callErr error
		vector, callErr = e.inner.EmbedQuery(callCtx, text)
		return callErr
	}, e.classify)
	if err != nil {
		if IsCircuitOpen(err) {
			return nil, domain.WrapError(domain.ErrUnavailable, e.operation, err)
		}
		return nil, err
	}
	return vector, nil
}
