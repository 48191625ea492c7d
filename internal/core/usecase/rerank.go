package usecase

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

// relevanceFloor keeps non-reranked relevance inside (0,1] even for
// candidates whose only signal normalized to zero.
const relevanceFloor = 1e-6

// lazyHandle caches a collaborator built on first use. Guarded check-then-act
// is enough here: contention is low and a failed factory is re-attempted on
// the next call rather than poisoning the handle forever.
type lazyHandle[T any] struct {
	mu      sync.Mutex
	factory func() (T, error)
	cached  T
	ready   bool
}

func newLazyHandle[T any](factory func() (T, error)) *lazyHandle[T] {
	return &lazyHandle[T]{factory: factory}
}

func (l *lazyHandle[T]) get() (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ready {
		return l.cached, nil
	}
	var zero T
	if l.factory == nil {
		return zero, nil
	}
	v, err := l.factory()
	if err != nil {
		return zero, err
	}
	l.cached = v
	l.ready = true
	return v, nil
}

// maybeRerank jointly scores the top of the fused pool with the cross-encoder
// and resorts by that score. Any failure falls back to fused order; the
// pipeline never fails a query because the reranker is down.
func (uc *AnswerUseCase) maybeRerank(
	ctx context.Context,
	query string,
	fused []domain.FusedCandidate,
) ([]domain.FinalCandidate, bool) {
	final := make([]domain.FinalCandidate, len(fused))
	for i, fc := range fused {
		final[i] = domain.FinalCandidate{
			FusedCandidate: fc,
			Relevance:      fusedRelevance(fc),
		}
	}

	if !uc.cfg.RerankEnabled || len(final) == 0 {
		return final, false
	}

	reranker, err := uc.reranker.get()
	if err != nil || reranker == nil {
		slog.Warn("reranker_unavailable_using_fused_order", "error", err)
		return final, false
	}

	pool := len(final)
	if uc.cfg.RerankTopK > 0 && uc.cfg.RerankTopK < pool {
		pool = uc.cfg.RerankTopK
	}

	documents := make([]string, pool)
	for i := 0; i < pool; i++ {
		documents[i] = final[i].Document
	}

	scores, err := reranker.Score(ctx, query, documents)
	if err != nil || len(scores) != pool {
		slog.Warn("rerank_failed_using_fused_order", "error", err)
		return final, false
	}

	for i := 0; i < pool; i++ {
		final[i].RerankScore = scores[i]
		final[i].Reranked = true
		// Raw cross-encoder logits are unbounded; squash into (0,1) so the
		// confidence gate compares like with like.
		final[i].Relevance = sigmoid(scores[i])
	}

	head := final[:pool]
	sort.SliceStable(head, func(i, j int) bool {
		if head[i].RerankScore != head[j].RerankScore {
			return head[i].RerankScore > head[j].RerankScore
		}
		return head[i].ID < head[j].ID
	})
	return final, true
}

// fusedRelevance picks the best absolute signal available for a non-reranked
// candidate. The raw dense score already lives in (0,1]; normalized scores
// are relative to the batch and only used when nothing absolute exists.
func fusedRelevance(fc domain.FusedCandidate) float64 {
	var relevance float64
	switch {
	case fc.HasDense:
		relevance = fc.DenseRaw
	case fc.HasSparse:
		relevance = fc.SparseNorm
	default:
		relevance = fc.FusedScore
	}
	if relevance < relevanceFloor {
		relevance = relevanceFloor
	}
	if relevance > 1 {
		relevance = 1
	}
	return relevance
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
