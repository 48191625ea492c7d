package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

var denseCollections = []domain.Collection{
	domain.CollectionText,
	domain.CollectionTable,
	domain.CollectionImage,
}

// denseRetrieve fans out the query vector to every collection concurrently.
// A failing collection degrades to an empty slice for that collection;
// ordering is fixed by collection position and backend rank, never goroutine
// completion order. Hits without document text are dropped.
func (uc *AnswerUseCase) denseRetrieve(
	ctx context.Context,
	vector []float32,
	n int,
	filter *domain.MetadataFilter,
) []domain.Candidate {
	if len(vector) == 0 {
		return nil
	}

	results := make([][]domain.Candidate, len(denseCollections))
	var wg sync.WaitGroup
	for i, collection := range denseCollections {
		wg.Add(1)
		go func(slot int, collection domain.Collection) {
			defer wg.Done()
			hits, err := uc.vectors.Query(ctx, collection, vector, n, filter)
			if err != nil {
				slog.Warn("dense_retrieval_degraded", "collection", string(collection), "error", err)
				return
			}
			results[slot] = denseCandidates(hits)
		}(i, collection)
	}
	wg.Wait()

	var out []domain.Candidate
	for _, candidates := range results {
		out = append(out, candidates...)
	}
	return out
}

func denseCandidates(hits []domain.VectorHit) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(hits))
	for _, hit := range hits {
		if strings.TrimSpace(hit.Document) == "" {
			continue
		}
		out = append(out, domain.Candidate{
			ID:       hit.ID,
			Document: hit.Document,
			Metadata: hit.Metadata,
			// Native distance to a bounded score: smaller distance, higher
			// score, domain (0,1].
			Score:    1 / (1 + hit.Distance),
			Modality: domain.ModalityDense,
		})
	}
	return out
}

func (uc *AnswerUseCase) sparseRetrieve(query string, n int) []domain.Candidate {
	if uc.lexical == nil || uc.lexical.Size() == 0 {
		return nil
	}
	candidates, err := uc.lexical.Search(query, n)
	if err != nil {
		slog.Warn("sparse_retrieval_degraded", "error", err)
		return nil
	}
	out := candidates[:0]
	for _, c := range candidates {
		if strings.TrimSpace(c.Document) == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}
