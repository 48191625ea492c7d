package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medkit-ai/medrag/internal/core/domain"
	"github.com/medkit-ai/medrag/internal/core/ports"
)

type StatsUseCase struct {
	repo    ports.DocumentRepository
	vectors ports.VectorStore
	lexical ports.LexicalSearcher
}

func NewStatsUseCase(
	repo ports.DocumentRepository,
	vectors ports.VectorStore,
	lexical ports.LexicalSearcher,
) *StatsUseCase {
	return &StatsUseCase{
		repo:    repo,
		vectors: vectors,
		lexical: lexical,
	}
}

func (uc *StatsUseCase) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	counts, err := uc.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	indexed := 0
	for _, collection := range denseCollections {
		n, err := uc.vectors.Count(ctx, collection)
		if err != nil {
			slog.Warn("stats_vector_count_degraded", "collection", string(collection), "error", err)
			continue
		}
		indexed += n
	}

	lexSize := 0
	if uc.lexical != nil {
		lexSize = uc.lexical.Size()
	}

	status := "ready"
	if total == 0 && indexed == 0 {
		status = "empty"
	}

	return &domain.CorpusStats{
		Documents:        total,
		DocumentsByState: counts,
		IndexedChunks:    indexed,
		LexicalIndexSize: lexSize,
		Status:           status,
	}, nil
}
