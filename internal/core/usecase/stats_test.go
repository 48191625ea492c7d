package usecase

import (
	"context"
	"testing"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

func TestStatsAggregates(t *testing.T) {
	repo := newFakeRepo()
	repo.counts = map[string]int{"ready": 3, "failed": 1}
	vectors := &fakeVectorStore{counts: map[domain.Collection]int{
		domain.CollectionText:  100,
		domain.CollectionTable: 40,
	}}
	lexical := &fakeLexical{results: make([]domain.Candidate, 7)}
	uc := NewStatsUseCase(repo, vectors, lexical)

	stats, err := uc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Documents != 4 {
		t.Fatalf("documents = %d, want 4", stats.Documents)
	}
	if stats.IndexedChunks != 140 {
		t.Fatalf("indexed chunks = %d, want 140", stats.IndexedChunks)
	}
	if stats.LexicalIndexSize != 7 {
		t.Fatalf("lexical size = %d, want 7", stats.LexicalIndexSize)
	}
	if stats.Status != "ready" {
		t.Fatalf("status = %q, want ready", stats.Status)
	}
}

func TestStatsEmptyCorpus(t *testing.T) {
	repo := newFakeRepo()
	uc := NewStatsUseCase(repo, &fakeVectorStore{}, nil)

	stats, err := uc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Status != "empty" {
		t.Fatalf("status = %q, want empty", stats.Status)
	}
	if stats.Documents != 0 || stats.IndexedChunks != 0 || stats.LexicalIndexSize != 0 {
		t.Fatalf("expected zeroed stats, got %+v", stats)
	}
}
