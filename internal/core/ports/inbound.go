package ports

import (
	"context"
	"io"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for the retrieval-and-grounding
// pipeline. It returns an error only for invalid input; every degraded
// retrieval or generation path still yields a well-formed Answer.
type QuestionAnswerer interface {
	Answer(ctx context.Context, query domain.Query) (*domain.Answer, error)
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, collection domain.Collection, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document
// processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// StatsReader reports knowledge-base statistics.
type StatsReader interface {
	Stats(ctx context.Context) (*domain.CorpusStats, error)
}
