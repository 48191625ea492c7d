package ports

import (
	"context"
	"io"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

// VectorStore is the dense retrieval collaborator. Query returns raw hits
// with native vector distances; the pipeline owns the distance-to-score
// transform. Implementations must retry without the filter when the backing
// store rejects filtered queries.
type VectorStore interface {
	Query(ctx context.Context, collection domain.Collection, vector []float32, n int, filter *domain.MetadataFilter) ([]domain.VectorHit, error)
	GetAll(ctx context.Context, collection domain.Collection) ([]domain.Chunk, error)
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk, vectors [][]float32) error
	Count(ctx context.Context, collection domain.Collection) (int, error)
}

// Embedder builds vectors for chunks and query text. Encoding is
// deterministic for identical input within a process lifetime.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// LexicalSearcher scores candidates by lexical overlap with the query. The
// index behind it is built once at startup and read-only afterwards.
type LexicalSearcher interface {
	Search(query string, n int) ([]domain.Candidate, error)
	Size() int
}

// Generator is the generative answer collaborator. A degenerate or
// placeholder response is returned as-is; the pipeline detects and discards
// it.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, images []string) (text string, model string, err error)
}

// Reranker jointly scores (query, document) pairs; scores align with the
// documents slice by index.
type Reranker interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}

// ConditionGraph resolves conditions related to a given condition tag. Used
// to enrich extractive answers; unavailability degrades to metadata-only
// tags.
type ConditionGraph interface {
	Related(ctx context.Context, condition string) ([]string, error)
}

// DocumentRepository persists document registry state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	MarkIndexed(ctx context.Context, id string, chunkCount int) error
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts textual units from a stored document. Tabular
// sources yield one unit per row; free text yields a single unit split later
// by the chunker.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) ([]string, error)
}

// Chunker splits extracted text into indexable chunks.
type Chunker interface {
	Split(text string) []string
}
