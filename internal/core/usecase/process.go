package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/medkit-ai/medrag/internal/core/domain"
	"github.com/medkit-ai/medrag/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vectorDB:  vectorDB,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	chunkCount, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.MarkIndexed(ctx, documentID, chunkCount); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (int, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("fetch document by id: %w", err)
	}

	units, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("extract text: %w", err)
	}
	if len(units) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	chunks := uc.buildChunks(doc, units)
	if len(chunks) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	if err := uc.vectorDB.IndexChunks(ctx, doc, chunks, vectors); err != nil {
		return 0, fmt.Errorf("index chunks in vector db: %w", err)
	}
	return len(chunks), nil
}

// buildChunks turns extracted units into indexable chunks. Tabular and image
// sources are already unit-per-chunk; free text is joined and re-split by the
// chunker.
func (uc *ProcessDocumentUseCase) buildChunks(doc *domain.Document, units []string) []domain.Chunk {
	var texts []string
	if doc.Collection == domain.CollectionText {
		texts = uc.chunker.Split(strings.Join(units, "\n\n"))
	} else {
		texts = units
	}

	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ID:         fmt.Sprintf("%s-%04d", doc.ID, i),
			Text:       text,
			Collection: doc.Collection,
			Metadata: domain.Metadata{
				"type":        doc.SourceType,
				"source_file": doc.Filename,
				"doc_id":      doc.ID,
			},
		})
	}
	return chunks
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
