package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medkit-ai/medrag/internal/core/domain"
	"github.com/medkit-ai/medrag/internal/core/ports"
)

type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	collection domain.Collection,
	body io.Reader,
) (*domain.Document, error) {
	if collection == "" {
		collection = domain.CollectionText
	}
	if !collection.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document",
			fmt.Errorf("unknown collection %q", collection))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s/%s/%s_%s", id[:2], id[2:4], id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Collection:  collection,
		SourceType:  classifySourceType(filename, collection),
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return doc, nil
}

// classifySourceType tags a document with the audience/type label retrieval
// filters on. Filename conventions decide; the default is patient-facing.
func classifySourceType(filename string, collection domain.Collection) string {
	switch collection {
	case domain.CollectionTable:
		return "table_rows"
	case domain.CollectionImage:
		return "image"
	}

	lower := strings.ToLower(filename)
	switch {
	case strings.Contains(lower, "glossary"):
		return "dataset_glossary"
	case strings.Contains(lower, "doctor"), strings.Contains(lower, "clinical"):
		return "doctor_pdf"
	default:
		return "patient_pdf"
	}
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
