// Package extractor turns stored source documents into indexable text units.
// Free-text formats yield one unit holding the whole document; tabular
// formats yield one unit per data row so each row is retrievable on its own.
package extractor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/medkit-ai/medrag/internal/core/domain"
	"github.com/medkit-ai/medrag/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) ([]string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}

	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".pdf":
		text, err := extractPDF(raw)
		if err != nil {
			return nil, err
		}
		return singleUnit(text), nil
	case ".xlsx", ".xlsm":
		return extractExcelRows(raw)
	case ".csv":
		return extractCSVRows(raw)
	default:
		if !utf8.Valid(raw) {
			return nil, domain.WrapError(domain.ErrInvalidInput, "extract",
				fmt.Errorf("unsupported binary format: %s", doc.Filename))
		}
		return singleUnit(string(raw)), nil
	}
}

func singleUnit(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return []string{text}
}

// rowText renders one table row against its header as "col: value | col:
// value", skipping blank cells. Rows serialized this way embed and match
// well without any table-aware model.
func rowText(header, row []string) string {
	parts := make([]string, 0, len(row))
	for i, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		name := fmt.Sprintf("col%d", i+1)
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			name = strings.TrimSpace(header[i])
		}
		parts = append(parts, name+": "+cell)
	}
	return strings.Join(parts, " | ")
}
