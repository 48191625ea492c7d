// Package lexical provides the in-memory keyword index used for the sparse
// retrieval leg. The index is built once from the indexed corpus at startup
// and is read-only afterwards.
package lexical

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

type indexedDoc struct {
	text     string
	metadata domain.Metadata
}

type Index struct {
	index bleve.Index
	docs  map[string]indexedDoc
}

type indexEntry struct {
	Content string `json:"content"`
}

// BuildIndex indexes the given chunks into a fresh memory-only index. An
// empty chunk list yields a working zero-size index so the pipeline can
// degrade to dense-only retrieval without nil checks.
func BuildIndex(chunks []domain.Chunk) (*Index, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) keeps exact
	// medical vocabulary matchable; stemming would fold distinct terms.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("create lexical index: %w", err)
	}

	docs := make(map[string]indexedDoc, len(chunks))
	batch := index.NewBatch()
	for _, chunk := range chunks {
		if chunk.ID == "" || strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		if err := batch.Index(chunk.ID, indexEntry{Content: chunk.Text}); err != nil {
			return nil, fmt.Errorf("index chunk %s: %w", chunk.ID, err)
		}
		docs[chunk.ID] = indexedDoc{text: chunk.Text, metadata: chunk.Metadata.Clone()}
	}
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return nil, fmt.Errorf("commit lexical batch: %w", err)
		}
	}

	return &Index{index: index, docs: docs}, nil
}

// Search runs a match query and returns sparse candidates with the raw
// BM25-style scores bleve assigns. Scores are only comparable within one
// result list; the fusion stage normalizes them.
func (i *Index) Search(query string, n int) ([]domain.Candidate, error) {
	if len(i.docs) == 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = n
	results, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	out := make([]domain.Candidate, 0, len(results.Hits))
	for _, hit := range results.Hits {
		doc, ok := i.docs[hit.ID]
		if !ok {
			continue
		}
		out = append(out, domain.Candidate{
			ID:       hit.ID,
			Document: doc.text,
			Metadata: doc.metadata,
			Score:    hit.Score,
			Modality: domain.ModalitySparse,
		})
	}
	return out, nil
}

func (i *Index) Size() int {
	return len(i.docs)
}

func (i *Index) Close() error {
	return i.index.Close()
}
