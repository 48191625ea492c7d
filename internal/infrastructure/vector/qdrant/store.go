package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

// Store talks to a qdrant instance over its HTTP API. Each modality maps to
// its own collection; callers address collections by modality and the store
// resolves the physical name.
type Store struct {
	baseURL     string
	collections map[domain.Collection]string
	httpClient  *http.Client

	ensureMu sync.Mutex
	ensured  map[string]int
}

type Collections struct {
	Text  string
	Table string
	Image string
}

func New(baseURL string, collections Collections) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		collections: map[domain.Collection]string{
			domain.CollectionText:  collections.Text,
			domain.CollectionTable: collections.Table,
			domain.CollectionImage: collections.Image,
		},
		httpClient: &http.Client{Timeout: 60 * time.Second},
		ensured:    make(map[string]int),
	}
}

// StatusError carries the HTTP status of a failed qdrant call so callers can
// distinguish rejected requests from transport failures.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("qdrant status %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("qdrant status %s", e.Status)
}

func (s *Store) Query(
	ctx context.Context,
	collection domain.Collection,
	vector []float32,
	n int,
	filter *domain.MetadataFilter,
) ([]domain.VectorHit, error) {
	name, err := s.collectionName(collection)
	if err != nil {
		return nil, err
	}

	hits, err := s.search(ctx, name, vector, n, filter)
	if err == nil || filter == nil {
		return hits, err
	}

	// A store that rejects the filter payload should still serve the query:
	// retry unfiltered rather than losing the whole modality.
	var statusErr *StatusError
	if errors.As(err, &statusErr) && filterRejected(statusErr.StatusCode) {
		slog.Warn("qdrant_filter_rejected_retrying_unfiltered",
			"collection", name,
			"filter_key", filter.Key,
			"status", statusErr.Status,
		)
		return s.search(ctx, name, vector, n, nil)
	}
	return nil, err
}

func (s *Store) search(
	ctx context.Context,
	collection string,
	vector []float32,
	n int,
	filter *domain.MetadataFilter,
) ([]domain.VectorHit, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        n,
		"with_payload": true,
	}
	if filter != nil {
		reqBody["filter"] = map[string]any{
			"must": []map[string]any{
				{
					"key": filter.Key,
					"match": map[string]any{
						"value": filter.Value,
					},
				},
			},
		}
	}

	var searchResp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", s.baseURL, collection)
	if err := s.postJSON(ctx, url, reqBody, &searchResp); err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	out := make([]domain.VectorHit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		id := getStringPayload(r.Payload, "chunk_id")
		if id == "" {
			id = fmt.Sprintf("%v", r.ID)
		}
		out = append(out, domain.VectorHit{
			ID:       id,
			Document: getStringPayload(r.Payload, "text"),
			Metadata: payloadMetadata(r.Payload),
			// Cosine similarity in [0,1] back to a distance; the pipeline
			// applies its own 1/(1+distance) transform.
			Distance: 1 - r.Score,
		})
	}
	return out, nil
}

// GetAll scrolls a full collection. Used to rebuild the lexical index at
// startup, so it pages rather than trusting a single oversized response.
func (s *Store) GetAll(ctx context.Context, collection domain.Collection) ([]domain.Chunk, error) {
	name, err := s.collectionName(collection)
	if err != nil {
		return nil, err
	}

	var (
		chunks []domain.Chunk
		offset any
	)
	for {
		reqBody := map[string]any{
			"limit":        256,
			"with_payload": true,
			"with_vector":  false,
		}
		if offset != nil {
			reqBody["offset"] = offset
		}

		var scrollResp struct {
			Result struct {
				Points []struct {
					ID      any            `json:"id"`
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		url := fmt.Sprintf("%s/collections/%s/points/scroll", s.baseURL, name)
		if err := s.postJSON(ctx, url, reqBody, &scrollResp); err != nil {
			return nil, fmt.Errorf("qdrant scroll: %w", err)
		}

		for _, p := range scrollResp.Result.Points {
			id := getStringPayload(p.Payload, "chunk_id")
			if id == "" {
				id = fmt.Sprintf("%v", p.ID)
			}
			chunks = append(chunks, domain.Chunk{
				ID:         id,
				Text:       getStringPayload(p.Payload, "text"),
				Collection: collection,
				Metadata:   payloadMetadata(p.Payload),
			})
		}

		offset = scrollResp.Result.NextPageOffset
		if offset == nil || len(scrollResp.Result.Points) == 0 {
			break
		}
	}
	return chunks, nil
}

func (s *Store) IndexChunks(
	ctx context.Context,
	doc *domain.Document,
	chunks []domain.Chunk,
	vectors [][]float32,
) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d != %d", len(chunks), len(vectors))
	}

	collection := chunks[0].Collection
	name, err := s.collectionName(collection)
	if err != nil {
		return err
	}
	if err := s.ensureCollection(ctx, name, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		payload := map[string]any{
			"chunk_id":    chunk.ID,
			"text":        chunk.Text,
			"chunk_index": i,
		}
		if doc != nil {
			payload["doc_id"] = doc.ID
			payload["source_file"] = doc.Filename
		}
		for k, v := range chunk.Metadata {
			payload[k] = v
		}
		points = append(points, point{
			ID:      uuid.NewString(),
			Vector:  vectors[i],
			Payload: payload,
		})
	}

	reqBody := map[string]any{"points": points}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", s.baseURL, name)
	if err := s.putJSON(ctx, url, reqBody); err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context, collection domain.Collection) (int, error) {
	name, err := s.collectionName(collection)
	if err != nil {
		return 0, err
	}

	var countResp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/count", s.baseURL, name)
	if err := s.postJSON(ctx, url, map[string]any{"exact": true}, &countResp); err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return countResp.Result.Count, nil
}

func (s *Store) collectionName(collection domain.Collection) (string, error) {
	name, ok := s.collections[collection]
	if !ok || name == "" {
		return "", fmt.Errorf("unknown collection %q", collection)
	}
	return name, nil
}

func (s *Store) ensureCollection(ctx context.Context, name string, vectorSize int) error {
	s.ensureMu.Lock()
	if size, ok := s.ensured[name]; ok && size == vectorSize {
		s.ensureMu.Unlock()
		return nil
	}
	s.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	url := fmt.Sprintf("%s/collections/%s", s.baseURL, name)
	err := s.putJSON(ctx, url, reqBody)
	if err != nil {
		// 409 means the collection already exists (depends on version/config).
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusConflict {
			return fmt.Errorf("qdrant ensure collection: %w", err)
		}
	}

	s.ensureMu.Lock()
	s.ensured[name] = vectorSize
	s.ensureMu.Unlock()
	return nil
}

func (s *Store) postJSON(ctx context.Context, url string, reqBody any, out any) error {
	return s.doJSON(ctx, http.MethodPost, url, reqBody, out)
}

func (s *Store) putJSON(ctx context.Context, url string, reqBody any) error {
	return s.doJSON(ctx, http.MethodPut, url, reqBody, nil)
}

func (s *Store) doJSON(ctx context.Context, method, url string, reqBody, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func filterRejected(statusCode int) bool {
	return statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity
}

func payloadMetadata(payload map[string]any) domain.Metadata {
	if len(payload) == 0 {
		return nil
	}
	md := make(domain.Metadata, len(payload))
	for k, v := range payload {
		switch k {
		case "text", "chunk_id", "chunk_index":
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		md[k] = s
	}
	if len(md) == 0 {
		return nil
	}
	return md
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
