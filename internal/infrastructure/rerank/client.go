// Package rerank provides an HTTP client for a text-embeddings-inference
// style cross-encoder endpoint.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(baseURL, model string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Score returns one raw cross-encoder logit per document, aligned by index
// with the input slice. Raw scores are unbounded; the pipeline rescales them.
func (c *Client) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"query": query,
		"texts": documents,
	}
	if c.model != "" {
		reqBody["model"] = c.model
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUnavailable, "rerank request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			return nil, domain.WrapError(domain.ErrUnavailable, "rerank", fmt.Errorf("status %s", resp.Status))
		}
		return nil, domain.WrapError(domain.ErrUnavailable, "rerank", fmt.Errorf("status %s: %s", resp.Status, msg))
	}

	var results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	scores := make([]float64, len(documents))
	seen := make([]bool, len(documents))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, fmt.Errorf("rerank response index %d out of range", r.Index)
		}
		scores[r.Index] = r.Score
		seen[r.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("rerank response missing score for document %d", i)
		}
	}
	return scores, nil
}
