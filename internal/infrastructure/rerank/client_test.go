package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

func TestScoreAlignsByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var body struct {
			Query string   `json:"query"`
			Texts []string `json:"texts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Query != "hypertension treatment" || len(body.Texts) != 2 {
			t.Fatalf("unexpected request: %+v", body)
		}
		// TEI returns results sorted by score, not input order.
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"index": 1, "score": 2.5},
			{"index": 0, "score": -1.0},
		})
	}))
	defer server.Close()

	client := New(server.URL, "BAAI/bge-reranker-base")
	scores, err := client.Score(context.Background(), "hypertension treatment", []string{"docA", "docB"})
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if scores[0] != -1.0 || scores[1] != 2.5 {
		t.Fatalf("scores not aligned by index: %v", scores)
	}
}

func TestScoreMissingIndexIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{{"index": 0, "score": 1.0}})
	}))
	defer server.Close()

	client := New(server.URL, "")
	_, err := client.Score(context.Background(), "q", []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error for incomplete response")
	}
}

func TestScoreServiceFailureIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, "")
	_, err := client.Score(context.Background(), "q", []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsKind(err, domain.ErrUnavailable) {
		t.Fatalf("expected unavailable kind, got %v", err)
	}
}

func TestScoreEmptyDocuments(t *testing.T) {
	client := New("http://example.invalid", "")
	scores, err := client.Score(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("expected nil error for empty input, got %v", err)
	}
	if scores != nil {
		t.Fatalf("expected nil scores, got %v", scores)
	}
}
