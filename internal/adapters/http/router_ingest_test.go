package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

func multipartUpload(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestRouter(&answerFake{answer: &domain.Answer{}})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestUploadDocumentSuccess(t *testing.T) {
	handler := newTestRouter(&answerFake{answer: &domain.Answer{}})

	body, contentType := multipartUpload(t, map[string]string{"collection": "table"}, "rows.csv", "a,b\n1,2")
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}

	var doc map[string]any
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if doc["id"] != "doc-1" || doc["collection"] != "table" || doc["filename"] != "rows.csv" {
		t.Fatalf("unexpected response: %+v", doc)
	}
}

func TestUploadDocumentMissingMultipartField(t *testing.T) {
	handler := newTestRouter(&answerFake{answer: &domain.Answer{}})

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadDocumentInvalidCollectionMapsTo400(t *testing.T) {
	router := NewRouter(
		configForTests(),
		&answerFake{answer: &domain.Answer{}},
		&ingestFake{err: domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("unknown collection"))},
		&docsFake{},
		&statsFake{stats: &domain.CorpusStats{}},
		nil,
	)
	handler := router.Handler()

	body, contentType := multipartUpload(t, map[string]string{"collection": "bogus"}, "a.txt", "x")
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetDocumentByIDReturns404ForNotFound(t *testing.T) {
	router := NewRouter(
		configForTests(),
		&answerFake{answer: &domain.Answer{}},
		&ingestFake{doc: &domain.Document{ID: "doc-1"}},
		&docsFake{err: domain.WrapError(domain.ErrDocumentNotFound, "get", errors.New("id=missing"))},
		&statsFake{stats: &domain.CorpusStats{}},
		nil,
	)
	handler := router.Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}
