package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/medkit-ai/medrag/internal/config"
	"github.com/medkit-ai/medrag/internal/core/domain"
	"github.com/medkit-ai/medrag/internal/core/ports"
	"github.com/medkit-ai/medrag/internal/observability/metrics"
)

const (
	maxUploadBytes      = 64 << 20
	backpressureSlots   = 128
	backpressureTimeout = 100 * time.Millisecond
)

type Router struct {
	cfg     config.Config
	answer  ports.QuestionAnswerer
	ingest  ports.DocumentIngestor
	docs    ports.DocumentReader
	stats   ports.StatsReader
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	answer ports.QuestionAnswerer,
	ingest ports.DocumentIngestor,
	docs ports.DocumentReader,
	stats ports.StatsReader,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:     cfg,
		answer:  answer,
		ingest:  ingest,
		docs:    docs,
		stats:   stats,
		metrics: m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/health", rt.healthz)
	mux.HandleFunc("/v1/query", rt.answerQuery)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/stats", rt.corpusStats)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = backpressureMiddleware(handler, backpressureSlots, backpressureTimeout)
	handler = rateLimitMiddleware(handler, rt.cfg.RequestsPerSecond, rt.cfg.RequestBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Question string   `json:"question"`
	K        int      `json:"k"`
	Filter   *filter  `json:"filter"`
	Images   []string `json:"images"`
}

type filter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (rt *Router) answerQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	query := domain.Query{Text: req.Question, K: req.K, Images: req.Images}
	if req.Filter != nil && req.Filter.Key != "" {
		query.Filter = &domain.MetadataFilter{Key: req.Filter.Key, Value: req.Filter.Value}
	}

	start := time.Now()
	answer, err := rt.answer.Answer(r.Context(), query)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	rt.recordAnswerMetrics(answer, time.Since(start))
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) recordAnswerMetrics(answer *domain.Answer, duration time.Duration) {
	if rt.metrics == nil {
		return
	}

	outcome := "extracted"
	switch {
	case answer.NoAnswer && len(answer.Sources) == 0:
		outcome = "no_answer"
	case answer.NoAnswer:
		outcome = "gated"
	case answer.Model != "":
		outcome = "generated"
	}
	rt.metrics.RecordAnswer("api", outcome, len(answer.Sources), answer.Confidence, duration)

	if answer.Telemetry != nil {
		rt.metrics.RecordNoiseDropped("api", answer.Telemetry.NoiseDropped)
		switch {
		case answer.Reranked:
			rt.metrics.RecordRerank("api", "applied")
		case answer.Telemetry.RerankAttempted:
			rt.metrics.RecordRerank("api", "fallback")
		default:
			rt.metrics.RecordRerank("api", "skipped")
		}
	}
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	collection := domain.Collection(r.FormValue("collection"))

	doc, err := rt.ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		collection,
		file,
	)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) corpusStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	stats, err := rt.stats.Stats(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
