package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	answersTotal       *prometheus.CounterVec
	rerankTotal        *prometheus.CounterVec
	retrievalHitTotal  *prometheus.CounterVec
	noContextTotal     *prometheus.CounterVec
	retrievedChunks    *prometheus.HistogramVec
	pipelineDuration   *prometheus.HistogramVec
	noiseDroppedTotal *prometheus.CounterVec
	answerConfidence  *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medrag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "medrag",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "medrag",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medrag",
			Subsystem: "pipeline",
			Name:      "answers_total",
			Help:      "Total answered queries by synthesis outcome.",
		},
		[]string{"service", "outcome"},
	)
	rerankTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medrag",
			Subsystem: "pipeline",
			Name:      "rerank_total",
			Help:      "Total rerank attempts by result.",
		},
		[]string{"service", "result"},
	)
	retrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medrag",
			Subsystem: "pipeline",
			Name:      "retrieval_hit_total",
			Help:      "Total queries with at least one retrieved source.",
		},
		[]string{"service"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medrag",
			Subsystem: "pipeline",
			Name:      "no_context_total",
			Help:      "Total queries without retrieved sources.",
		},
		[]string{"service"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "medrag",
			Subsystem: "pipeline",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per answered query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	pipelineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "medrag",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "End-to-end query pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	noiseDroppedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medrag",
			Subsystem: "pipeline",
			Name:      "noise_dropped_total",
			Help:      "Total candidates dropped by the noise denylist.",
		},
		[]string{"service"},
	)
	answerConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "medrag",
			Subsystem: "pipeline",
			Name:      "answer_confidence",
			Help:      "Distribution of top-candidate confidence per query.",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.25, 0.3, 0.5, 0.7, 0.9, 1},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		answersTotal,
		rerankTotal,
		retrievalHitTotal,
		noContextTotal,
		retrievedChunks,
		pipelineDuration,
		noiseDroppedTotal,
		answerConfidence,
	)

	return &HTTPServerMetrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		answersTotal:      answersTotal,
		rerankTotal:       rerankTotal,
		retrievalHitTotal: retrievalHitTotal,
		noContextTotal:    noContextTotal,
		retrievedChunks:   retrievedChunks,
		pipelineDuration:  pipelineDuration,
		noiseDroppedTotal: noiseDroppedTotal,
		answerConfidence:  answerConfidence,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

// RecordAnswer records one completed query pipeline run. Outcome is one of
// "generated", "extracted", "no_answer", "gated".
func (m *HTTPServerMetrics) RecordAnswer(service, outcome string, sourceCount int, confidence float64, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.answersTotal.WithLabelValues(service, outcome).Inc()
	m.retrievedChunks.WithLabelValues(service).Observe(float64(sourceCount))
	m.pipelineDuration.WithLabelValues(service).Observe(duration.Seconds())
	m.answerConfidence.WithLabelValues(service).Observe(confidence)

	if sourceCount > 0 {
		m.retrievalHitTotal.WithLabelValues(service).Inc()
		return
	}
	m.noContextTotal.WithLabelValues(service).Inc()
}

// RecordRerank records the outcome of one rerank attempt. Result is one of
// "applied", "fallback", "skipped".
func (m *HTTPServerMetrics) RecordRerank(service, result string) {
	if result == "" {
		result = "unknown"
	}
	m.rerankTotal.WithLabelValues(service, result).Inc()
}

func (m *HTTPServerMetrics) RecordNoiseDropped(service string, dropped int) {
	if dropped <= 0 {
		return
	}
	m.noiseDroppedTotal.WithLabelValues(service).Add(float64(dropped))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
