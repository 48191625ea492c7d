package domain

// Source is a trimmed evidence snippet attached to an answer.
type Source struct {
	Content   string   `json:"content"`
	Metadata  Metadata `json:"metadata,omitempty"`
	Relevance float64  `json:"relevance_score"`
}

// Telemetry makes degraded pipeline stages observable to callers.
type Telemetry struct {
	DenseHits       int   `json:"dense_hits"`
	SparseHits      int   `json:"sparse_hits"`
	FusedCandidates int   `json:"fused_candidates"`
	NoiseDropped    int   `json:"noise_dropped"`
	RerankAttempted bool  `json:"rerank_attempted"`
	DurationMillis  int64 `json:"duration_ms"`
}

// Answer is the only output of the query pipeline. Degraded paths return a
// well-formed Answer, never an error.
type Answer struct {
	Text       string     `json:"text"`
	Sources    []Source   `json:"sources"`
	Confidence float64    `json:"confidence"`
	NoAnswer   bool       `json:"no_answer"`
	Reranked   bool       `json:"reranked"`
	Model      string     `json:"model,omitempty"`
	Telemetry  *Telemetry `json:"telemetry,omitempty"`
}
