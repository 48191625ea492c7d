package domain

// Modality tags which retrieval path produced a candidate. Raw scores are
// comparable within one modality only; fusion normalizes before combining.
type Modality string

const (
	ModalityDense  Modality = "dense"
	ModalitySparse Modality = "sparse"
)

// VectorHit is one raw hit from the vector store collaborator.
type VectorHit struct {
	ID       string
	Document string
	Metadata Metadata
	Distance float64
}

// Candidate is a single retrieval hit before fusion.
type Candidate struct {
	ID       string   `json:"id"`
	Document string   `json:"document"`
	Metadata Metadata `json:"metadata,omitempty"`
	Score    float64  `json:"score"`
	Modality Modality `json:"source_modality"`
}

// FusedCandidate carries the normalized per-modality scores and their weighted
// combination. Identity is unique within a fused set; a candidate returned by
// both modalities is combined, never duplicated.
type FusedCandidate struct {
	ID         string   `json:"id"`
	Document   string   `json:"document"`
	Metadata   Metadata `json:"metadata,omitempty"`
	FusedScore float64  `json:"fused_score"`
	DenseNorm  float64  `json:"dense_score_norm"`
	SparseNorm float64  `json:"sparse_score_norm"`

	// DenseRaw is the unnormalized dense similarity (1/(1+distance)), kept so
	// the confidence gate can use it directly when no reranker runs.
	DenseRaw  float64 `json:"-"`
	HasDense  bool    `json:"-"`
	HasSparse bool    `json:"-"`
}

// FinalCandidate is a fused candidate after the optional rerank stage. When
// Reranked is true, RerankScore supersedes FusedScore for ordering.
type FinalCandidate struct {
	FusedCandidate
	RerankScore float64 `json:"rerank_score,omitempty"`
	Reranked    bool    `json:"reranked"`
	// Relevance is normalized into (0,1] and feeds both the per-source
	// relevance field and the confidence gate.
	Relevance float64 `json:"relevance_score"`
}

// RetrievalResult is the ordered final candidate list, at most K entries.
type RetrievalResult struct {
	Candidates []FinalCandidate
	Reranked   bool
}
