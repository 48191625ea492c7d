package usecase

import (
	"sort"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

// minMaxNormalize rescales a score map to [0,1]. A zero-range map (single
// candidate or identical scores) maps positive scores to 1 so a lone strong
// hit is not zeroed out.
func minMaxNormalize(scores map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	var minScore, maxScore float64
	first := true
	for _, v := range scores {
		if first {
			minScore, maxScore = v, v
			first = false
			continue
		}
		if v < minScore {
			minScore = v
		}
		if v > maxScore {
			maxScore = v
		}
	}

	scoreRange := maxScore - minScore
	for id, v := range scores {
		if scoreRange <= 0 {
			if v > 0 {
				out[id] = 1
			} else {
				out[id] = 0
			}
			continue
		}
		out[id] = (v - minScore) / scoreRange
	}
	return out
}

// fuseCandidates combines dense and sparse result sets over the union of
// candidate ids. Each modality is min-max normalized independently; a
// candidate missing from a modality contributes 0 for it rather than being
// excluded. Document text and metadata resolve dense-first since the vector
// payload is richer. Ordering is fused score descending with lexicographic id
// tie-break.
func fuseCandidates(dense, sparse []domain.Candidate, alpha float64) []domain.FusedCandidate {
	if alpha < 0 || alpha > 1 {
		alpha = 0.7
	}

	denseByID := make(map[string]domain.Candidate, len(dense))
	denseScores := make(map[string]float64, len(dense))
	for _, c := range dense {
		if prev, ok := denseScores[c.ID]; !ok || c.Score > prev {
			denseScores[c.ID] = c.Score
			denseByID[c.ID] = c
		}
	}

	sparseByID := make(map[string]domain.Candidate, len(sparse))
	sparseScores := make(map[string]float64, len(sparse))
	for _, c := range sparse {
		if prev, ok := sparseScores[c.ID]; !ok || c.Score > prev {
			sparseScores[c.ID] = c.Score
			sparseByID[c.ID] = c
		}
	}

	denseNorm := minMaxNormalize(denseScores)
	sparseNorm := minMaxNormalize(sparseScores)

	union := make(map[string]struct{}, len(denseScores)+len(sparseScores))
	for id := range denseScores {
		union[id] = struct{}{}
	}
	for id := range sparseScores {
		union[id] = struct{}{}
	}

	out := make([]domain.FusedCandidate, 0, len(union))
	for id := range union {
		fc := domain.FusedCandidate{
			ID:         id,
			DenseNorm:  denseNorm[id],
			SparseNorm: sparseNorm[id],
		}
		if dc, ok := denseByID[id]; ok {
			fc.HasDense = true
			fc.DenseRaw = dc.Score
			fc.Document = dc.Document
			fc.Metadata = dc.Metadata
		}
		if sc, ok := sparseByID[id]; ok {
			fc.HasSparse = true
			if fc.Document == "" {
				fc.Document = sc.Document
			}
			if fc.Metadata == nil {
				fc.Metadata = sc.Metadata
			}
		}
		fc.FusedScore = alpha*fc.DenseNorm + (1-alpha)*fc.SparseNorm
		out = append(out, fc)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		return out[i].ID < out[j].ID
	})
	return out
}
