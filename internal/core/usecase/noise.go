package usecase

import (
	"strings"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

// noiseFilter drops candidates that leak synthetic training artifacts into
// retrieval: denylisted metadata types/sources and chat-transcript text
// markers.
type noiseFilter struct {
	denyTypes   map[string]struct{}
	denySources map[string]struct{}
	markers     []string
}

func newNoiseFilter(rules domain.NoiseRules) *noiseFilter {
	f := &noiseFilter{
		denyTypes:   make(map[string]struct{}, len(rules.DenyTypes)),
		denySources: make(map[string]struct{}, len(rules.DenySources)),
		markers:     make([]string, 0, len(rules.TextMarkers)),
	}
	for _, t := range rules.DenyTypes {
		f.denyTypes[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	for _, s := range rules.DenySources {
		f.denySources[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	for _, m := range rules.TextMarkers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			f.markers = append(f.markers, m)
		}
	}
	return f
}

func (f *noiseFilter) isNoise(text string, md domain.Metadata) bool {
	if t := strings.ToLower(md.Get("type")); t != "" {
		if _, denied := f.denyTypes[t]; denied {
			return true
		}
	}
	if s := strings.ToLower(md.Get("source")); s != "" {
		if _, denied := f.denySources[s]; denied {
			return true
		}
	}
	lower := strings.ToLower(text)
	for _, marker := range f.markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// filterCandidates returns the clean subset and the number dropped. Filtering
// never empties a non-empty input: when every candidate would be dropped the
// unfiltered set is returned instead, so over-aggressive rules cannot produce
// a spurious no-answer.
func (f *noiseFilter) filterCandidates(in []domain.Candidate) ([]domain.Candidate, int) {
	if len(in) == 0 {
		return in, 0
	}
	out := make([]domain.Candidate, 0, len(in))
	for _, c := range in {
		if f.isNoise(c.Document, c.Metadata) {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return in, 0
	}
	return out, len(in) - len(out)
}

func (f *noiseFilter) filterFused(in []domain.FusedCandidate) ([]domain.FusedCandidate, int) {
	if len(in) == 0 {
		return in, 0
	}
	out := make([]domain.FusedCandidate, 0, len(in))
	for _, c := range in {
		if f.isNoise(c.Document, c.Metadata) {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return in, 0
	}
	return out, len(in) - len(out)
}
