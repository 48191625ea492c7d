package usecase

import (
	"fmt"
	"strings"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

const snippetRunes = 200

// citationKey picks the best available source identifier: explicit citation
// field, then source file, then dataset/document id, then a generic index.
func citationKey(md domain.Metadata, index int) string {
	for _, key := range []string{"citation", "source_file", "source", "dataset_id", "doc_id"} {
		if v := strings.TrimSpace(md.Get(key)); v != "" {
			return v
		}
	}
	return fmt.Sprintf("source %d", index+1)
}

// hasCitationMarker reports whether the answer already references one of the
// final sources by its bracketed key, or carries a citations block.
func hasCitationMarker(text string, sources []domain.Source) bool {
	if strings.Contains(text, "Citations:") {
		return true
	}
	for i, source := range sources {
		if strings.Contains(text, "["+citationKey(source.Metadata, i)+"]") {
			return true
		}
	}
	return false
}

// appendCitations guarantees a non-empty answer surfaces its evidence: if no
// citation marker is present a citations block is appended, one line per
// source with its key and a short snippet.
func appendCitations(text string, sources []domain.Source) string {
	if len(sources) == 0 || hasCitationMarker(text, sources) {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\nCitations:\n")
	for i, source := range sources {
		fmt.Fprintf(&b, "- [%s] %s\n", citationKey(source.Metadata, i), snippet(source.Content))
	}
	return strings.TrimSpace(b.String())
}

func snippet(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= snippetRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:snippetRunes])) + "..."
}
