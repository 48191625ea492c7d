package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/medkit-ai/medrag/internal/core/domain"
)

const extractivePreamble = "Based on the available healthcare information:"

// Placeholder strings some generation backends return instead of failing.
// A response containing one is treated as "no generation available".
var placeholderMarkers = []string{
	"[local fallback",
	"[placeholder",
	"[no model",
	"i cannot access external",
}

func buildPrompt(question string, docs []string) string {
	var b strings.Builder
	b.WriteString("You are a healthcare information assistant. Answer the question using only the context below. ")
	b.WriteString("If the context does not contain the answer, say you do not know.\n\nContext:\n")
	for i, doc := range docs {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, doc)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// isDegenerateGeneration recognizes empty output, placeholder markers, and
// prompt echo (model returning its own instructions).
func isDegenerateGeneration(answer, prompt string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return true
	}
	lower := strings.ToLower(answer)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	if strings.Contains(answer, "Context:") && strings.Contains(answer, "Question:") {
		return true
	}
	return answer == strings.TrimSpace(prompt)
}

// queryTerms extracts lowercase question words longer than 3 characters,
// deduplicated, in order of first appearance.
func queryTerms(question string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, token := range tokenizeLower(question) {
		if len([]rune(token)) <= 3 {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		terms = append(terms, token)
	}
	return terms
}

func tokenizeLower(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// splitSentences breaks text at sentence punctuation and newlines, keeping
// the terminator with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	flush := func() {
		s := strings.TrimSpace(b.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}
	for _, r := range text {
		if r == '\n' {
			flush()
			continue
		}
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			flush()
		}
	}
	flush()
	return sentences
}

// selectSentences picks up to limit sentences containing any query term; when
// nothing matches it falls back to the document's leading sentences.
func selectSentences(text string, terms []string, limit int) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var selected []string
	for _, sentence := range sentences {
		if len(selected) >= limit {
			break
		}
		lower := strings.ToLower(sentence)
		for _, term := range terms {
			if strings.Contains(lower, term) {
				selected = append(selected, sentence)
				break
			}
		}
	}
	if len(selected) > 0 {
		return selected
	}
	if len(sentences) > limit {
		sentences = sentences[:limit]
	}
	return sentences
}

// extractiveAnswer assembles the fallback answer: matched sentences from the
// top documents, a per-source breakdown, and a related-conditions line.
func (uc *AnswerUseCase) extractiveAnswer(
	ctx context.Context,
	question string,
	docs []domain.FinalCandidate,
	sources []domain.Source,
) string {
	terms := queryTerms(question)

	var paragraph []string
	for _, doc := range docs {
		paragraph = append(paragraph, selectSentences(doc.Document, terms, 2)...)
	}

	var b strings.Builder
	b.WriteString(extractivePreamble)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(paragraph, " "))

	if len(sources) > 0 {
		b.WriteString("\n\nSupporting sources:\n")
		for i, source := range sources {
			fmt.Fprintf(&b, "- [%s] %s\n", citationKey(source.Metadata, i), snippet(source.Content))
		}
	}

	if related := uc.relatedConditions(ctx, docs); len(related) > 0 {
		b.WriteString("\nRelated conditions: ")
		b.WriteString(strings.Join(related, ", "))
		b.WriteString(".")
	}
	return strings.TrimSpace(b.String())
}

// relatedConditions gathers condition tags from the retrieved documents and,
// when a knowledge graph is wired, expands them with linked conditions. Graph
// failures degrade to metadata-only tags.
func (uc *AnswerUseCase) relatedConditions(ctx context.Context, docs []domain.FinalCandidate) []string {
	seen := make(map[string]struct{})
	var conditions []string
	add := func(c string) {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		conditions = append(conditions, c)
	}

	for _, doc := range docs {
		add(doc.Metadata.Get("condition"))
		add(doc.Metadata.Get("category"))
	}

	if uc.graph != nil {
		for _, condition := range append([]string(nil), conditions...) {
			related, err := uc.graph.Related(ctx, condition)
			if err != nil {
				slog.Warn("condition_graph_degraded", "condition", condition, "error", err)
				continue
			}
			for _, r := range related {
				add(r)
			}
		}
	}
	return conditions
}
