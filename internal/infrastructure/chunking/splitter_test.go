package chunking

import (
	"strings"
	"testing"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	s := NewSplitter(100, 20)
	chunks := s.Split("Hypertension is high blood pressure.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter(100, 20)
	if chunks := s.Split("   "); chunks != nil {
		t.Fatalf("expected nil for blank input, got %v", chunks)
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	s := NewSplitter(50, 10)
	text := "First sentence about blood pressure. Second sentence about diabetes care and more words here."
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], ".") {
		t.Fatalf("expected first chunk to end at sentence boundary, got %q", chunks[0])
	}
}

func TestSplitCoversWholeText(t *testing.T) {
	s := NewSplitter(40, 10)
	text := strings.Repeat("word ", 60)
	chunks := s.Split(text)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	last := chunks[len(chunks)-1]
	if !strings.HasSuffix(strings.TrimSpace(text), last) {
		t.Fatalf("last chunk must end the text, got %q", last)
	}
	for _, c := range chunks {
		if len([]rune(c)) > 40 {
			t.Fatalf("chunk exceeds size: %q", c)
		}
	}
}
