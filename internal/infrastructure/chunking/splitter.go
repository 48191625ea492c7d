package chunking

import (
	"strings"
	"unicode"
)

// Splitter produces overlapping fixed-size chunks, preferring to break at a
// sentence or whitespace boundary near the chunk end so retrieval units stay
// readable.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.ChunkSize {
		return []string{string(runes)}
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.breakPoint(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - s.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// breakPoint walks back from the hard limit looking for a sentence end, then
// any whitespace, within the last quarter of the window.
func (s *Splitter) breakPoint(runes []rune, start, limit int) int {
	minBreak := limit - s.ChunkSize/4
	if minBreak < start+1 {
		minBreak = start + 1
	}

	for i := limit - 1; i >= minBreak; i-- {
		switch runes[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	for i := limit - 1; i >= minBreak; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return limit
}
