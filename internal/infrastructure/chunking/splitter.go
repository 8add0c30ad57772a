package chunking

import "strings"

const (
	DefaultChunkSize    = 1500
	DefaultChunkOverlap = 300
)

// Splitter cuts text into rune windows of ChunkSize that overlap by Overlap.
// A window end is moved back to the nearest sentence or line break when one
// exists in its last fifth.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
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
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	out := make([]string, 0, len(runes)/s.ChunkSize+1)
	for start := 0; start < len(runes); {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end)
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

func breakPoint(runes []rune, start, end int) int {
	floor := end - (end-start)/5
	for i := end - 1; i >= floor; i-- {
		if isBreak(runes[i]) {
			return i + 1
		}
	}
	return end
}

func isBreak(r rune) bool {
	switch r {
	case '\n', '。', '．', '.', '!', '?', '！', '？':
		return true
	default:
		return false
	}
}
