package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitterDefaults(t *testing.T) {
	s := NewSplitter(0, -1)
	if s.ChunkSize != DefaultChunkSize || s.Overlap != 0 {
		t.Fatalf("unexpected defaults %+v", s)
	}
	if s := NewSplitter(100, 100); s.Overlap != 25 {
		t.Fatalf("expected overlap clamped to a quarter, got %d", s.Overlap)
	}
}

func TestSplitOverlapsWindows(t *testing.T) {
	text := strings.Repeat("あ", 25)
	parts := NewSplitter(10, 3).Split(text)

	if len(parts) != 4 {
		t.Fatalf("expected 4 chunks, got %d: %v", len(parts), parts)
	}
	for i, p := range parts[:len(parts)-1] {
		if utf8.RuneCountInString(p) != 10 {
			t.Fatalf("chunk %d: expected 10 runes, got %d", i, utf8.RuneCountInString(p))
		}
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	text := "第一条は定義を定める。第二条は適用範囲を定める。"
	parts := NewSplitter(12, 0).Split(text)

	if len(parts) == 0 || parts[0] != "第一条は定義を定める。" {
		t.Fatalf("expected first chunk to end at the sentence break, got %v", parts)
	}
}

func TestSplitEmptyText(t *testing.T) {
	if parts := NewSplitter(10, 2).Split(""); parts != nil {
		t.Fatalf("expected nil, got %v", parts)
	}
	if parts := NewSplitter(10, 2).Split("   "); len(parts) != 0 {
		t.Fatalf("expected no chunks for whitespace, got %v", parts)
	}
}
