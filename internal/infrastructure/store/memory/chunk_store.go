package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

const snapshotVersion = 1

type snapshot struct {
	Version int            `json:"version"`
	Chunks  []domain.Chunk `json:"chunks"`
}

// ChunkStore serves an immutable corpus held in memory. Pools are shared
// read-only slices; callers must not mutate them.
type ChunkStore struct {
	all      []domain.Chunk
	byDomain map[string][]domain.Chunk
}

func NewChunkStore(chunks []domain.Chunk) *ChunkStore {
	all := append([]domain.Chunk(nil), chunks...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Ordinal < all[j].Ordinal })

	byDomain := make(map[string][]domain.Chunk)
	for _, c := range all {
		for _, d := range c.Domains {
			byDomain[d] = append(byDomain[d], c)
		}
	}
	return &ChunkStore{all: all, byDomain: byDomain}
}

// LoadSnapshot reads a corpus written by SnapshotWriter.
func LoadSnapshot(path string) (*ChunkStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode corpus snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported corpus snapshot version %d", snap.Version)
	}
	return NewChunkStore(snap.Chunks), nil
}

func (s *ChunkStore) GetPool(_ context.Context, domainID string) ([]domain.Chunk, error) {
	if domainID == "" {
		return s.all, nil
	}
	return s.byDomain[domainID], nil
}

func (s *ChunkStore) Len() int {
	return len(s.all)
}

// SnapshotWriter collects indexed chunks and writes them as one JSON file.
type SnapshotWriter struct {
	mu       sync.Mutex
	path     string
	bySource map[string][]domain.Chunk
}

func NewSnapshotWriter(path string) *SnapshotWriter {
	return &SnapshotWriter{path: path, bySource: make(map[string][]domain.Chunk)}
}

func (w *SnapshotWriter) ReplaceSource(_ context.Context, source string, chunks []domain.Chunk) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bySource[source] = append([]domain.Chunk(nil), chunks...)
	return nil
}

// Flush writes the snapshot atomically through a temp file.
func (w *SnapshotWriter) Flush() error {
	w.mu.Lock()
	all := make([]domain.Chunk, 0)
	for _, chunks := range w.bySource {
		all = append(all, chunks...)
	}
	w.mu.Unlock()
	sort.SliceStable(all, func(i, j int) bool { return all[i].Ordinal < all[j].Ordinal })

	raw, err := json.Marshal(snapshot{Version: snapshotVersion, Chunks: all})
	if err != nil {
		return fmt.Errorf("encode corpus snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write corpus snapshot: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("replace corpus snapshot: %w", err)
	}
	return nil
}
