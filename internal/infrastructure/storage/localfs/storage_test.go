package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveOpenList(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"faq/景品表示法Q&A.txt", "law.pdf"} {
		if err := s.Save(ctx, key, strings.NewReader("body "+key)); err != nil {
			t.Fatalf("Save(%s) error = %v", key, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, ".DS_Store"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write hidden file: %v", err)
	}

	keys, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "faq/景品表示法Q&A.txt" || keys[1] != "law.pdf" {
		t.Fatalf("unexpected keys %v", keys)
	}

	rc, err := s.Open(ctx, keys[1])
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "body law.pdf" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.Open(context.Background(), "../etc/passwd"); err == nil {
		t.Fatalf("expected error for key escaping the base dir")
	}
}
