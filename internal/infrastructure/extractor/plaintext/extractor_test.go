package plaintext

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

type storageFake map[string][]byte

func (s storageFake) Save(context.Context, string, io.Reader) error { return nil }

func (s storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s[key])), nil
}

func (s storageFake) List(context.Context) ([]string, error) { return nil, nil }

func TestExtractNormalizesBOMAndLineEndings(t *testing.T) {
	storage := storageFake{"faq.txt": []byte("\ufeffQ1. 景品類とは\r\nA. 顧客誘引の手段\rです。\r\n")}

	got, err := NewExtractor(storage).Extract(context.Background(), domain.SourceDocument{Key: "faq.txt", Name: "faq.txt"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := "Q1. 景品類とは\nA. 顧客誘引の手段\nです。"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestExtractRejectsInvalidUTF8(t *testing.T) {
	storage := storageFake{"bin.txt": {0xff, 0xfe, 0x00}}

	_, err := NewExtractor(storage).Extract(context.Background(), domain.SourceDocument{Key: "bin.txt", Name: "bin.txt"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
