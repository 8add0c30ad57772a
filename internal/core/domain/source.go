package domain

import (
	"path/filepath"
	"strings"
)

// SourceDocument is one file of the legal corpus awaiting indexing.
type SourceDocument struct {
	Key  string
	Name string
}

// Ext returns the lowercase file extension of the document, without the dot.
func (d SourceDocument) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(d.Key)), ".")
}

// IndexReport summarizes one indexing run.
type IndexReport struct {
	Documents int
	Chunks    int
	Skipped   []string
	Untagged  []string
}
