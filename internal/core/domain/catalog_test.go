package domain

import "testing"

func TestNewCatalogValidates(t *testing.T) {
	if _, err := NewCatalog(nil); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty catalog, got %v", err)
	}
	if _, err := NewCatalog([]LegalDomain{{ID: "a"}, {ID: "a"}}); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
	c, err := NewCatalog([]LegalDomain{{ID: " a "}})
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	if d, ok := c.Lookup("a"); !ok || d.Label != "a" {
		t.Fatalf("expected trimmed id with default label, got %+v", d)
	}
}

func TestDefaultCatalogTagsAndLabels(t *testing.T) {
	c := DefaultCatalog()
	if len(c.Domains()) != 4 {
		t.Fatalf("expected 4 domains, got %d", len(c.Domains()))
	}

	tags := c.TagsForSource("不当景品類及び不当表示防止法.pdf")
	if len(tags) != 1 || tags[0] != "keihyouhou" {
		t.Fatalf("unexpected tags: %v", tags)
	}
	if tags := c.TagsForSource("readme.txt"); len(tags) != 0 {
		t.Fatalf("expected no tags, got %v", tags)
	}

	cases := map[string]string{
		"景品表示法Q&A.pdf":     "FAQ",
		"印紙税法施行令.pdf":      "施行規則・施行令",
		"資金決済に関する法律.pdf":  "資金決済法",
		"other-document.pdf": "other-document.pdf",
	}
	for source, want := range cases {
		if got := c.SourceLabel(source); got != want {
			t.Fatalf("label for %s: expected %q, got %q", source, want, got)
		}
	}
}

func TestErrorKindOf(t *testing.T) {
	cases := map[error]ErrorKind{
		WrapError(ErrInvalidDomain, "op", ErrInvalidInput): ErrorKindInvalidDomain,
		WrapError(ErrEmptyPool, "op", errTest):           ErrorKindEmptyPool,
		WrapError(ErrTemporary, "op", errTest):           ErrorKindTemporary,
		errTest:                                          ErrorKindInternalInconsistency,
	}
	for err, want := range cases {
		if got := ErrorKindOf(err); got != want {
			t.Fatalf("%v: expected %s, got %s", err, want, got)
		}
	}
	if ErrorKindOf(nil) != "" {
		t.Fatalf("expected empty kind for nil")
	}
}
