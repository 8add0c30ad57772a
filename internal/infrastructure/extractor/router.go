package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
	"github.com/junozone1110/faqbot-1/internal/core/ports"
)

// Router picks an extractor by file extension.
type Router struct {
	byExt map[string]ports.TextExtractor
}

func NewRouter() *Router {
	return &Router{byExt: make(map[string]ports.TextExtractor)}
}

// Register maps extensions such as "pdf" to extractor.
func (r *Router) Register(extractor ports.TextExtractor, exts ...string) *Router {
	for _, ext := range exts {
		r.byExt[strings.TrimPrefix(strings.ToLower(ext), ".")] = extractor
	}
	return r
}

func (r *Router) Extract(ctx context.Context, doc domain.SourceDocument) (string, error) {
	extractor, ok := r.byExt[doc.Ext()]
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("unsupported file type %q: %s", doc.Ext(), doc.Name))
	}
	return extractor.Extract(ctx, doc)
}
