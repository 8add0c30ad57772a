package usecase

import (
	"fmt"
	"strings"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

// DomainFilter validates domain identifiers against the catalog and
// restricts chunk pools to one domain.
type DomainFilter struct {
	catalog *domain.Catalog
}

func NewDomainFilter(catalog *domain.Catalog) *DomainFilter {
	if catalog == nil {
		catalog = domain.DefaultCatalog()
	}
	return &DomainFilter{catalog: catalog}
}

func (f *DomainFilter) Catalog() *domain.Catalog {
	return f.catalog
}

func (f *DomainFilter) Validate(domainID string) (domain.LegalDomain, error) {
	domainID = strings.TrimSpace(domainID)
	if domainID == "" {
		return domain.LegalDomain{}, domain.WrapError(domain.ErrInvalidDomain, "validate domain", fmt.Errorf("empty domain id"))
	}
	d, ok := f.catalog.Lookup(domainID)
	if !ok {
		return domain.LegalDomain{}, domain.WrapError(domain.ErrInvalidDomain, "validate domain", fmt.Errorf("unknown domain %q", domainID))
	}
	return d, nil
}

// Filter keeps the chunks tagged with domainID, in their original order.
// An empty result is not an error.
func (f *DomainFilter) Filter(domainID string, pool []domain.Chunk) []domain.Chunk {
	out := make([]domain.Chunk, 0, len(pool))
	for _, c := range pool {
		if c.HasDomain(domainID) {
			out = append(out, c)
		}
	}
	return out
}
