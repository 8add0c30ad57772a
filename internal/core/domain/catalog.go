package domain

import (
	"fmt"
	"strings"
)

// LegalDomain is one topical partition of the corpus.
type LegalDomain struct {
	ID             string   `json:"id" yaml:"id"`
	Label          string   `json:"label" yaml:"label"`
	SourcePatterns []string `json:"source_patterns,omitempty" yaml:"source_patterns"`
	QueryExpansion []string `json:"-" yaml:"query_expansion"`
}

// Catalog is the fixed, ordered set of domains known to the system.
type Catalog struct {
	domains []LegalDomain
	byID    map[string]int
}

func NewCatalog(domains []LegalDomain) (*Catalog, error) {
	if len(domains) == 0 {
		return nil, WrapError(ErrInvalidInput, "new catalog", fmt.Errorf("at least one domain is required"))
	}
	c := &Catalog{
		domains: make([]LegalDomain, 0, len(domains)),
		byID:    make(map[string]int, len(domains)),
	}
	for _, d := range domains {
		d.ID = strings.TrimSpace(d.ID)
		if d.ID == "" {
			return nil, WrapError(ErrInvalidInput, "new catalog", fmt.Errorf("domain id is required"))
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, WrapError(ErrInvalidInput, "new catalog", fmt.Errorf("duplicate domain id %q", d.ID))
		}
		if strings.TrimSpace(d.Label) == "" {
			d.Label = d.ID
		}
		c.byID[d.ID] = len(c.domains)
		c.domains = append(c.domains, d)
	}
	return c, nil
}

// DefaultCatalog mirrors the statutes the bot was built for.
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog([]LegalDomain{
		{
			ID:             "keihyouhou",
			Label:          "景表法",
			SourcePatterns: []string{"不当景品類及び不当表示防止法", "景品表示法", "景表法"},
			QueryExpansion: []string{"適用除外"},
		},
		{
			ID:             "shikin_kessai",
			Label:          "資金決済法",
			SourcePatterns: []string{"資金決済"},
			QueryExpansion: []string{"適用除外"},
		},
		{
			ID:             "kojin_jouhou",
			Label:          "個人情報保護法",
			SourcePatterns: []string{"個人情報の保護"},
			QueryExpansion: []string{"適用除外"},
		},
		{
			ID:             "inshi_zei",
			Label:          "印紙税法",
			SourcePatterns: []string{"印紙税"},
			QueryExpansion: []string{"適用除外"},
		},
	})
	return c
}

func (c *Catalog) Domains() []LegalDomain {
	out := make([]LegalDomain, len(c.domains))
	copy(out, c.domains)
	return out
}

func (c *Catalog) Lookup(id string) (LegalDomain, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return LegalDomain{}, false
	}
	return c.domains[idx], true
}

// TagsForSource returns the ids of every domain whose patterns match source.
func (c *Catalog) TagsForSource(source string) []string {
	tags := make([]string, 0, 1)
	for _, d := range c.domains {
		for _, pattern := range d.SourcePatterns {
			if pattern != "" && strings.Contains(source, pattern) {
				tags = append(tags, d.ID)
				break
			}
		}
	}
	return tags
}

// SourceLabel shortens a source document name for display.
func (c *Catalog) SourceLabel(source string) string {
	if strings.Contains(source, "Q&A") {
		return "FAQ"
	}
	if strings.Contains(source, "施行規則") || strings.Contains(source, "施行令") {
		return "施行規則・施行令"
	}
	for _, d := range c.domains {
		for _, pattern := range d.SourcePatterns {
			if pattern != "" && strings.Contains(source, pattern) {
				return d.Label
			}
		}
	}
	return source
}
