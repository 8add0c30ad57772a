package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
)

type catalogFile struct {
	Domains []domain.LegalDomain `yaml:"domains"`
}

// LoadCatalog reads the domain catalog YAML at path. An empty path yields
// the built-in catalog.
func LoadCatalog(path string) (*domain.Catalog, error) {
	if path == "" {
		return domain.DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read domain catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse domain catalog %s: %w", path, err)
	}
	catalog, err := domain.NewCatalog(file.Domains)
	if err != nil {
		return nil, fmt.Errorf("load domain catalog %s: %w", path, err)
	}
	return catalog, nil
}
