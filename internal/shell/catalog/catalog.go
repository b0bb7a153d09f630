// Package catalog loads and serves the hosting platform registry.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jsodeh/sabi/internal/core/domain"
)

//go:embed platforms.yaml
var defaultCatalogYAML []byte

// ErrPlatformNotFound is returned for unknown platform ids.
var ErrPlatformNotFound = errors.New("platform not found in catalog")

// catalogFile is the on-disk/embedded YAML shape.
type catalogFile struct {
	Platforms []domain.PlatformCapabilities `yaml:"platforms"`
}

// Catalog is an immutable, ordered registry of platform capabilities.
// Iteration order is file order, which the recommender relies on for
// deterministic tie-breaking.
type Catalog struct {
	platforms []domain.PlatformCapabilities
	byID      map[string]int
}

// Load reads a catalog from the YAML file at path. An empty path loads the
// embedded default catalog.
func Load(path string) (*Catalog, error) {
	data := defaultCatalogYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog file: %w", err)
		}
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Platforms) == 0 {
		return nil, errors.New("catalog contains no platforms")
	}

	byID := make(map[string]int, len(file.Platforms))
	for i, p := range file.Platforms {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate platform id %q", p.ID)
		}
		byID[p.ID] = i
	}

	return &Catalog{platforms: file.Platforms, byID: byID}, nil
}

// Platforms returns all entries in catalog order. The slice is a copy;
// the entries themselves are treated as immutable everywhere.
func (c *Catalog) Platforms() []domain.PlatformCapabilities {
	out := make([]domain.PlatformCapabilities, len(c.platforms))
	copy(out, c.platforms)
	return out
}

// Get returns the platform with the given id.
func (c *Catalog) Get(id string) (domain.PlatformCapabilities, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.PlatformCapabilities{}, fmt.Errorf("%w: %s", ErrPlatformNotFound, id)
	}
	return c.platforms[i], nil
}

// Len returns the number of platforms in the catalog.
func (c *Catalog) Len() int {
	return len(c.platforms)
}
