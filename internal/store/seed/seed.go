// Package seed loads catalog fixtures for the memory driver and the seeder.
package seed

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/noah-isme/storefront/internal/catalog"
)

//go:embed catalog.json
var defaultCatalog []byte

// Catalog is a fixture file.
type Catalog struct {
	Categories []string          `json:"categories"`
	Products   []catalog.Product `json:"products"`
}

// Default returns the bundled fixture.
func Default() (Catalog, error) {
	return decode(defaultCatalog)
}

// Load reads a fixture file. An empty path returns the bundled fixture.
func Load(path string) (Catalog, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read seed file: %w", err)
	}
	return decode(raw)
}

func decode(raw []byte) (Catalog, error) {
	var c Catalog
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Catalog{}, fmt.Errorf("decode seed: %w", err)
	}
	for _, p := range c.Products {
		if err := p.Validate(); err != nil {
			return Catalog{}, err
		}
	}
	return c, nil
}
