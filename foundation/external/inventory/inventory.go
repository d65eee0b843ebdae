// Package inventory reads the static product catalog owned by the shop front end.
package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

var ErrNotFound = errors.New("not found")

type Product struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// Catalog maps a category to its products.
type Catalog map[string][]Product

func Load(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("inventory file %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var c Catalog
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse inventory %s: %w", path, err)
	}

	return c, nil
}

// Lookup returns the products of category, matched case-insensitively.
func (c Catalog) Lookup(category string) ([]Product, error) {
	want := strings.ToLower(strings.TrimSpace(category))
	for name, products := range c {
		if strings.ToLower(name) == want && len(products) > 0 {
			return products, nil
		}
	}
	return nil, fmt.Errorf("category %q: %w", category, ErrNotFound)
}

func (c Catalog) Categories() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindProduct searches every category for a product named name.
func (c Catalog) FindProduct(name string) (Product, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, products := range c {
		for _, p := range products {
			if strings.ToLower(p.Name) == want {
				return p, true
			}
		}
	}
	return Product{}, false
}

// Describe renders products as one spoken-friendly line each.
func Describe(products []Product) string {
	var b strings.Builder
	for i, p := range products {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s - %s ($%.2f)", i+1, p.Name, p.Description, p.Price)
	}
	return b.String()
}
