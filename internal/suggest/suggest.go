// Package suggest provides city-name autocompletion for the search box.
package suggest

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	// MaxResults caps the number of suggestions returned.
	MaxResults = 5
	// MinQueryLength is the shortest trimmed query that produces suggestions.
	MinQueryLength = 2
)

// ErrProviderUnavailable is returned by a backend that cannot answer. Callers
// treat it as "no suggestions".
var ErrProviderUnavailable = errors.New("suggestion provider unavailable")

// Provider returns place names matching a partial query.
type Provider interface {
	Suggest(ctx context.Context, query string) ([]string, error)
}

// Cities is the built-in catalog, in display order.
var Cities = []string{
	"London", "New York", "Tokyo", "Paris", "Berlin", "Sydney",
	"Barcelona", "Rome", "Cairo", "Mumbai", "Beijing", "Dubai",
	"Los Angeles", "Amsterdam", "Moscow", "Toronto", "Seoul", "Singapore",
	"Madrid", "Chicago", "Mexico City", "Buenos Aires", "Istanbul", "Bangkok",
	"Vienna", "Prague", "Budapest", "Copenhagen", "Stockholm", "Dublin",
	"Athens", "Lisbon", "Warsaw", "Brussels", "Helsinki", "Oslo",
}

// CatalogProvider matches against a static list. It never fails.
type CatalogProvider struct {
	cities []string
	lower  []string
}

// NewCatalogProvider builds a provider over cities, or over Cities when nil.
func NewCatalogProvider(cities []string) *CatalogProvider {
	if cities == nil {
		cities = Cities
	}
	lower := make([]string, len(cities))
	for i, c := range cities {
		lower[i] = strings.ToLower(c)
	}
	return &CatalogProvider{cities: cities, lower: lower}
}

// Suggest returns up to MaxResults catalog entries containing query,
// case-insensitively, in catalog order.
func (p *CatalogProvider) Suggest(ctx context.Context, query string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if tooShort(q) {
		return []string{}, nil
	}
	out := make([]string, 0, MaxResults)
	for i, name := range p.lower {
		if strings.Contains(name, q) {
			out = append(out, p.cities[i])
			if len(out) == MaxResults {
				break
			}
		}
	}
	return out, nil
}

// tooShort reports whether the trimmed query has fewer than MinQueryLength
// characters. Length is counted in runes so "é" is one character.
func tooShort(query string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(query)) < MinQueryLength
}
