// Package filter derives the displayed subset of the supply collection from
// three independent predicates. Apply is pure: identical inputs always yield
// identical results, and the input order is preserved.
package filter

import (
	"strings"

	"github.com/medshelf/medshelf/internal/model"
)

// Expiry filter values.
const (
	ExpiryAll        = "all"
	ExpiryExpired    = "expired"
	ExpiryNotExpired = "not-expired"
)

// CategoryAll matches every category.
const CategoryAll = "all"

// Apply returns the ordered subsequence of items matching all three
// predicates. A whitespace-only query matches everything; the expiry filter
// tests the stored flag, not the expiration date.
func Apply(items []model.SupplyItem, query, expiry, category string) []model.SupplyItem {
	query = strings.TrimSpace(strings.ToLower(query))

	var out []model.SupplyItem
	for _, item := range items {
		if !matchesQuery(item, query) {
			continue
		}
		if !matchesExpiry(item, expiry) {
			continue
		}
		if !matchesCategory(item, category) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesQuery(item model.SupplyItem, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(item.Name), query) ||
		strings.Contains(strings.ToLower(item.Category), query)
}

func matchesExpiry(item model.SupplyItem, expiry string) bool {
	switch expiry {
	case ExpiryExpired:
		return item.IsExpired
	case ExpiryNotExpired:
		return !item.IsExpired
	default:
		return true
	}
}

func matchesCategory(item model.SupplyItem, category string) bool {
	if category == "" || category == CategoryAll {
		return true
	}
	return item.Category == category
}
