package catalog

import (
	"strings"
	"unicode/utf8"
)

const (
	MaxSuggestions        = 5
	MinSuggestionQueryLen = 2
)

// Search keeps the products whose searchable text contains every whitespace-separated
// term of query, case-insensitively. Catalog order is preserved and no ranking is
// applied. A blank query returns the whole catalog.
func Search(products []Product, query string) []Product {
	terms := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	if len(terms) == 0 {
		return append([]Product(nil), products...)
	}

	out := make([]Product, 0, len(products))
	for _, p := range products {
		text := searchableText(p)
		if containsAll(text, terms) {
			out = append(out, p)
		}
	}
	return out
}

// Suggest returns at most MaxSuggestions search hits, or nothing for queries shorter
// than MinSuggestionQueryLen characters.
func Suggest(products []Product, query string) []Product {
	if utf8.RuneCountInString(strings.TrimSpace(query)) < MinSuggestionQueryLen {
		return []Product{}
	}
	hits := Search(products, query)
	if len(hits) > MaxSuggestions {
		hits = hits[:MaxSuggestions]
	}
	return hits
}

func searchableText(p Product) string {
	return strings.ToLower(strings.Join([]string{p.Name, string(p.Category), p.Description, p.Brand}, " "))
}

func containsAll(text string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}
