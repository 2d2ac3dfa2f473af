// Package matcher decides which catalog search results are exact matches
// for a user's show-name query.
package matcher

import (
	"regexp"
	"strings"

	"github.com/iliyamo/tvshow-catalog/internal/apperr"
)

var allowedQuery = regexp.MustCompile(`^[A-Za-z0-9 '\-]+$`)

// punctuation folds the characters catalog titles commonly carry but users
// rarely type.
var punctuation = strings.NewReplacer(
	"-", " ",
	":", " ",
	"!", "",
	".", "",
	`"`, "",
	"'", "",
)

// ValidateQuery rejects empty queries and any character outside
// letters, digits, space, apostrophe and hyphen.
func ValidateQuery(q string) error {
	if strings.TrimSpace(q) == "" {
		return apperr.Validation("name of TV show is required")
	}
	if !allowedQuery.MatchString(q) {
		return apperr.Validation("invalid characters used in query %s, please use only alphanumeric characters, spaces, apostrophes and hyphens", q)
	}
	return nil
}

// Normalize strips punctuation and collapses whitespace runs.
func Normalize(s string) string {
	return strings.Join(strings.Fields(punctuation.Replace(s)), " ")
}

// Same reports whether a catalog name matches the query exactly after
// normalization, ignoring case.
func Same(query, name string) bool {
	return strings.EqualFold(Normalize(query), Normalize(name))
}

// Partition splits items into exact matches and similar ones, preserving
// the catalog's order in both.
func Partition[T any](query string, items []T, name func(T) string) (exact, similar []T) {
	for _, it := range items {
		if Same(query, name(it)) {
			exact = append(exact, it)
		} else {
			similar = append(similar, it)
		}
	}
	return exact, similar
}
