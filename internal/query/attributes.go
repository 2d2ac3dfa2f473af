package query

import (
	"cmp"
	"strings"

	"github.com/iliyamo/tvshow-catalog/internal/model"
)

// LastUpdateLayout formats last_updated in responses.
const LastUpdateLayout = "2006-01-02 15:04:05"

// sortAttr binds an order_by attribute to its store column and an in-memory
// comparison with the same semantics (missing values sort first).
type sortAttr struct {
	column  string
	compare func(a, b *model.Show) int
}

var sortAttrs = map[string]sortAttr{
	"id": {column: "id", compare: func(a, b *model.Show) int {
		return cmp.Compare(a.ID, b.ID)
	}},
	"name": {column: "name", compare: func(a, b *model.Show) int {
		return strings.Compare(a.Name, b.Name)
	}},
	"runtime": {column: "runtime", compare: func(a, b *model.Show) int {
		return comparePtr(a.Runtime, b.Runtime)
	}},
	"premiered": {column: "premiered", compare: func(a, b *model.Show) int {
		var x, y *string
		if a.Premiered != nil {
			s := a.Premiered.String()
			x = &s
		}
		if b.Premiered != nil {
			s := b.Premiered.String()
			y = &s
		}
		return comparePtr(x, y)
	}},
	"rating-average": {column: "rating_average", compare: func(a, b *model.Show) int {
		return comparePtr(a.Rating.Average, b.Rating.Average)
	}},
}

// SortableAttributes is the order_by allow-list in documentation order.
var SortableAttributes = []string{"id", "name", "runtime", "premiered", "rating-average"}

func comparePtr[T cmp.Ordered](a, b *T) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return cmp.Compare(*a, *b)
}

// projection maps a filter attribute to its output key and value.
type projection struct {
	key   string
	value func(s *model.Show) any
}

var projections = map[string]projection{
	"tvmaze_id":   {"tvmaze_id", func(s *model.Show) any { return s.TVMazeID }},
	"id":          {"id", func(s *model.Show) any { return s.ID }},
	"last-update": {"last-update", func(s *model.Show) any { return s.LastUpdated.UTC().Format(LastUpdateLayout) }},
	"name":        {"name", func(s *model.Show) any { return s.Name }},
	"type":        {"type", func(s *model.Show) any { return s.Type }},
	"language":    {"language", func(s *model.Show) any { return s.Language }},
	"genres": {"genres", func(s *model.Show) any {
		if s.Genres == nil {
			return []string{}
		}
		return s.Genres
	}},
	"status":  {"status", func(s *model.Show) any { return s.Status }},
	"runtime": {"runtime", func(s *model.Show) any { return s.Runtime }},
	"premiered": {"premiered", func(s *model.Show) any {
		if s.Premiered == nil {
			return nil
		}
		return s.Premiered.String()
	}},
	"officialSite": {"officialSite", func(s *model.Show) any { return s.OfficialSite }},
	"schedule":     {"schedule", func(s *model.Show) any { return s.Schedule }},
	"rating":       {"rating-average", func(s *model.Show) any { return s.Rating.Average }},
	"weight":       {"weight", func(s *model.Show) any { return s.Weight }},
	"network":      {"network", func(s *model.Show) any { return s.Network }},
	"summary":      {"summary", func(s *model.Show) any { return s.Summary }},
}

// FilterableAttributes is the filter allow-list in documentation order.
var FilterableAttributes = []string{
	"tvmaze_id", "id", "last-update", "name", "type", "language", "genres", "status",
	"runtime", "premiered", "officialSite", "schedule", "rating", "weight", "network", "summary",
}
