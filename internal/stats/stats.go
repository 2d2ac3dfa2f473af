// Package stats computes how stored shows distribute over a categorical
// attribute and renders the distribution as JSON or a bar chart.
package stats

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/iliyamo/tvshow-catalog/internal/apperr"
	"github.com/iliyamo/tvshow-catalog/internal/model"
)

// RecentWindow is how far back last_updated counts as recent.
const RecentWindow = 24 * time.Hour

// Format selects the statistics representation.
type Format string

const (
	FormatJSON  Format = "json"
	FormatImage Format = "image"
)

// ParseFormat validates the format parameter.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatImage:
		return f, nil
	}
	return "", apperr.Validation("format parameter accepts only 'json' or 'image'")
}

// Attribute is a groupable show attribute.
type Attribute string

const (
	ByLanguage Attribute = "language"
	ByGenres   Attribute = "genres"
	ByStatus   Attribute = "status"
	ByType     Attribute = "type"
)

// values returns the attribute values a show contributes to. Genres
// contribute once per listed genre; empty scalar values contribute nothing.
func (a Attribute) values(s *model.Show) []string {
	var v string
	switch a {
	case ByGenres:
		return s.Genres
	case ByLanguage:
		v = s.Language
	case ByStatus:
		v = s.Status
	case ByType:
		v = s.Type
	}
	if v == "" {
		return nil
	}
	return []string{v}
}

// ParseAttribute validates the by parameter.
func ParseAttribute(s string) (Attribute, error) {
	switch a := Attribute(s); a {
	case ByLanguage, ByGenres, ByStatus, ByType:
		return a, nil
	}
	return "", apperr.Validation("'by' parameter accepts only [language, genres, status, type]")
}

// Group is one attribute value with its record count and share of all
// records.
type Group struct {
	Value   string
	Count   int
	Percent int
}

// Result is a computed distribution.
type Result struct {
	By              Attribute
	Total           int
	RecentlyUpdated int
	Groups          []Group
}

// Compute groups shows by attribute. Percentages are relative to the total
// number of shows, so genre percentages can sum past 100.
func Compute(shows []model.Show, by Attribute, now time.Time) (*Result, error) {
	if len(shows) == 0 {
		return nil, apperr.Conflict("the store is empty, import some shows first")
	}
	res := &Result{By: by, Total: len(shows)}
	counts := map[string]int{}
	cutoff := now.Add(-RecentWindow)
	for i := range shows {
		s := &shows[i]
		if !s.LastUpdated.Before(cutoff) {
			res.RecentlyUpdated++
		}
		seen := map[string]bool{}
		for _, v := range by.values(s) {
			if seen[v] {
				continue
			}
			seen[v] = true
			counts[v]++
		}
	}
	for v, n := range counts {
		res.Groups = append(res.Groups, Group{
			Value:   v,
			Count:   n,
			Percent: int(math.Round(float64(n) / float64(res.Total) * 100)),
		})
	}
	slices.SortFunc(res.Groups, func(a, b Group) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return res, nil
}

// Summary is the JSON representation of a Result.
type Summary struct {
	Total        int               `json:"total"`
	TotalUpdated int               `json:"total-updated"`
	Values       map[string]string `json:"values"`
}

// Summary renders percentages as "42%" strings keyed by attribute value.
func (r *Result) Summary() Summary {
	out := Summary{Total: r.Total, TotalUpdated: r.RecentlyUpdated, Values: make(map[string]string, len(r.Groups))}
	for _, g := range r.Groups {
		out.Values[g.Value] = strconv.Itoa(g.Percent) + "%"
	}
	return out
}

// Filename is the suggested download name for the rendered chart.
func (r *Result) Filename() string {
	return fmt.Sprintf("%s.png", r.By)
}
