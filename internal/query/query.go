// Package query turns the order_by, filter, page and page_size parameters of
// the listing endpoint into a validated Plan and shapes the resulting page.
package query

import (
	"bytes"
	"encoding/json"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/iliyamo/tvshow-catalog/internal/apperr"
	"github.com/iliyamo/tvshow-catalog/internal/model"
)

const (
	DefaultOrderBy  = "+id"
	DefaultFilter   = "id,name"
	DefaultPage     = 1
	DefaultPageSize = 100
)

// SortKey is one parsed order_by token.
type SortKey struct {
	Attribute string
	Desc      bool
}

// Column is the store column backing the attribute.
func (k SortKey) Column() string { return sortAttrs[k.Attribute].column }

// Compare orders a and b by this key, honouring the direction.
func (k SortKey) Compare(a, b *model.Show) int {
	c := sortAttrs[k.Attribute].compare(a, b)
	if k.Desc {
		return -c
	}
	return c
}

func (k SortKey) String() string {
	if k.Desc {
		return "-" + k.Attribute
	}
	return "+" + k.Attribute
}

// Params carries the raw query-string values. Empty means "use default".
type Params struct {
	OrderBy  string
	Filter   string
	Page     string
	PageSize string
}

// Plan is a validated listing request.
type Plan struct {
	Order    []SortKey
	Fields   []string
	Page     int
	PageSize int
}

// Parse validates every parameter independently and returns the first error.
func Parse(p Params) (Plan, error) {
	order, err := ParseOrderBy(p.OrderBy)
	if err != nil {
		return Plan{}, err
	}
	fields, err := ParseFilter(p.Filter)
	if err != nil {
		return Plan{}, err
	}
	page, err := parsePositive("page", p.Page, DefaultPage)
	if err != nil {
		return Plan{}, err
	}
	size, err := parsePositive("page_size", p.PageSize, DefaultPageSize)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Order: order, Fields: fields, Page: page, PageSize: size}, nil
}

// ParseOrderBy parses comma separated +attr / -attr tokens.
func ParseOrderBy(raw string) ([]SortKey, error) {
	if strings.TrimSpace(raw) == "" {
		raw = DefaultOrderBy
	}
	var keys []SortKey
	seen := map[string]bool{}
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if len(tok) < 2 || (tok[0] != '+' && tok[0] != '-') {
			return nil, apperr.Validation("argument '%s' has to start with + or -", tok)
		}
		attr := tok[1:]
		if _, ok := sortAttrs[attr]; !ok {
			return nil, apperr.Validation("attribute '%s' is not supported for order_by, use one of %s",
				tok, strings.Join(SortableAttributes, ", "))
		}
		if seen[attr] {
			return nil, apperr.Validation("duplicate entry of '%s'", tok)
		}
		seen[attr] = true
		keys = append(keys, SortKey{Attribute: attr, Desc: tok[0] == '-'})
	}
	return keys, nil
}

// ParseFilter parses the comma separated projection list.
func ParseFilter(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		raw = DefaultFilter
	}
	var fields []string
	seen := map[string]bool{}
	for _, attr := range strings.Split(raw, ",") {
		attr = strings.TrimSpace(attr)
		if _, ok := projections[attr]; !ok {
			return nil, apperr.Validation("attribute '%s' is not supported for filter, use any of %s",
				attr, strings.Join(FilterableAttributes, ", "))
		}
		if seen[attr] {
			return nil, apperr.Validation("duplicate entry of '%s'", attr)
		}
		seen[attr] = true
		fields = append(fields, attr)
	}
	return fields, nil
}

func parsePositive(name, raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperr.Validation("%s must be a positive integer, got '%s'", name, raw)
	}
	return n, nil
}

// Sort orders shows by keys, the first key being primary. Shows equal on
// every key keep their input order.
func Sort(shows []model.Show, keys []SortKey) {
	slices.SortStableFunc(shows, func(a, b model.Show) int {
		for _, k := range keys {
			if c := k.Compare(&a, &b); c != 0 {
				return c
			}
		}
		return 0
	})
}

// PageCount returns how many pages of size hold total records.
func PageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total-1)/size + 1
}

// Check validates the plan against the current record count.
func (p Plan) Check(total int) error {
	if total == 0 {
		return apperr.Conflict("the store is empty, import some shows first")
	}
	if pages := PageCount(total, p.PageSize); p.Page > pages {
		return apperr.Validation("pagination error, page %d was requested, but only %d pages exist", p.Page, pages).
			With("pages", pages)
	}
	return nil
}

// Offset is the number of records preceding the requested page.
func (p Plan) Offset() int { return (p.Page - 1) * p.PageSize }

// Link is a HAL-style navigation link.
type Link struct {
	Href string `json:"href"`
}

// Page is the listing envelope.
type Page struct {
	Page     int             `json:"page"`
	PageSize int             `json:"page-size"`
	Shows    []Record        `json:"tv-shows"`
	Links    map[string]Link `json:"_links"`
}

// BuildPage projects shows and attaches navigation links. collectionURL is
// the absolute URL of the listing endpoint.
func (p Plan) BuildPage(shows []model.Show, total int, collectionURL string) Page {
	out := Page{
		Page:     p.Page,
		PageSize: p.PageSize,
		Shows:    make([]Record, 0, len(shows)),
		Links:    map[string]Link{"self": {Href: p.href(collectionURL, p.Page)}},
	}
	for i := range shows {
		out.Shows = append(out.Shows, Project(&shows[i], p.Fields))
	}
	if p.Page > 1 {
		out.Links["previous"] = Link{Href: p.href(collectionURL, p.Page-1)}
	}
	if p.Page < PageCount(total, p.PageSize) {
		out.Links["next"] = Link{Href: p.href(collectionURL, p.Page+1)}
	}
	return out
}

func (p Plan) href(collectionURL string, page int) string {
	order := make([]string, len(p.Order))
	for i, k := range p.Order {
		order[i] = k.String()
	}
	v := url.Values{}
	v.Set("order_by", strings.Join(order, ","))
	v.Set("filter", strings.Join(p.Fields, ","))
	v.Set("page", strconv.Itoa(page))
	v.Set("page_size", strconv.Itoa(p.PageSize))
	return collectionURL + "?" + v.Encode()
}

// Field is one projected attribute.
type Field struct {
	Key   string
	Value any
}

// Record is a projected show that marshals as a JSON object with keys in
// filter order.
type Record []Field

// Project selects the named attributes of s. Names must come from a Plan.
func Project(s *model.Show, names []string) Record {
	rec := make(Record, 0, len(names))
	for _, n := range names {
		pr := projections[n]
		rec = append(rec, Field{Key: pr.key, Value: pr.value(s)})
	}
	return rec
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
