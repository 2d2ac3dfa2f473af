package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/iliyamo/tvshow-catalog/internal/apperr"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindRequiredText
	kindInt
	kindFloat
	kindDate
	kindClock
	kindTextList
	kindObject
)

// node describes the shape of one patchable attribute. Objects list their
// children; everything else is a leaf validated by kind.
type node struct {
	kind   fieldKind
	fields map[string]*node
}

func leaf(k fieldKind) *node { return &node{kind: k} }

func object(fields map[string]*node) *node { return &node{kind: kindObject, fields: fields} }

var patchTree = object(map[string]*node{
	"name":         leaf(kindRequiredText),
	"type":         leaf(kindText),
	"language":     leaf(kindText),
	"genres":       leaf(kindTextList),
	"status":       leaf(kindText),
	"runtime":      leaf(kindInt),
	"premiered":    leaf(kindDate),
	"officialSite": leaf(kindText),
	"schedule": object(map[string]*node{
		"time": leaf(kindClock),
		"days": leaf(kindTextList),
	}),
	"rating": object(map[string]*node{
		"average": leaf(kindFloat),
	}),
	"weight": leaf(kindInt),
	"network": object(map[string]*node{
		"id":   leaf(kindInt),
		"name": leaf(kindText),
		"country": object(map[string]*node{
			"name":     leaf(kindText),
			"code":     leaf(kindText),
			"timezone": leaf(kindText),
		}),
	}),
	"summary": leaf(kindText),
})

// readOnly keys exist on a Show but are owned by the store or the catalog.
var readOnly = map[string]bool{
	"id":           true,
	"tvmaze_id":    true,
	"tvmaze-id":    true,
	"last-update":  true,
	"last_updated": true,
}

// PatchableKeys lists the accepted top-level patch keys in sorted order.
func PatchableKeys() []string {
	keys := make([]string, 0, len(patchTree.fields))
	for k := range patchTree.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// showDoc is the patchable JSON view of a Show.
type showDoc struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Language     string    `json:"language"`
	Genres       []string  `json:"genres"`
	Status       string    `json:"status"`
	Runtime      *int      `json:"runtime"`
	Premiered    *Date     `json:"premiered"`
	OfficialSite string    `json:"officialSite"`
	Schedule     *Schedule `json:"schedule"`
	Rating       *Rating   `json:"rating"`
	Weight       *int      `json:"weight"`
	Network      *Network  `json:"network"`
	Summary      string    `json:"summary"`
}

// ApplyPatch merges a JSON object of attribute updates into s. Nested
// objects are merged key by key so omitted siblings keep their values.
// Unknown keys at any level, read-only keys and malformed values are
// rejected with a validation error and leave s untouched. On success
// LastUpdated is set to now.
func ApplyPatch(s *Show, body []byte, now time.Time) error {
	patch, err := decodeObject(body)
	if err != nil {
		return err
	}

	current, err := toTree(s)
	if err != nil {
		return err
	}
	merged, err := merge(patchTree, current, patch, "")
	if err != nil {
		return err
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode merged show: %w", err)
	}
	var doc showDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return apperr.Validation("invalid patch body: %v", err)
	}

	s.Name = doc.Name
	s.Type = doc.Type
	s.Language = doc.Language
	s.Genres = doc.Genres
	s.Status = doc.Status
	s.Runtime = doc.Runtime
	s.Premiered = doc.Premiered
	s.OfficialSite = doc.OfficialSite
	s.Schedule = Schedule{}
	if doc.Schedule != nil {
		s.Schedule = *doc.Schedule
	}
	s.Rating = Rating{}
	if doc.Rating != nil {
		s.Rating = *doc.Rating
	}
	s.Weight = doc.Weight
	s.Network = doc.Network
	s.Summary = doc.Summary
	s.LastUpdated = Stamp(now)
	return nil
}

func decodeObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var patch map[string]any
	if err := dec.Decode(&patch); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperr.Validation("patch body is empty")
		}
		return nil, apperr.Validation("patch body must be a JSON object: %v", err)
	}
	if patch == nil {
		return nil, apperr.Validation("patch body must be a JSON object")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, apperr.Validation("patch body must hold a single JSON object")
	}
	return patch, nil
}

func toTree(s *Show) (map[string]any, error) {
	doc := showDoc{
		Name:         s.Name,
		Type:         s.Type,
		Language:     s.Language,
		Genres:       s.Genres,
		Status:       s.Status,
		Runtime:      s.Runtime,
		Premiered:    s.Premiered,
		OfficialSite: s.OfficialSite,
		Schedule:     &s.Schedule,
		Rating:       &s.Rating,
		Weight:       s.Weight,
		Network:      s.Network,
		Summary:      s.Summary,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode show: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree map[string]any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode show: %w", err)
	}
	return tree, nil
}

// merge overlays patch onto current following the shape n. It never
// mutates its inputs.
func merge(n *node, current, patch map[string]any, path string) (map[string]any, error) {
	out := make(map[string]any, len(current)+len(patch))
	for k, v := range current {
		out[k] = v
	}
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := patch[key]
		full := key
		if path != "" {
			full = path + "." + key
		}
		if path == "" && readOnly[key] {
			return nil, apperr.Validation("attribute %s cannot be modified", key)
		}
		child, ok := n.fields[key]
		if !ok {
			return nil, apperr.Validation("invalid key %s, valid keys are %v", full, fieldNames(n))
		}
		if child.kind != kindObject {
			if err := check(child.kind, value, full); err != nil {
				return nil, err
			}
			out[key] = value
			continue
		}
		if value == nil {
			out[key] = nil
			continue
		}
		sub, ok := value.(map[string]any)
		if !ok {
			return nil, apperr.Validation("invalid value for %s: expected an object", full)
		}
		existing, _ := out[key].(map[string]any)
		merged, err := merge(child, existing, sub, full)
		if err != nil {
			return nil, err
		}
		out[key] = merged
	}
	return out, nil
}

func fieldNames(n *node) []string {
	names := make([]string, 0, len(n.fields))
	for k := range n.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func check(kind fieldKind, value any, path string) error {
	if value == nil {
		if kind == kindRequiredText {
			return apperr.Validation("invalid value for %s: must not be null", path)
		}
		return nil
	}
	switch kind {
	case kindText, kindRequiredText:
		if _, ok := value.(string); !ok {
			return apperr.Validation("invalid value for %s: expected a string", path)
		}
	case kindInt:
		num, ok := value.(json.Number)
		if !ok {
			return apperr.Validation("invalid value for %s: expected an integer", path)
		}
		if _, err := num.Int64(); err != nil {
			return apperr.Validation("invalid value for %s: expected an integer", path)
		}
	case kindFloat:
		num, ok := value.(json.Number)
		if !ok {
			return apperr.Validation("invalid value for %s: expected a number", path)
		}
		if _, err := num.Float64(); err != nil {
			return apperr.Validation("invalid value for %s: expected a number", path)
		}
	case kindDate:
		s, ok := value.(string)
		if !ok {
			return apperr.Validation("invalid value for %s: use YYYY-MM-DD format", path)
		}
		if _, err := ParseDate(s); err != nil {
			return apperr.Validation("invalid value for %s: use YYYY-MM-DD format", path)
		}
	case kindClock:
		s, ok := value.(string)
		if !ok {
			return apperr.Validation("invalid value for %s: use HH:MM format", path)
		}
		if s != "" {
			if _, err := time.Parse(ClockLayout, s); err != nil {
				return apperr.Validation("invalid value for %s: use HH:MM format", path)
			}
		}
	case kindTextList:
		items, ok := value.([]any)
		if !ok {
			return apperr.Validation("invalid value for %s: expected a list of strings", path)
		}
		for _, item := range items {
			if _, ok := item.(string); !ok {
				return apperr.Validation("invalid value for %s: expected a list of strings", path)
			}
		}
	}
	return nil
}
