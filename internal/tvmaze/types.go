package tvmaze

import (
	"fmt"
	"time"

	"github.com/iliyamo/tvshow-catalog/internal/model"
)

// SearchResult is one hit of /search/shows.
type SearchResult struct {
	Score float64 `json:"score"`
	Show  Show    `json:"show"`
}

// Show is the subset of the catalog's show document the service stores.
type Show struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	Type         *string        `json:"type"`
	Language     *string        `json:"language"`
	Genres       []string       `json:"genres"`
	Status       *string        `json:"status"`
	Runtime      *int           `json:"runtime"`
	Premiered    *string        `json:"premiered"`
	OfficialSite *string        `json:"officialSite"`
	Schedule     model.Schedule `json:"schedule"`
	Rating       model.Rating   `json:"rating"`
	Weight       *int           `json:"weight"`
	Network      *Network       `json:"network"`
	Summary      *string        `json:"summary"`
}

type Network struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Country *Country `json:"country"`
}

type Country struct {
	Name     string  `json:"name"`
	Code     string  `json:"code"`
	Timezone *string `json:"timezone"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Record converts a catalog show into a store record stamped with now.
func (s Show) Record(now time.Time) (model.Show, error) {
	out := model.Show{
		TVMazeID:     s.ID,
		Name:         s.Name,
		Type:         deref(s.Type),
		Language:     deref(s.Language),
		Genres:       s.Genres,
		Status:       deref(s.Status),
		Runtime:      s.Runtime,
		OfficialSite: deref(s.OfficialSite),
		Schedule:     s.Schedule,
		Rating:       s.Rating,
		Weight:       s.Weight,
		Summary:      deref(s.Summary),
		LastUpdated:  model.Stamp(now),
	}
	if out.Genres == nil {
		out.Genres = []string{}
	}
	if s.Premiered != nil && *s.Premiered != "" {
		d, err := model.ParseDate(*s.Premiered)
		if err != nil {
			return model.Show{}, fmt.Errorf("show %d premiered: %w", s.ID, err)
		}
		out.Premiered = &d
	}
	if s.Network != nil {
		n := &model.Network{ID: s.Network.ID, Name: s.Network.Name}
		if c := s.Network.Country; c != nil {
			n.Country = &model.Country{Name: c.Name, Code: c.Code, Timezone: deref(c.Timezone)}
		}
		out.Network = n
	}
	return out, nil
}
