package model

import "time"

// Show is a TV show imported from the external catalog and persisted in the
// tv_shows table. ID is assigned by the store; TVMazeID is the catalog's own
// identifier and never changes after import.
//
// Fields:
//  ID           – store-assigned sequential identifier.
//  TVMazeID     – external catalog id, unique across records.
//  Schedule     – airing time of day (HH:MM) and weekday names.
//  Rating       – average score; Average is nil when the catalog has none.
//  Network      – broadcaster with nested country; nil for web-only shows.
//  LastUpdated  – set on import and refreshed on every patch (UTC, seconds).
type Show struct {
	ID           int64
	TVMazeID     int64
	Name         string
	Type         string
	Language     string
	Genres       []string
	Status       string
	Runtime      *int
	Premiered    *Date
	OfficialSite string
	Schedule     Schedule
	Rating       Rating
	Weight       *int
	Network      *Network
	Summary      string
	LastUpdated  time.Time
}

// Schedule is the weekly airing slot.
type Schedule struct {
	Time string   `json:"time"`
	Days []string `json:"days"`
}

// Rating holds the catalog's aggregate score.
type Rating struct {
	Average *float64 `json:"average"`
}

// Network is the broadcaster of a show.
type Network struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Country *Country `json:"country"`
}

// Country locates a network.
type Country struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Timezone string `json:"timezone"`
}

// Stamp returns t truncated the way last_updated is stored.
func Stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// Clone returns a deep copy so callers can mutate the result freely.
func (s Show) Clone() Show {
	out := s
	if s.Genres != nil {
		out.Genres = append([]string(nil), s.Genres...)
	}
	if s.Runtime != nil {
		v := *s.Runtime
		out.Runtime = &v
	}
	if s.Premiered != nil {
		v := *s.Premiered
		out.Premiered = &v
	}
	if s.Schedule.Days != nil {
		out.Schedule.Days = append([]string(nil), s.Schedule.Days...)
	}
	if s.Rating.Average != nil {
		v := *s.Rating.Average
		out.Rating.Average = &v
	}
	if s.Weight != nil {
		v := *s.Weight
		out.Weight = &v
	}
	if s.Network != nil {
		n := *s.Network
		if n.Country != nil {
			c := *n.Country
			n.Country = &c
		}
		out.Network = &n
	}
	return out
}
