// Package queue defines message payloads exchanged over the message broker
// and the consumer that audits them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Event types published for the show lifecycle.
const (
	ShowImported = "show.imported"
	ShowUpdated  = "show.updated"
	ShowDeleted  = "show.deleted"
)

// DefaultQueue is the durable queue events are routed to.
const DefaultQueue = "tvshows.events"

// ShowEvent is published whenever a stored show is created, patched or
// removed. It carries enough to audit the change without querying the
// store.
type ShowEvent struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	ShowID     int64  `json:"show_id"`
	TVMazeID   int64  `json:"tvmaze_id"`
	Name       string `json:"name"`
	OccurredAt string `json:"occurred_at"`
}

// NewShowEvent stamps a fresh event id and time.
func NewShowEvent(kind string, showID, tvmazeID int64, name string, at time.Time) ShowEvent {
	return ShowEvent{
		ID:         uuid.NewString(),
		Type:       kind,
		ShowID:     showID,
		TVMazeID:   tvmazeID,
		Name:       name,
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
}
