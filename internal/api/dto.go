package api

import (
	"time"

	"github.com/darvall/gistcal/internal/eventservice"
	"github.com/darvall/gistcal/internal/models"
)

// SyncReport is the upload response (aliased from the domain layer).
type SyncReport = eventservice.SyncReport

// IngestReport summarizes one CSV ingest (aliased from the domain layer).
type IngestReport = eventservice.IngestReport

// PublishReport describes a completed publish (aliased from the domain layer).
type PublishReport = eventservice.PublishReport

// StatusResponse is the pipeline snapshot (aliased from the domain layer).
type StatusResponse = eventservice.Status

// EventDTO is the wire representation of a stored event. Times are
// rendered in the same wall-clock form the store keeps.
type EventDTO struct {
	UID         string    `json:"uid" example:"1f3870be274f6c49b3e31a0c6728957f@gistcal" validate:"required"`
	Subject     string    `json:"subject" example:"Team Sync" validate:"required"`
	Start       string    `json:"start" example:"2025-03-10T09:00:00" validate:"required"`
	End         string    `json:"end" example:"2025-03-10T09:30:00" validate:"required"`
	Location    string    `json:"location,omitempty" example:"Room 4"`
	Description string    `json:"description,omitempty" example:"Weekly status"`
	AllDay      bool      `json:"all_day,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EventListResponse wraps event listings. From and To are set when the
// listing is restricted to the publication window.
type EventListResponse struct {
	Events []EventDTO `json:"events" validate:"required"`
	Total  int        `json:"total" example:"12" validate:"required"`
	From   string     `json:"from,omitempty" example:"2025-03-01T08:00:00"`
	To     string     `json:"to,omitempty" example:"2025-06-01T08:00:00"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []EventDTO `json:"results" validate:"required"`
}

// ClearResponse reports how many events were removed.
type ClearResponse struct {
	Deleted int64 `json:"deleted" example:"42" validate:"required"`
}

func toEventDTO(ev models.CalendarEvent) EventDTO {
	return EventDTO{
		UID:         ev.UID(),
		Subject:     ev.Subject,
		Start:       ev.Start.Format(models.TimeLayout),
		End:         ev.End.Format(models.TimeLayout),
		Location:    ev.Location,
		Description: ev.Description,
		AllDay:      ev.IsAllDay(),
		UpdatedAt:   ev.UpdatedAt,
	}
}

func toEventDTOs(events []models.CalendarEvent) []EventDTO {
	out := make([]EventDTO, len(events))
	for i, ev := range events {
		out[i] = toEventDTO(ev)
	}
	return out
}
