// Package models defines the domain types for gistcal.
package models

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/darvall/gistcal/internal/checksum"
)

// Time layouts used throughout the pipeline. Event times are floating
// wall-clock values: the time.Time carries no meaningful zone, and every
// format/compare goes through these layouts so the zone never leaks out.
const (
	// TimeLayout is the canonical storage format. It sorts
	// lexicographically in chronological order.
	TimeLayout = "2006-01-02T15:04:05"
	// StampLayout is the RFC 5545 floating local-time format (no Z suffix).
	StampLayout = "20060102T150405"
	// DateLayout is the RFC 5545 all-day date format.
	DateLayout = "20060102"
)

// uidSuffix makes generated UIDs globally unique per RFC 5545's
// recommendation of a domain-qualified identifier.
const uidSuffix = "@gistcal"

// CalendarEvent is a single calendar entry. Identity is the
// (Subject, Start, End) triple; Location and Description are mutable
// payload that an upsert may overwrite.
type CalendarEvent struct {
	Subject     string    `json:"subject"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Key returns the canonical identity string for the event. The unit
// separator keeps subjects containing pipes or commas unambiguous.
func (e *CalendarEvent) Key() string {
	return e.Subject + "\x1f" + e.Start.Format(StampLayout) + "\x1f" + e.End.Format(StampLayout)
}

// UID derives the stable calendar UID from the identity key. Re-ingesting
// or regenerating never changes it, so subscribing clients treat the event
// as the same object across publications.
func (e *CalendarEvent) UID() string {
	return checksum.Short(e.Key()) + uidSuffix
}

// Validate checks the ingestion invariants: a non-empty subject and a
// non-inverted time span. Zero-duration events are allowed.
func (e CalendarEvent) Validate() error {
	if err := validation.ValidateStruct(&e,
		validation.Field(&e.Subject, validation.Required),
	); err != nil {
		return err
	}
	if e.End.Before(e.Start) {
		return fmt.Errorf("end %s before start %s",
			e.End.Format(TimeLayout), e.Start.Format(TimeLayout))
	}
	return nil
}

// IsAllDay reports whether the event spans whole days: both endpoints at
// midnight and a positive duration that is a multiple of 24 hours.
func (e *CalendarEvent) IsAllDay() bool {
	d := e.End.Sub(e.Start)
	if d <= 0 || d%(24*time.Hour) != 0 {
		return false
	}
	return atMidnight(e.Start) && atMidnight(e.End)
}

func atMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0
}
