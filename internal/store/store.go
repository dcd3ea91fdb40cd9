package store

import (
	"time"

	"github.com/darvall/gistcal/internal/models"
)

// EventStore defines the interface for event persistence. Consumers should
// depend on this interface rather than the concrete *DB type to facilitate
// testing with mocks.
type EventStore interface {
	UpsertBatch(events []models.CalendarEvent) (*BatchResult, error)
	QueryRange(from, to time.Time) ([]models.CalendarEvent, error)
	All() ([]models.CalendarEvent, error)
	Get(uid string) (*models.CalendarEvent, error)
	Search(query string, limit int) ([]models.CalendarEvent, error)
	Count() (int, error)
	Clear() (int64, error)
	Close() error
}

// Verify *DB satisfies EventStore at compile time.
var _ EventStore = (*DB)(nil)
