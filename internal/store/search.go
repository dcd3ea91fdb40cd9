package store

import (
	"fmt"

	"github.com/darvall/gistcal/internal/models"
)

// Search performs a LIKE-based match on subject and description, returning
// hits in chronological order.
func (db *DB) Search(query string, limit int) ([]models.CalendarEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT `+selectColumns+`
		FROM events
		WHERE subject LIKE ? OR description LIKE ?
		ORDER BY start_at ASC, subject ASC
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	return scanEvents(rows)
}
