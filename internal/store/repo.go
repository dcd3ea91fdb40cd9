package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/darvall/gistcal/internal/apperr"
	"github.com/darvall/gistcal/internal/models"
)

// BatchResult summarizes one upsert batch. Created and Updated carry the
// affected subjects for user-facing reporting.
type BatchResult struct {
	Created   []string `json:"created"`
	Updated   []string `json:"updated"`
	Unchanged int      `json:"unchanged"`
}

// UpsertBatch writes events inside a single transaction: either the whole
// batch lands or none of it does. A new identity is inserted; an existing
// one only has its location and description overwritten, and only when
// they actually differ, so updated_at (and with it the published DTSTAMP)
// stays put for untouched rows.
func (db *DB) UpsertBatch(events []models.CalendarEvent) (*BatchResult, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	sel, err := tx.Prepare(`SELECT location, description FROM events WHERE subject = ? AND start_at = ? AND end_at = ?`)
	if err != nil {
		return nil, fmt.Errorf("store: prepare lookup: %w", err)
	}
	defer sel.Close()

	ins, err := tx.Prepare(`
		INSERT INTO events (subject, start_at, end_at, uid, location, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("store: prepare insert: %w", err)
	}
	defer ins.Close()

	upd, err := tx.Prepare(`
		UPDATE events SET location = ?, description = ?, updated_at = ?
		WHERE subject = ? AND start_at = ? AND end_at = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("store: prepare update: %w", err)
	}
	defer upd.Close()

	now := time.Now().UTC().Format(models.TimeLayout)
	res := &BatchResult{}

	for _, ev := range events {
		startTxt := ev.Start.Format(models.TimeLayout)
		endTxt := ev.End.Format(models.TimeLayout)

		var loc, desc string
		err := sel.QueryRow(ev.Subject, startTxt, endTxt).Scan(&loc, &desc)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := ins.Exec(ev.Subject, startTxt, endTxt, ev.UID(), ev.Location, ev.Description, now, now); err != nil {
				return nil, fmt.Errorf("store: insert event: %w", err)
			}
			res.Created = append(res.Created, ev.Subject)

		case err != nil:
			return nil, fmt.Errorf("store: lookup event: %w", err)

		case loc == ev.Location && desc == ev.Description:
			res.Unchanged++

		default:
			if _, err := upd.Exec(ev.Location, ev.Description, now, ev.Subject, startTxt, endTxt); err != nil {
				return nil, fmt.Errorf("store: update event: %w", err)
			}
			res.Updated = append(res.Updated, ev.Subject)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return res, nil
}

const selectColumns = `subject, start_at, end_at, location, description, created_at, updated_at`

// QueryRange returns events whose start falls inside [from, to], both
// bounds inclusive, ordered by start ascending with subject as tiebreak.
// The canonical text format sorts chronologically, so the comparison runs
// directly on the stored columns.
func (db *DB) QueryRange(from, to time.Time) ([]models.CalendarEvent, error) {
	rows, err := db.conn.Query(`
		SELECT `+selectColumns+`
		FROM events
		WHERE start_at >= ? AND start_at <= ?
		ORDER BY start_at ASC, subject ASC
	`, from.Format(models.TimeLayout), to.Format(models.TimeLayout))
	if err != nil {
		return nil, fmt.Errorf("store: query range: %w", err)
	}
	return scanEvents(rows)
}

// All returns every stored event in chronological order.
func (db *DB) All() ([]models.CalendarEvent, error) {
	rows, err := db.conn.Query(`SELECT ` + selectColumns + ` FROM events ORDER BY start_at ASC, subject ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: all: %w", err)
	}
	return scanEvents(rows)
}

// Get returns the event with the given UID, or apperr.ErrNotFound.
func (db *DB) Get(uid string) (*models.CalendarEvent, error) {
	row := db.conn.QueryRow(`SELECT `+selectColumns+` FROM events WHERE uid = ?`, uid)
	ev, err := scanEvent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get: %w", err)
	}
	return &ev, nil
}

// Count returns the number of stored events.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// Clear deletes every stored event and returns how many were removed.
func (db *DB) Clear() (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM events`)
	if err != nil {
		return 0, fmt.Errorf("store: clear: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: clear count: %w", err)
	}
	return n, nil
}

func scanEvents(rows *sql.Rows) ([]models.CalendarEvent, error) {
	defer rows.Close()
	var out []models.CalendarEvent
	for rows.Next() {
		ev, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// scanEvent reads one row through the given Scan function and parses the
// stored text timestamps back into wall-clock values.
func scanEvent(scan func(dest ...any) error) (models.CalendarEvent, error) {
	var ev models.CalendarEvent
	var startTxt, endTxt, createdTxt, updatedTxt string
	if err := scan(&ev.Subject, &startTxt, &endTxt, &ev.Location, &ev.Description, &createdTxt, &updatedTxt); err != nil {
		return ev, err
	}
	var err error
	if ev.Start, err = time.Parse(models.TimeLayout, startTxt); err != nil {
		return ev, fmt.Errorf("store: parse start_at %q: %w", startTxt, err)
	}
	if ev.End, err = time.Parse(models.TimeLayout, endTxt); err != nil {
		return ev, fmt.Errorf("store: parse end_at %q: %w", endTxt, err)
	}
	if ev.CreatedAt, err = time.Parse(models.TimeLayout, createdTxt); err != nil {
		return ev, fmt.Errorf("store: parse created_at %q: %w", createdTxt, err)
	}
	if ev.UpdatedAt, err = time.Parse(models.TimeLayout, updatedTxt); err != nil {
		return ev, fmt.Errorf("store: parse updated_at %q: %w", updatedTxt, err)
	}
	return ev, nil
}
