package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/darvall/gistcal/internal/apperr"
	"github.com/darvall/gistcal/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func at(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(models.TimeLayout, s)
	if err != nil {
		t.Fatal(err)
	}
	return tm
}

func event(t *testing.T, subject, start, end string) models.CalendarEvent {
	t.Helper()
	return models.CalendarEvent{Subject: subject, Start: at(t, start), End: at(t, end)}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM events`).Scan(&count); err != nil {
		t.Fatalf("events table missing: %v", err)
	}
}

func TestUpsertBatch_CreatesAndReports(t *testing.T) {
	db := testDB(t)
	res, err := db.UpsertBatch([]models.CalendarEvent{
		event(t, "Team Sync", "2025-03-10T09:00:00", "2025-03-10T09:30:00"),
		event(t, "Lunch", "2025-03-10T12:00:00", "2025-03-10T13:00:00"),
	})
	if err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	if len(res.Created) != 2 || len(res.Updated) != 0 || res.Unchanged != 0 {
		t.Errorf("result = %+v", res)
	}
	n, _ := db.Count()
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestUpsertBatch_IdempotentReingest(t *testing.T) {
	db := testDB(t)
	batch := []models.CalendarEvent{
		event(t, "Standup", "2025-03-10T09:00:00", "2025-03-10T09:15:00"),
	}
	if _, err := db.UpsertBatch(batch); err != nil {
		t.Fatal(err)
	}
	res, err := db.UpsertBatch(batch)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Created) != 0 || len(res.Updated) != 0 || res.Unchanged != 1 {
		t.Errorf("second ingest result = %+v, want all unchanged", res)
	}
	n, _ := db.Count()
	if n != 1 {
		t.Errorf("count = %d, want 1 (no duplicates)", n)
	}
}

func TestUpsertBatch_UpdatesLocationInPlace(t *testing.T) {
	db := testDB(t)
	ev := event(t, "Review", "2025-03-12T14:00:00", "2025-03-12T15:00:00")
	ev.Location = "Zoom"
	if _, err := db.UpsertBatch([]models.CalendarEvent{ev}); err != nil {
		t.Fatal(err)
	}

	ev.Location = "Room 4"
	res, err := db.UpsertBatch([]models.CalendarEvent{ev})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Updated) != 1 || res.Updated[0] != "Review" {
		t.Errorf("result = %+v, want Review updated", res)
	}

	n, _ := db.Count()
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	got, err := db.Get(ev.UID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Location != "Room 4" {
		t.Errorf("location = %q, want Room 4", got.Location)
	}
}

func TestUpsertBatch_UnchangedKeepsUpdatedAt(t *testing.T) {
	db := testDB(t)
	ev := event(t, "Frozen", "2025-03-12T14:00:00", "2025-03-12T15:00:00")
	if _, err := db.UpsertBatch([]models.CalendarEvent{ev}); err != nil {
		t.Fatal(err)
	}
	first, err := db.Get(ev.UID())
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(1100 * time.Millisecond)
	if _, err := db.UpsertBatch([]models.CalendarEvent{ev}); err != nil {
		t.Fatal(err)
	}
	second, err := db.Get(ev.UID())
	if err != nil {
		t.Fatal(err)
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Errorf("updated_at moved on unchanged row: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestQueryRange_InclusiveBoundsAndOrder(t *testing.T) {
	db := testDB(t)
	batch := []models.CalendarEvent{
		event(t, "Before", "2025-01-31T23:59:59", "2025-02-01T00:30:00"),
		event(t, "AtFrom", "2025-02-01T00:00:00", "2025-02-01T01:00:00"),
		event(t, "Middle", "2025-03-10T09:00:00", "2025-03-10T10:00:00"),
		event(t, "AtTo", "2025-05-01T00:00:00", "2025-05-01T01:00:00"),
		event(t, "After", "2025-05-01T00:00:01", "2025-05-01T02:00:00"),
	}
	if _, err := db.UpsertBatch(batch); err != nil {
		t.Fatal(err)
	}

	got, err := db.QueryRange(at(t, "2025-02-01T00:00:00"), at(t, "2025-05-01T00:00:00"))
	if err != nil {
		t.Fatalf("QueryRange: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(got), subjects(got))
	}
	want := []string{"AtFrom", "Middle", "AtTo"}
	for i, s := range want {
		if got[i].Subject != s {
			t.Errorf("got[%d] = %q, want %q", i, got[i].Subject, s)
		}
	}
}

func TestQueryRange_SubjectTiebreak(t *testing.T) {
	db := testDB(t)
	batch := []models.CalendarEvent{
		event(t, "Zeta", "2025-03-10T09:00:00", "2025-03-10T10:00:00"),
		event(t, "Alpha", "2025-03-10T09:00:00", "2025-03-10T09:30:00"),
	}
	if _, err := db.UpsertBatch(batch); err != nil {
		t.Fatal(err)
	}
	got, err := db.QueryRange(at(t, "2025-03-01T00:00:00"), at(t, "2025-04-01T00:00:00"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Subject != "Alpha" || got[1].Subject != "Zeta" {
		t.Errorf("order = %v, want [Alpha Zeta]", subjects(got))
	}
}

func TestGet_RoundTripsFields(t *testing.T) {
	db := testDB(t)
	ev := event(t, "Detailed", "2025-03-10T09:00:00", "2025-03-10T10:00:00")
	ev.Location = "HQ"
	ev.Description = "bring laptop"
	if _, err := db.UpsertBatch([]models.CalendarEvent{ev}); err != nil {
		t.Fatal(err)
	}

	got, err := db.Get(ev.UID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Subject != ev.Subject || !got.Start.Equal(ev.Start) || !got.End.Equal(ev.End) {
		t.Errorf("identity fields mismatch: %+v", got)
	}
	if got.Location != "HQ" || got.Description != "bring laptop" {
		t.Errorf("payload fields mismatch: %+v", got)
	}
	if got.UpdatedAt.IsZero() || got.CreatedAt.IsZero() {
		t.Error("bookkeeping timestamps not set")
	}
}

func TestGet_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.Get("missing@gistcal")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearch(t *testing.T) {
	db := testDB(t)
	a := event(t, "Budget review", "2025-03-10T09:00:00", "2025-03-10T10:00:00")
	b := event(t, "Standup", "2025-03-11T09:00:00", "2025-03-11T09:15:00")
	b.Description = "budget followups"
	c := event(t, "Lunch", "2025-03-12T12:00:00", "2025-03-12T13:00:00")
	if _, err := db.UpsertBatch([]models.CalendarEvent{a, b, c}); err != nil {
		t.Fatal(err)
	}

	got, err := db.Search("budget", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("hits = %v, want 2", subjects(got))
	}
	if got[0].Subject != "Budget review" || got[1].Subject != "Standup" {
		t.Errorf("hits = %v", subjects(got))
	}
}

func TestClear(t *testing.T) {
	db := testDB(t)
	if _, err := db.UpsertBatch([]models.CalendarEvent{
		event(t, "One", "2025-03-10T09:00:00", "2025-03-10T10:00:00"),
		event(t, "Two", "2025-03-11T09:00:00", "2025-03-11T10:00:00"),
	}); err != nil {
		t.Fatal(err)
	}
	n, err := db.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 2 {
		t.Errorf("cleared = %d, want 2", n)
	}
	count, _ := db.Count()
	if count != 0 {
		t.Errorf("count after clear = %d", count)
	}
}

func TestAll_Order(t *testing.T) {
	db := testDB(t)
	if _, err := db.UpsertBatch([]models.CalendarEvent{
		event(t, "Later", "2025-06-01T09:00:00", "2025-06-01T10:00:00"),
		event(t, "Earlier", "2025-01-01T09:00:00", "2025-01-01T10:00:00"),
	}); err != nil {
		t.Fatal(err)
	}
	got, err := db.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Subject != "Earlier" {
		t.Errorf("order = %v", subjects(got))
	}
}

func subjects(events []models.CalendarEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Subject
	}
	return out
}
