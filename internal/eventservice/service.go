// Package eventservice coordinates CSV ingest, deduplicated storage,
// calendar synthesis, and publishing.
package eventservice

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/darvall/gistcal/internal/apperr"
	"github.com/darvall/gistcal/internal/ics"
	"github.com/darvall/gistcal/internal/models"
	"github.com/darvall/gistcal/internal/parser"
	"github.com/darvall/gistcal/internal/publish"
	"github.com/darvall/gistcal/internal/store"
	"github.com/darvall/gistcal/internal/window"
)

// Change kinds reported through the notify callback.
const (
	ChangeUpdated   = "calendar.updated"
	ChangePublished = "calendar.published"
)

// IngestReport summarizes one CSV ingest: what the batch did to the store
// and which rows were rejected.
type IngestReport struct {
	Parsed    int               `json:"parsed"`
	Created   []string          `json:"created"`
	Updated   []string          `json:"updated"`
	Unchanged int               `json:"unchanged"`
	Failures  []parser.RowError `json:"failures,omitempty"`
}

// Calendar is a rendered document together with the window it covers.
type Calendar struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Events   int       `json:"events"`
	Document string    `json:"-"`
}

// PublishReport describes a completed publish.
type PublishReport struct {
	RawURL    string    `json:"raw_url"`
	WebcalURL string    `json:"webcal_url"`
	Skipped   bool      `json:"skipped,omitempty"`
	Events    int       `json:"events"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	At        time.Time `json:"published_at"`
}

// SyncReport combines an ingest with the publish that followed it. A
// failed publish leaves Ingest intact and records the failure instead of
// discarding the batch.
type SyncReport struct {
	Ingest       *IngestReport  `json:"ingest"`
	Publish      *PublishReport `json:"publish,omitempty"`
	PublishError string         `json:"publish_error,omitempty"`
}

// Status is a snapshot of the pipeline for health and inspection.
type Status struct {
	Events        int             `json:"events"`
	WindowMonths  int             `json:"window_months"`
	WindowFrom    time.Time       `json:"window_from"`
	WindowTo      time.Time       `json:"window_to"`
	Publishing    bool            `json:"publishing_enabled"`
	LastIngestAt  *time.Time      `json:"last_ingest_at,omitempty"`
	LastPublishAt *time.Time      `json:"last_publish_at,omitempty"`
	LastPublish   *publish.Result `json:"last_publish,omitempty"`
}

// Config tunes the pipeline.
type Config struct {
	// WindowMonths is the publication horizon; zero means the default.
	WindowMonths int
	// CSV controls how uploaded spreadsheets are read.
	CSV parser.Options
	// ICS controls document rendering.
	ICS ics.Options
}

// Service coordinates store, renderer, and publisher. A nil publisher
// disables publishing without disabling the rest of the pipeline.
type Service struct {
	store  store.EventStore
	pub    publish.Publisher
	cfg    Config
	notify func(kind, detail string)

	mu            sync.Mutex
	lastIngestAt  time.Time
	lastPublishAt time.Time
	lastPublish   *publish.Result
}

// NewService creates the pipeline service.
func NewService(st store.EventStore, pub publish.Publisher, cfg Config) *Service {
	if cfg.WindowMonths <= 0 {
		cfg.WindowMonths = window.DefaultMonths
	}
	return &Service{store: st, pub: pub, cfg: cfg}
}

// SetNotify registers a callback invoked after the calendar changes or is
// published. Used to feed the SSE broker.
func (s *Service) SetNotify(fn func(kind, detail string)) {
	s.notify = fn
}

func (s *Service) emit(kind, detail string) {
	if s.notify != nil {
		s.notify(kind, detail)
	}
}

// Window returns the publication window anchored at now.
func (s *Service) Window(now time.Time) (time.Time, time.Time) {
	return window.Range(now, s.cfg.WindowMonths)
}

// Ingest parses a CSV export and upserts the parsed events as one batch.
// Row-level failures are reported, not fatal; a malformed header or a
// store failure aborts the whole ingest.
func (s *Service) Ingest(_ context.Context, r io.Reader) (*IngestReport, error) {
	res, err := parser.Parse(r, s.cfg.CSV)
	if err != nil {
		return nil, err
	}

	batch, err := s.store.UpsertBatch(res.Events)
	if err != nil {
		return nil, err
	}

	report := &IngestReport{
		Parsed:    len(res.Events),
		Created:   batch.Created,
		Updated:   batch.Updated,
		Unchanged: batch.Unchanged,
		Failures:  res.Failures,
	}

	s.mu.Lock()
	s.lastIngestAt = time.Now()
	s.mu.Unlock()

	if len(batch.Created)+len(batch.Updated) > 0 {
		s.emit(ChangeUpdated, fmt.Sprintf("%d created, %d updated", len(batch.Created), len(batch.Updated)))
	}
	return report, nil
}

// BuildCalendar renders the events inside the window anchored at now.
func (s *Service) BuildCalendar(_ context.Context, now time.Time) (*Calendar, error) {
	from, to := s.Window(now)
	events, err := s.store.QueryRange(from, to)
	if err != nil {
		return nil, err
	}
	return &Calendar{
		From:     from,
		To:       to,
		Events:   len(events),
		Document: ics.Synthesize(events, s.cfg.ICS),
	}, nil
}

// PublishCalendar renders the current window and uploads it.
func (s *Service) PublishCalendar(ctx context.Context, now time.Time) (*PublishReport, error) {
	if s.pub == nil {
		return nil, fmt.Errorf("eventservice: %w", apperr.ErrPublishDisabled)
	}

	cal, err := s.BuildCalendar(ctx, now)
	if err != nil {
		return nil, err
	}

	res, err := s.pub.Publish(ctx, cal.Document)
	if err != nil {
		return nil, err
	}

	at := time.Now()
	s.mu.Lock()
	s.lastPublishAt = at
	s.lastPublish = res
	s.mu.Unlock()

	if !res.Skipped {
		s.emit(ChangePublished, res.RawURL)
	}
	return &PublishReport{
		RawURL:    res.RawURL,
		WebcalURL: res.WebcalURL,
		Skipped:   res.Skipped,
		Events:    cal.Events,
		From:      cal.From,
		To:        cal.To,
		At:        at,
	}, nil
}

// Sync ingests a CSV export and, when enabled, publishes the refreshed
// window. A publish failure is recorded in the report and returned as the
// error, but the stored batch stays committed.
func (s *Service) Sync(ctx context.Context, r io.Reader, now time.Time, doPublish bool) (*SyncReport, error) {
	ingest, err := s.Ingest(ctx, r)
	if err != nil {
		return nil, err
	}
	report := &SyncReport{Ingest: ingest}

	if !doPublish || s.pub == nil {
		return report, nil
	}

	pub, err := s.PublishCalendar(ctx, now)
	if err != nil {
		report.PublishError = err.Error()
		return report, err
	}
	report.Publish = pub
	return report, nil
}

// List returns the events inside the window anchored at now, or every
// stored event when all is set.
func (s *Service) List(_ context.Context, all bool, now time.Time) ([]models.CalendarEvent, error) {
	if all {
		return s.store.All()
	}
	from, to := s.Window(now)
	return s.store.QueryRange(from, to)
}

// Get returns a single event by UID.
func (s *Service) Get(_ context.Context, uid string) (*models.CalendarEvent, error) {
	return s.store.Get(uid)
}

// Search matches the query against subjects and descriptions.
func (s *Service) Search(_ context.Context, query string, limit int) ([]models.CalendarEvent, error) {
	return s.store.Search(query, limit)
}

// Clear removes every stored event and reports how many were deleted.
func (s *Service) Clear(_ context.Context) (int64, error) {
	n, err := s.store.Clear()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.emit(ChangeUpdated, fmt.Sprintf("%d cleared", n))
	}
	return n, nil
}

// Status reports pipeline state anchored at now.
func (s *Service) Status(_ context.Context, now time.Time) (*Status, error) {
	count, err := s.store.Count()
	if err != nil {
		return nil, err
	}
	from, to := s.Window(now)

	st := &Status{
		Events:       count,
		WindowMonths: s.cfg.WindowMonths,
		WindowFrom:   from,
		WindowTo:     to,
		Publishing:   s.pub != nil,
	}

	s.mu.Lock()
	if !s.lastIngestAt.IsZero() {
		t := s.lastIngestAt
		st.LastIngestAt = &t
	}
	if !s.lastPublishAt.IsZero() {
		t := s.lastPublishAt
		st.LastPublishAt = &t
	}
	st.LastPublish = s.lastPublish
	s.mu.Unlock()

	return st, nil
}
