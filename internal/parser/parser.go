// Package parser turns Outlook CSV exports into calendar events.
package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/darvall/gistcal/internal/apperr"
	"github.com/darvall/gistcal/internal/models"
)

// Default Go reference layouts for the Outlook export format
// ("03/10/2025", "9:00 AM"). Layouts are configuration, never guessed
// from the data.
const (
	DefaultDateLayout = "01/02/2006"
	DefaultTimeLayout = "3:04 PM"
)

// Required and optional header columns. Names are matched case-sensitively
// after trimming surrounding whitespace; column order is insignificant and
// unknown columns are ignored.
const (
	colSubject     = "Subject"
	colStartDate   = "Start Date"
	colStartTime   = "Start Time"
	colEndDate     = "End Date"
	colEndTime     = "End Time"
	colLocation    = "Location"
	colDescription = "Description"
)

var requiredColumns = []string{colSubject, colStartDate, colStartTime, colEndDate, colEndTime}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configures the date and time layouts used for row parsing.
type Options struct {
	DateLayout string
	TimeLayout string
}

func (o Options) withDefaults() Options {
	if o.DateLayout == "" {
		o.DateLayout = DefaultDateLayout
	}
	if o.TimeLayout == "" {
		o.TimeLayout = DefaultTimeLayout
	}
	return o
}

// RowError describes a single rejected data row. Row is 1-based, counting
// from the first row after the header.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Result holds the parsed events plus the rows that failed validation.
// A failed row never silently disappears: it is either in Events or in
// Failures.
type Result struct {
	Events   []models.CalendarEvent
	Failures []RowError
}

// Parse reads an Outlook CSV export and returns the valid events together
// with per-row failures. A missing required column aborts the whole batch
// with an error wrapping apperr.ErrInvalidHeader; everything else is
// reported per row so one bad line cannot sink an import.
func Parse(r io.Reader, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	cr := csv.NewReader(stripBOM(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("parser: %w: empty input", apperr.ErrInvalidHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("parser: read header: %w", err)
	}

	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	row := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			res.Failures = append(res.Failures, RowError{Row: row, Reason: fmt.Sprintf("malformed csv: %v", err)})
			continue
		}

		ev, reason := buildEvent(record, cols, opts)
		if reason != "" {
			res.Failures = append(res.Failures, RowError{Row: row, Reason: reason})
			continue
		}
		res.Events = append(res.Events, ev)
	}
	return res, nil
}

// columns maps header names to record indexes; -1 means absent (only
// possible for the optional columns).
type columns struct {
	subject, startDate, startTime, endDate, endTime, location, description int
}

func mapHeader(header []string) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := idx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return columns{}, fmt.Errorf("parser: %w: missing column(s): %s",
			apperr.ErrInvalidHeader, strings.Join(missing, ", "))
	}

	lookup := func(name string) int {
		if i, ok := idx[name]; ok {
			return i
		}
		return -1
	}
	return columns{
		subject:     idx[colSubject],
		startDate:   idx[colStartDate],
		startTime:   idx[colStartTime],
		endDate:     idx[colEndDate],
		endTime:     idx[colEndTime],
		location:    lookup(colLocation),
		description: lookup(colDescription),
	}, nil
}

// buildEvent validates one record. It returns the event and an empty
// reason on success, or a zero event and the rejection reason.
func buildEvent(record []string, cols columns, opts Options) (models.CalendarEvent, string) {
	cell := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	subject := cell(cols.subject)
	if subject == "" {
		return models.CalendarEvent{}, "empty subject"
	}

	start, err := parseStamp(cell(cols.startDate), cell(cols.startTime), opts)
	if err != nil {
		return models.CalendarEvent{}, fmt.Sprintf("invalid start: %v", err)
	}
	end, err := parseStamp(cell(cols.endDate), cell(cols.endTime), opts)
	if err != nil {
		return models.CalendarEvent{}, fmt.Sprintf("invalid end: %v", err)
	}

	ev := models.CalendarEvent{
		Subject:     subject,
		Start:       start,
		End:         end,
		Location:    cell(cols.location),
		Description: cell(cols.description),
	}
	if err := ev.Validate(); err != nil {
		return models.CalendarEvent{}, err.Error()
	}
	return ev, ""
}

// parseStamp combines a date and time cell into a floating wall-clock
// value. The zone on the returned time is insignificant.
func parseStamp(date, clock string, opts Options) (time.Time, error) {
	if date == "" {
		return time.Time{}, errors.New("missing date")
	}
	if clock == "" {
		return time.Time{}, errors.New("missing time")
	}
	t, err := time.Parse(opts.DateLayout+" "+opts.TimeLayout, date+" "+clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q %q: %w", date, clock, err)
	}
	return t, nil
}

// stripBOM removes a leading UTF-8 byte order mark. Outlook exports
// usually carry one and encoding/csv would otherwise fold it into the
// first header name.
func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	lead, err := br.Peek(len(utf8BOM))
	if err == nil && bytes.Equal(lead, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}
