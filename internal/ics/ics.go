// Package ics renders RFC 5545 calendar documents from calendar events.
// Output is deterministic: the same events always produce the same bytes,
// so publishing can cheaply detect an unchanged document.
package ics

import (
	"strings"

	"github.com/darvall/gistcal/internal/models"
)

// DefaultProdID identifies this implementation in generated calendars.
const DefaultProdID = "-//gistcal//calendar sync//EN"

const utcStampLayout = "20060102T150405Z"

// Options controls document rendering.
type Options struct {
	// ProdID overrides the PRODID property.
	ProdID string
	// FoldLines wraps content lines at 75 octets with space-prefixed
	// continuations per RFC 5545 §3.1.
	FoldLines bool
	// TimezoneID, when set, labels the floating times with a zone:
	// X-WR-TIMEZONE on the calendar, TZID parameters on DTSTART/DTEND,
	// and a VTIMEZONE definition when the zone is a known one. When
	// empty the output is purely floating.
	TimezoneID string
}

// Synthesize renders the events into a VCALENDAR document. Events appear
// in input order; an empty slice yields a valid empty calendar. Lines end
// with CRLF, including the last one.
func Synthesize(events []models.CalendarEvent, opts Options) string {
	prodID := opts.ProdID
	if prodID == "" {
		prodID = DefaultProdID
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
	}
	if opts.TimezoneID != "" {
		lines = append(lines, "X-WR-TIMEZONE:"+opts.TimezoneID)
		lines = append(lines, vtimezoneLines(opts.TimezoneID)...)
	}

	for i := range events {
		lines = append(lines, eventLines(&events[i], opts.TimezoneID)...)
	}
	lines = append(lines, "END:VCALENDAR")

	var b strings.Builder
	for _, line := range lines {
		if opts.FoldLines {
			for _, physical := range foldLine(line) {
				b.WriteString(physical)
				b.WriteString("\r\n")
			}
		} else {
			b.WriteString(line)
			b.WriteString("\r\n")
		}
	}
	return b.String()
}

func eventLines(ev *models.CalendarEvent, tzid string) []string {
	lines := []string{
		"BEGIN:VEVENT",
		"UID:" + ev.UID(),
		"DTSTAMP:" + stampUTC(ev),
	}

	if ev.IsAllDay() {
		// DTEND is exclusive and the stored end already sits on the
		// morning after the last day.
		lines = append(lines,
			"DTSTART;VALUE=DATE:"+ev.Start.Format(models.DateLayout),
			"DTEND;VALUE=DATE:"+ev.End.Format(models.DateLayout),
		)
	} else {
		startProp, endProp := "DTSTART", "DTEND"
		if tzid != "" {
			startProp += ";TZID=" + tzid
			endProp += ";TZID=" + tzid
		}
		lines = append(lines,
			startProp+":"+ev.Start.Format(models.StampLayout),
			endProp+":"+ev.End.Format(models.StampLayout),
		)
	}

	lines = append(lines, "SUMMARY:"+escapeText(ev.Subject))
	if ev.Location != "" {
		lines = append(lines, "LOCATION:"+escapeText(ev.Location))
	}
	if ev.Description != "" {
		lines = append(lines, "DESCRIPTION:"+escapeText(ev.Description))
	}
	return append(lines, "END:VEVENT")
}

// stampUTC derives DTSTAMP from the record's last modification, so the
// rendered document only changes when the event does. Events that never
// passed through the store fall back to their start time.
func stampUTC(ev *models.CalendarEvent) string {
	ts := ev.UpdatedAt
	if ts.IsZero() {
		ts = ev.Start
	}
	return ts.UTC().Format(utcStampLayout)
}
