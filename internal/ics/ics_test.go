package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/darvall/gistcal/internal/models"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(models.TimeLayout, value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return ts
}

func sampleEvent(t *testing.T) models.CalendarEvent {
	t.Helper()
	return models.CalendarEvent{
		Subject:     "Team Sync",
		Start:       at(t, "2025-03-10T09:00:00"),
		End:         at(t, "2025-03-10T09:30:00"),
		Location:    "Room 4",
		Description: "Weekly status",
		UpdatedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func wantLine(t *testing.T, doc, line string) {
	t.Helper()
	if !strings.Contains(doc, line+"\r\n") {
		t.Errorf("document missing line %q:\n%s", line, doc)
	}
}

func TestSynthesize_EmptyCalendar(t *testing.T) {
	got := Synthesize(nil, Options{})
	want := "BEGIN:VCALENDAR\r\n" +
		"VERSION:2.0\r\n" +
		"PRODID:-//gistcal//calendar sync//EN\r\n" +
		"END:VCALENDAR\r\n"
	if got != want {
		t.Errorf("empty calendar = %q, want %q", got, want)
	}

	cal, err := ical.ParseCalendar(strings.NewReader(got))
	if err != nil {
		t.Fatalf("empty calendar does not parse: %v", err)
	}
	if n := len(cal.Events()); n != 0 {
		t.Errorf("parsed %d events from empty calendar", n)
	}
}

func TestSynthesize_SingleEvent(t *testing.T) {
	ev := sampleEvent(t)
	doc := Synthesize([]models.CalendarEvent{ev}, Options{})

	wantLine(t, doc, "BEGIN:VEVENT")
	wantLine(t, doc, "UID:"+ev.UID())
	wantLine(t, doc, "DTSTAMP:20250301T120000Z")
	wantLine(t, doc, "DTSTART:20250310T090000")
	wantLine(t, doc, "DTEND:20250310T093000")
	wantLine(t, doc, "SUMMARY:Team Sync")
	wantLine(t, doc, "LOCATION:Room 4")
	wantLine(t, doc, "DESCRIPTION:Weekly status")
	wantLine(t, doc, "END:VEVENT")

	if strings.Contains(doc, "DTSTART:20250310T090000Z") {
		t.Error("floating start time must not carry a Z suffix")
	}
}

func TestSynthesize_RoundTrip(t *testing.T) {
	ev := sampleEvent(t)
	doc := Synthesize([]models.CalendarEvent{ev}, Options{FoldLines: true})

	cal, err := ical.ParseCalendar(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseCalendar() error = %v", err)
	}
	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("parsed %d events, want 1", len(events))
	}

	parsed := events[0]
	if got := parsed.GetProperty(ical.ComponentPropertyUniqueId).Value; got != ev.UID() {
		t.Errorf("UID = %q, want %q", got, ev.UID())
	}
	if got := parsed.GetProperty(ical.ComponentPropertySummary).Value; got != "Team Sync" {
		t.Errorf("SUMMARY = %q, want %q", got, "Team Sync")
	}
	if got := parsed.GetProperty(ical.ComponentPropertyDtStart).Value; got != "20250310T090000" {
		t.Errorf("DTSTART = %q, want %q", got, "20250310T090000")
	}
}

func TestSynthesize_EscapesText(t *testing.T) {
	ev := sampleEvent(t)
	ev.Subject = `Q3 Planning; Budget, v2\Final`
	ev.Description = "line one\nline two"

	doc := Synthesize([]models.CalendarEvent{ev}, Options{})

	wantLine(t, doc, `SUMMARY:Q3 Planning\; Budget\, v2\\Final`)
	wantLine(t, doc, `DESCRIPTION:line one\nline two`)
}

func TestSynthesize_AllDay(t *testing.T) {
	ev := models.CalendarEvent{
		Subject: "Company Holiday",
		Start:   at(t, "2025-07-04T00:00:00"),
		End:     at(t, "2025-07-05T00:00:00"),
	}

	doc := Synthesize([]models.CalendarEvent{ev}, Options{TimezoneID: "America/Chicago"})

	wantLine(t, doc, "DTSTART;VALUE=DATE:20250704")
	wantLine(t, doc, "DTEND;VALUE=DATE:20250705")
	if strings.Contains(doc, "DTSTART;TZID=") {
		t.Error("all-day start must not carry a TZID parameter")
	}
}

func TestSynthesize_TimezoneLabeling(t *testing.T) {
	ev := sampleEvent(t)
	doc := Synthesize([]models.CalendarEvent{ev}, Options{TimezoneID: "America/Chicago"})

	wantLine(t, doc, "X-WR-TIMEZONE:America/Chicago")
	wantLine(t, doc, "BEGIN:VTIMEZONE")
	wantLine(t, doc, "TZID:America/Chicago")
	wantLine(t, doc, "TZNAME:CDT")
	wantLine(t, doc, "RRULE:FREQ=YEARLY;BYMONTH=3;BYDAY=2SU")
	wantLine(t, doc, "DTSTART;TZID=America/Chicago:20250310T090000")
	wantLine(t, doc, "DTEND;TZID=America/Chicago:20250310T093000")

	cal, err := ical.ParseCalendar(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseCalendar() error = %v", err)
	}
	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("parsed %d events, want 1", len(events))
	}
	start := events[0].GetProperty(ical.ComponentPropertyDtStart)
	if tzs := start.ICalParameters["TZID"]; len(tzs) != 1 || tzs[0] != "America/Chicago" {
		t.Errorf("DTSTART TZID parameters = %v, want [America/Chicago]", tzs)
	}
}

func TestSynthesize_UnknownZoneSkipsVTimezone(t *testing.T) {
	ev := sampleEvent(t)
	doc := Synthesize([]models.CalendarEvent{ev}, Options{TimezoneID: "Europe/Berlin"})

	wantLine(t, doc, "X-WR-TIMEZONE:Europe/Berlin")
	wantLine(t, doc, "DTSTART;TZID=Europe/Berlin:20250310T090000")
	if strings.Contains(doc, "BEGIN:VTIMEZONE") {
		t.Error("unexpected VTIMEZONE block for a zone without a definition")
	}
}

func TestSynthesize_FoldsLongLines(t *testing.T) {
	ev := sampleEvent(t)
	ev.Description = strings.Repeat("The café opens at nine. ", 20)

	doc := Synthesize([]models.CalendarEvent{ev}, Options{FoldLines: true})

	for i, line := range strings.Split(strings.TrimSuffix(doc, "\r\n"), "\r\n") {
		if len(line) > 75 {
			t.Errorf("physical line %d is %d octets: %q", i, len(line), line)
		}
	}

	unfolded := strings.ReplaceAll(doc, "\r\n ", "")
	if !strings.Contains(unfolded, "DESCRIPTION:"+escapeText(ev.Description)) {
		t.Error("unfolding does not restore the description line")
	}

	if _, err := ical.ParseCalendar(strings.NewReader(doc)); err != nil {
		t.Errorf("folded document does not parse: %v", err)
	}
}

func TestSynthesize_CRLFOnly(t *testing.T) {
	doc := Synthesize([]models.CalendarEvent{sampleEvent(t)}, Options{FoldLines: true})

	if !strings.HasSuffix(doc, "\r\n") {
		t.Error("document must end with CRLF")
	}
	if strings.Contains(strings.ReplaceAll(doc, "\r\n", ""), "\n") {
		t.Error("document contains a bare LF")
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	events := []models.CalendarEvent{sampleEvent(t)}
	opts := Options{FoldLines: true, TimezoneID: "America/Chicago"}

	first := Synthesize(events, opts)
	second := Synthesize(events, opts)
	if first != second {
		t.Error("same events produced different documents")
	}
}

func TestEscapeText(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "Team Sync", "Team Sync"},
		{"comma", "a,b", `a\,b`},
		{"semicolon", "a;b", `a\;b`},
		{"backslash", `a\b`, `a\\b`},
		{"newline", "a\nb", `a\nb`},
		{"crlf", "a\r\nb", `a\nb`},
		{"bare cr", "a\rb", `a\nb`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeText(tt.in); got != tt.want {
				t.Errorf("escapeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFoldLine(t *testing.T) {
	t.Run("short line unchanged", func(t *testing.T) {
		got := foldLine("SUMMARY:hi")
		if len(got) != 1 || got[0] != "SUMMARY:hi" {
			t.Errorf("foldLine() = %v", got)
		}
	})

	t.Run("75 octets stays single", func(t *testing.T) {
		line := strings.Repeat("x", 75)
		if got := foldLine(line); len(got) != 1 {
			t.Errorf("foldLine() split a %d-octet line into %d", len(line), len(got))
		}
	})

	t.Run("76 octets splits", func(t *testing.T) {
		got := foldLine(strings.Repeat("x", 76))
		if len(got) != 2 {
			t.Fatalf("foldLine() = %d lines, want 2", len(got))
		}
		if len(got[0]) != 75 {
			t.Errorf("first line is %d octets, want 75", len(got[0]))
		}
		if got[1] != " x" {
			t.Errorf("continuation = %q, want %q", got[1], " x")
		}
	})

	t.Run("never cuts inside a rune", func(t *testing.T) {
		line := strings.Repeat("x", 74) + "é" // é straddles the 75-octet mark
		got := foldLine(line)
		if len(got) != 2 {
			t.Fatalf("foldLine() = %d lines, want 2", len(got))
		}
		if got[0] != strings.Repeat("x", 74) {
			t.Errorf("first line = %q, want 74 x's", got[0])
		}
		if got[1] != " é" {
			t.Errorf("continuation = %q, want %q", got[1], " é")
		}
	})

	t.Run("rejoins to the original", func(t *testing.T) {
		line := "DESCRIPTION:" + strings.Repeat("naïve résumé ", 30)
		var rejoined strings.Builder
		for i, part := range foldLine(line) {
			if len(part) > 75 {
				t.Errorf("part %d is %d octets", i, len(part))
			}
			if i > 0 {
				part = strings.TrimPrefix(part, " ")
			}
			rejoined.WriteString(part)
		}
		if rejoined.String() != line {
			t.Error("folded parts do not rejoin to the original line")
		}
	})
}
