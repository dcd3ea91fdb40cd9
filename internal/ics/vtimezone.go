package ics

// usZone describes a US timezone following the post-2007 DST rules
// (daylight starts second Sunday of March, standard resumes first Sunday
// of November).
type usZone struct {
	standardName, daylightName     string
	standardOffset, daylightOffset string
}

var usZones = map[string]usZone{
	"America/New_York":    {"EST", "EDT", "-0500", "-0400"},
	"America/Chicago":     {"CST", "CDT", "-0600", "-0500"},
	"America/Denver":      {"MST", "MDT", "-0700", "-0600"},
	"America/Los_Angeles": {"PST", "PDT", "-0800", "-0700"},
}

// vtimezoneLines returns a VTIMEZONE component for the given zone, or nil
// when no definition is known. Calendar clients fall back to the bare
// TZID parameter in that case.
func vtimezoneLines(tzid string) []string {
	if tzid == "UTC" {
		return []string{
			"BEGIN:VTIMEZONE",
			"TZID:UTC",
			"BEGIN:STANDARD",
			"TZOFFSETFROM:+0000",
			"TZOFFSETTO:+0000",
			"TZNAME:UTC",
			"DTSTART:19700101T000000",
			"END:STANDARD",
			"END:VTIMEZONE",
		}
	}

	z, ok := usZones[tzid]
	if !ok {
		return nil
	}
	return []string{
		"BEGIN:VTIMEZONE",
		"TZID:" + tzid,
		"X-LIC-LOCATION:" + tzid,
		"BEGIN:DAYLIGHT",
		"TZOFFSETFROM:" + z.standardOffset,
		"TZOFFSETTO:" + z.daylightOffset,
		"TZNAME:" + z.daylightName,
		"DTSTART:19700308T020000",
		"RRULE:FREQ=YEARLY;BYMONTH=3;BYDAY=2SU",
		"END:DAYLIGHT",
		"BEGIN:STANDARD",
		"TZOFFSETFROM:" + z.daylightOffset,
		"TZOFFSETTO:" + z.standardOffset,
		"TZNAME:" + z.standardName,
		"DTSTART:19701101T020000",
		"RRULE:FREQ=YEARLY;BYMONTH=11;BYDAY=1SU",
		"END:STANDARD",
		"END:VTIMEZONE",
	}
}
