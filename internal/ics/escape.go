package ics

import (
	"strings"
	"unicode/utf8"
)

// textEscaper implements RFC 5545 §3.3.11 TEXT escaping. Backslash first
// so escapes are not re-escaped; CRLF before its parts so newlines of any
// flavor collapse to a single literal \n.
var textEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"\r\n", "\\n",
	"\n", "\\n",
	"\r", "\\n",
	";", "\\;",
	",", "\\,",
)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

// foldLine splits a content line into physical lines of at most 75 octets.
// Continuation lines begin with a single space that counts against their
// budget, and cuts never land inside a UTF-8 sequence.
func foldLine(line string) []string {
	const limit = 75
	if len(line) <= limit {
		return []string{line}
	}

	var out []string
	budget := limit
	for len(line) > budget {
		cut := budget
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		out = append(out, line[:cut])
		line = line[cut:]
		budget = limit - 1
	}
	out = append(out, line)

	for i := 1; i < len(out); i++ {
		out[i] = " " + out[i]
	}
	return out
}
