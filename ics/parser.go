// ABOUTME: Line-oriented reader for VEVENT blocks in iCalendar files
// ABOUTME: Extracts summary, times, description and location, reporting skipped events
package ics

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// Event is one VEVENT with dates already in ISO-8601.
type Event struct {
	Summary     string
	Description string
	Location    string
	Start       string
	End         string
	Line        int
}

// Skip records a VEVENT that could not be turned into an event.
type Skip struct {
	Line   int
	Reason string
}

type Parsed struct {
	Events  []Event
	Skipped []Skip
}

const (
	ReasonNoSummary  = "missing SUMMARY"
	ReasonNoStart    = "missing DTSTART"
	ReasonBadStart   = "malformed DTSTART"
	ReasonBadEnd     = "malformed DTEND"
	ReasonUnfinished = "unterminated VEVENT"
)

// Parse scans r for BEGIN:VEVENT/END:VEVENT blocks. Property parameters
// such as TZID are ignored; folded lines, escapes and recurrence rules
// are not interpreted.
func Parse(r io.Reader) (Parsed, error) {
	var (
		out     Parsed
		current *Event
		nested  int
		lineNo  int
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		upper := strings.ToUpper(line)

		switch {
		case upper == "BEGIN:VEVENT":
			if current != nil {
				out.Skipped = append(out.Skipped, Skip{Line: current.Line, Reason: ReasonUnfinished})
			}
			current = &Event{Line: lineNo}
			nested = 0
			continue
		case current == nil:
			continue
		case strings.HasPrefix(upper, "BEGIN:"):
			// VALARM and friends carry their own DESCRIPTION.
			nested++
			continue
		case strings.HasPrefix(upper, "END:") && nested > 0:
			nested--
			continue
		case upper == "END:VEVENT":
			if ev, skip := finish(*current); skip != "" {
				out.Skipped = append(out.Skipped, Skip{Line: current.Line, Reason: skip})
			} else {
				out.Events = append(out.Events, ev)
			}
			current = nil
			continue
		}
		if nested > 0 {
			continue
		}

		name, value, ok := property(line)
		if !ok {
			continue
		}
		switch name {
		case "SUMMARY":
			current.Summary = value
		case "DTSTART":
			current.Start = value
		case "DTEND":
			current.End = value
		case "DESCRIPTION":
			current.Description = value
		case "LOCATION":
			current.Location = value
		}
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("failed to read calendar: %w", err)
	}
	if current != nil {
		out.Skipped = append(out.Skipped, Skip{Line: current.Line, Reason: ReasonUnfinished})
	}
	return out, nil
}

// finish validates a raw block and converts its dates.
func finish(raw Event) (Event, string) {
	if strings.TrimSpace(raw.Summary) == "" {
		return Event{}, ReasonNoSummary
	}
	if strings.TrimSpace(raw.Start) == "" {
		return Event{}, ReasonNoStart
	}
	start, err := FormatDate(raw.Start)
	if err != nil {
		return Event{}, ReasonBadStart
	}
	end := start
	if strings.TrimSpace(raw.End) != "" {
		if end, err = FormatDate(raw.End); err != nil {
			return Event{}, ReasonBadEnd
		}
	}
	raw.Summary = strings.TrimSpace(raw.Summary)
	raw.Start = start
	raw.End = end
	return raw, ""
}

// property splits "NAME;PARAM=x:value" into NAME and value.
func property(line string) (string, string, bool) {
	head, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	name, _, _ := strings.Cut(head, ";")
	return strings.ToUpper(strings.TrimSpace(name)), strings.TrimSpace(value), true
}

var dateForms = []struct {
	in, out string
}{
	{"20060102T150405Z", "2006-01-02T15:04:05Z"},
	{"20060102T150405", "2006-01-02T15:04:05"},
	{"20060102", "2006-01-02T00:00:00Z"},
}

// FormatDate rewrites YYYYMMDD[THHMMSS[Z]] as ISO-8601. Anything that is
// not a real calendar date is an error.
func FormatDate(v string) (string, error) {
	v = strings.TrimSpace(v)
	for _, f := range dateForms {
		if len(v) != len(f.in) {
			continue
		}
		t, err := time.Parse(f.in, v)
		if err != nil {
			continue
		}
		return t.Format(f.out), nil
	}
	return "", fmt.Errorf("unrecognized iCalendar date %q", v)
}
