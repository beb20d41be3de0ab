// Package timeparse handles the bot's fixed date/time input format:
// "YYYY MM DD HHMM - HHMM" for a range and "YYYY MM DD HHMM" for a single
// point in time. Malformed input is reported as ok=false, never as an
// error; callers reprompt the user.
package timeparse

import (
	"strconv"
	"strings"
	"time"
)

const (
	StartLayout = "2006 01 02 1504"
	EndLayout   = "1504"
)

// ParseRange parses "YYYY MM DD HHMM - HHMM". Both timestamps are anchored
// to the same calendar date in loc; the first HHMM is the start time of
// day, the second the end time of day. The end time is not required to be
// after the start time.
func ParseRange(text string, loc *time.Location) (time.Time, time.Time, bool) {
	datePart, timePart, found := strings.Cut(text, "-")
	if !found {
		return time.Time{}, time.Time{}, false
	}

	fields := strings.Fields(datePart)
	if len(fields) != 4 {
		return time.Time{}, time.Time{}, false
	}

	start, ok := buildTime(fields[0], fields[1], fields[2], fields[3], loc)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := buildTime(fields[0], fields[1], fields[2], strings.TrimSpace(timePart), loc)
	if !ok {
		return time.Time{}, time.Time{}, false
	}

	return start, end, true
}

// ParseSingle parses "YYYY MM DD HHMM".
func ParseSingle(text string, loc *time.Location) (time.Time, bool) {
	fields := strings.Fields(text)
	if len(fields) != 4 {
		return time.Time{}, false
	}
	return buildTime(fields[0], fields[1], fields[2], fields[3], loc)
}

// buildTime validates calendar values explicitly: time.Date normalizes
// out-of-range components (month 13 becomes January) instead of rejecting
// them.
func buildTime(year, month, day, hm string, loc *time.Location) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	mo, err := strconv.Atoi(month)
	if err != nil || mo < 1 || mo > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > daysIn(y, time.Month(mo)) {
		return time.Time{}, false
	}

	if len(hm) != 4 {
		return time.Time{}, false
	}
	h, err := strconv.Atoi(hm[:2])
	if err != nil || h < 0 || h > 23 {
		return time.Time{}, false
	}
	mi, err := strconv.Atoi(hm[2:])
	if err != nil || mi < 0 || mi > 59 {
		return time.Time{}, false
	}

	return time.Date(y, time.Month(mo), d, h, mi, 0, 0, loc), true
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FormatRange renders a (start, end) pair back into the input format.
func FormatRange(start time.Time, end *time.Time) string {
	s := start.Format(StartLayout)
	if end != nil {
		s += " - " + end.Format(EndLayout)
	}
	return s
}

// FormatStoredRange renders the persisted RFC3339 pair in loc. Stored
// values are written by the repository, so a parse failure here means a
// corrupted row; the raw text is returned as a fallback.
func FormatStoredRange(startTS string, endTS *string, loc *time.Location) string {
	start, err := time.Parse(time.RFC3339, startTS)
	if err != nil {
		return startTS
	}

	var end *time.Time
	if endTS != nil {
		e, err := time.Parse(time.RFC3339, *endTS)
		if err != nil {
			return startTS
		}
		e = e.In(loc)
		end = &e
	}

	return FormatRange(start.In(loc), end)
}
