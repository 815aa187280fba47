package report

import (
	"strings"
	"time"

	"complaintdesk/internal/apperr"
)

const dateLayout = "2006-01-02"

// Range is an inclusive window of whole calendar days, stored in UTC.
type Range struct {
	Start time.Time
	End   time.Time
}

// ParseRange turns two calendar dates into a Range. Each date is either
// YYYY-MM-DD or an RFC3339 timestamp whose date part is taken in loc. The start
// is the first millisecond of its day in loc and the end the last.
func ParseRange(start, end string, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return Range{}, apperr.InvalidRange("Invalid or missing start/end date query parameters.")
	}

	s, okS := parseDay(start, loc)
	e, okE := parseDay(end, loc)
	if !okS || !okE {
		return Range{}, apperr.InvalidRange("Invalid or missing start/end date query parameters.")
	}

	from := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
	to := time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
	if from.After(to) {
		return Range{}, apperr.InvalidRange("Start date cannot be after end date.")
	}
	return Range{Start: from.UTC(), End: to.UTC()}, nil
}

func parseDay(v string, loc *time.Location) (time.Time, bool) {
	if t, err := time.ParseInLocation(dateLayout, v, loc); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(loc), true
	}
	return time.Time{}, false
}
