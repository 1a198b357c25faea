package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// endOfDay is applied to every bare calendar date: 23:59:59 UTC.
const endOfDay = 24*time.Hour - time.Second

var (
	relativePattern = regexp.MustCompile(`^in\s+(\d+)\s+(minute|hour|day|week|month)s?$`)
	ordinalPattern  = regexp.MustCompile(`(\d+)(?:st|nd|rd|th)\b`)
	unixPattern     = regexp.MustCompile(`^\d{9,11}$`)
)

// Layouts that carry a time of day; kept as given, in UTC when no zone.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Layouts that are bare calendar dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2 January, 2006",
}

// ParseDate parses the end-date forms accepted in chat. Bare calendar dates
// resolve to 23:59:59 UTC of that day, relative forms ("in 3 days") are
// added to now, and Unix seconds are taken literally.
func ParseDate(s string, now time.Time) (time.Time, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return time.Time{}, fmt.Errorf("catalog: empty date")
	}
	lower := strings.ToLower(in)

	if m := relativePattern.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "minute":
			return now.Add(time.Duration(n) * time.Minute).UTC(), nil
		case "hour":
			return now.Add(time.Duration(n) * time.Hour).UTC(), nil
		case "day":
			return now.AddDate(0, 0, n).UTC(), nil
		case "week":
			return now.AddDate(0, 0, 7*n).UTC(), nil
		case "month":
			return now.AddDate(0, n, 0).UTC(), nil
		}
	}
	switch lower {
	case "tomorrow":
		return endOf(now.UTC().AddDate(0, 0, 1)), nil
	case "next week":
		return endOf(now.UTC().AddDate(0, 0, 7)), nil
	}

	if unixPattern.MatchString(in) {
		n, err := strconv.ParseInt(in, 10, 64)
		if err == nil {
			return time.Unix(n, 0).UTC(), nil
		}
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, in); err == nil {
			return t.UTC(), nil
		}
	}

	cleaned := ordinalPattern.ReplaceAllString(in, "$1")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return endOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("catalog: unrecognised date %q", s)
}

func endOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(endOfDay)
}
