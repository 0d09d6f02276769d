// Package period resolves calendar-month selectors into inclusive time windows and
// parses the date strings stored on engagement and recap documents.
package period

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidMonth is returned for selectors that are not YYYY-MM.
var ErrInvalidMonth = errors.New("invalid month")

// ErrInvalidDate is returned for date strings in none of the accepted formats.
var ErrInvalidDate = errors.New("invalid date")

// EngagementDateLayout is the MM/DD/YYYY layout written to LastEngagement.Date.
const EngagementDateLayout = "01/02/2006"

// Month is a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a "YYYY-MM" selector.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("%w %q: expected YYYY-MM", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// Of returns the month containing t.
func Of(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// IsZero reports whether m is unset.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// String returns the "YYYY-MM" selector form.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// MarshalText encodes the month as YYYY-MM.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a YYYY-MM month.
func (m *Month) UnmarshalText(text []byte) error {
	parsed, err := ParseMonth(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Name returns the English month name, for example "March".
func (m Month) Name() string {
	return m.Month.String()
}

// Label returns "March 2024".
func (m Month) Label() string {
	return fmt.Sprintf("%s %d", m.Name(), m.Year)
}

// Key returns the monthly marker document id, "March-2024".
func (m Month) Key() string {
	return fmt.Sprintf("%s-%d", m.Name(), m.Year)
}

// Stem returns the archive file stem, "March2024".
func (m Month) Stem() string {
	return fmt.Sprintf("%s%d", m.Name(), m.Year)
}

// Window returns the inclusive window from the first day 00:00:00 to the last day
// 23:59:59 of the month in loc.
func (m Month) Window(loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	start := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
	lastDay := start.AddDate(0, 1, -1)
	end := time.Date(lastDay.Year(), lastDay.Month(), lastDay.Day(), 23, 59, 59, 0, loc)
	return Window{Start: start, End: end}
}

// Contains reports whether t falls on a day of this month when viewed in loc.
func (m Month) Contains(t time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return t.Year() == m.Year && t.Month() == m.Month
}

// End returns the last instant of the month window, used as a stable generation time.
func (m Month) End(loc *time.Location) time.Time {
	return m.Window(loc).End
}

// Window is an inclusive time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether Start <= t <= End.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ParseEngagementDate parses the M/D/YYYY strings stored on LastEngagement, with or
// without zero padding, as midnight in loc.
func ParseEngagementDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w %q: expected M/D/YYYY", ErrInvalidDate, s)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w %q: expected M/D/YYYY", ErrInvalidDate, s)
		}
		nums[i] = n
	}
	month, day, year := nums[0], nums[1], nums[2]
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1000 {
		return time.Time{}, fmt.Errorf("%w %q: out of range", ErrInvalidDate, s)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day {
		// 2/30 and friends normalize into the next month.
		return time.Time{}, fmt.Errorf("%w %q: no such day", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatEngagementDate returns the MM/DD/YYYY string written to LastEngagement.
func FormatEngagementDate(t time.Time) string {
	return t.Format(EngagementDateLayout)
}

var recapLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// ParseRecapDate parses a recap date. ISO-8601 dates and timestamps are accepted as
// well as the M/D/YYYY engagement format. Date-only values are midnight in loc.
func ParseRecapDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	for _, layout := range recapLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if t, err := ParseEngagementDate(s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w %q", ErrInvalidDate, s)
}
