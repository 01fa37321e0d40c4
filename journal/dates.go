package journal

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DateString formats t as YYYY-MM-DD in t's own location.
func DateString(t time.Time) string {
	return t.Format(dateLayout)
}

// DirectoryDate formats t as the MM_DD name of its export directory.
func DirectoryDate(t time.Time) string {
	return t.Format("01_02")
}

// Yesterday returns midnight of the day before now, in now's location.
func Yesterday(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-1, 0, 0, 0, 0, now.Location())
}

// ParseDate parses a YYYY-MM-DD date as midnight in loc. A nil loc means time.Local.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseDate: %q: %w", s, err)
	}
	return t, nil
}

// ExportRange returns the exporter's start and end dates for a single day: the day itself, inclusive, up to
// the next day, exclusive.
func ExportRange(day time.Time) (start, end string) {
	y, m, d := day.Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, day.Location())
	return DateString(day), DateString(next)
}

// DaysBetween lists every day from start through end, inclusive. It returns nil when end is before start.
func DaysBetween(start, end time.Time) []time.Time {
	y, m, d := start.Date()
	first := time.Date(y, m, d, 0, 0, 0, 0, start.Location())
	ey, em, ed := end.Date()
	last := time.Date(ey, em, ed, 0, 0, 0, 0, start.Location())

	var days []time.Time
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

// DateFromDirectory turns an MM_DD export directory name back into a date. The year is now's year, or the
// previous year when that would put the date after now.
func DateFromDirectory(dateDir string, now time.Time) (time.Time, error) {
	t, err := time.ParseInLocation("01_02", dateDir, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("DateFromDirectory: %q: %w", dateDir, err)
	}
	day := time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
	if day.After(now) {
		day = day.AddDate(-1, 0, 0)
	}
	return day, nil
}
