// Package datetime reads and writes the iCalendar DATE and DATE-TIME
// value formats used by RRULE, DTSTART and EXDATE.
package datetime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goical "github.com/emersion/go-ical"
)

// ErrFormat is returned (wrapped) for any value that is not a valid
// DATE, DATE-TIME, UTC offset or duration.
var ErrFormat = errors.New("datetime: invalid format")

const (
	layoutDate     = "20060102"
	layoutDateTime = "20060102T150405"
)

// Parse parses YYYYMMDD or YYYYMMDDTHHMMSS, optionally followed by "Z"
// (UTC) or a numeric offset "+HHMM"/"-HHMM". Values without a zone
// designator are floating and are placed in loc; a nil loc means UTC.
func Parse(value string, loc *time.Location) (time.Time, error) {
	v := strings.TrimSpace(value)
	if loc == nil {
		loc = time.UTC
	}

	if len(v) == len(layoutDate) {
		t, err := time.ParseInLocation(layoutDate, v, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrFormat, value)
		}
		return t, nil
	}

	if len(v) < len(layoutDateTime) || v[8] != 'T' {
		return time.Time{}, fmt.Errorf("%w: %q", ErrFormat, value)
	}

	clock, zone := v[:len(layoutDateTime)], v[len(layoutDateTime):]
	switch {
	case zone == "":
	case zone == "Z" || zone == "z":
		loc = time.UTC
	case zone[0] == '+' || zone[0] == '-':
		off, err := ParseOffset(zone)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrFormat, value)
		}
		loc = time.FixedZone("", off)
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrFormat, value)
	}

	t, err := time.ParseInLocation(layoutDateTime, clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrFormat, value)
	}
	return t, nil
}

// IsDate reports whether value is a bare DATE (no time part).
func IsDate(value string) bool {
	return !strings.ContainsRune(strings.TrimSpace(value), 'T')
}

// Format writes t as DATE-TIME. UTC instants end in "Z", every other
// location is written with its numeric offset at t.
func Format(t time.Time) string {
	if t.Location() == time.UTC {
		return t.Format(layoutDateTime) + "Z"
	}
	_, off := t.Zone()
	return t.Format(layoutDateTime) + FormatOffset(off)
}

// FormatDate writes the civil date of t as YYYYMMDD.
func FormatDate(t time.Time) string {
	return t.Format(layoutDate)
}

// ParseOffset parses a UTC offset of the form ±HHMM or ±HHMMSS and
// returns it in seconds east of UTC.
func ParseOffset(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) != 5 && len(s) != 7 {
		return 0, fmt.Errorf("%w: offset %q", ErrFormat, s)
	}

	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("%w: offset %q", ErrFormat, s)
	}

	fields := []string{s[1:3], s[3:5]}
	if len(s) == 7 {
		fields = append(fields, s[5:7])
	}
	limits := []int{23, 59, 59}
	scale := []int{3600, 60, 1}

	total := 0
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("%w: offset %q", ErrFormat, s)
		}
		total += n * scale[i]
	}
	return sign * total, nil
}

// FormatOffset writes seconds east of UTC as ±HHMM, adding SS only when
// the offset is not a whole minute.
func FormatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	h, m, s := seconds/3600, seconds%3600/60, seconds%60
	if s != 0 {
		return fmt.Sprintf("%c%02d%02d%02d", sign, h, m, s)
	}
	return fmt.Sprintf("%c%02d%02d", sign, h, m)
}

// ParseDuration parses an iCalendar DURATION value such as "PT1H30M",
// "P1D", "-PT15M" or "P2W".
func ParseDuration(value string) (time.Duration, error) {
	v := strings.ToUpper(strings.TrimSpace(value))
	if v == "" {
		return 0, fmt.Errorf("%w: empty duration", ErrFormat)
	}
	prop := goical.NewProp(goical.PropDuration)
	prop.Value = v
	d, err := prop.Duration()
	if err != nil {
		return 0, fmt.Errorf("%w: duration %q: %v", ErrFormat, value, err)
	}
	return d, nil
}
