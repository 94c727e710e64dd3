package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"rrcal/internal/datetime"
)

var whenParser = newWhenParser()

func newWhenParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// parseWhen reads a window bound. Accepted forms, tried in order:
// iCalendar DATE / DATE-TIME, RFC 3339, YYYY-MM-DD, then natural
// language relative to now ("tomorrow", "next friday 10am").
// Unqualified values are read in loc.
func parseWhen(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := datetime.Parse(s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}

	r, err := whenParser.Parse(s, now.In(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	return r.Time, nil
}

// window resolves --from/--to. A missing bound defaults to now for from
// and from+days for to.
func window(from, to string, days int, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	begin, end := now, time.Time{}
	var err error
	if from != "" {
		if begin, err = parseWhen(from, now, loc); err != nil {
			return begin, end, fmt.Errorf("--from: %w", err)
		}
	}
	if to != "" {
		if end, err = parseWhen(to, now, loc); err != nil {
			return begin, end, fmt.Errorf("--to: %w", err)
		}
	} else {
		end = begin.AddDate(0, 0, days)
	}
	if !begin.Before(end) {
		return begin, end, fmt.Errorf("empty window %s .. %s", datetime.Format(begin), datetime.Format(end))
	}
	return begin, end, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
