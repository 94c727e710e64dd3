// Package calendar holds parsed events and merges their occurrences
// into one time-ordered stream.
package calendar

import (
	"fmt"
	"time"

	"rrcal/internal/datetime"
	"rrcal/internal/rrule"
	"rrcal/internal/tzmap"
)

// Event is a single VEVENT. It is read-only once built.
type Event struct {
	// Source is the id of the calendar source the event came from.
	Source   string
	UID      string
	Summary  string
	Location string

	Start    time.Time
	Duration time.Duration
	AllDay   bool

	// Rule is nil for events that do not recur.
	Rule       *rrule.Rule
	Exclusions rrule.Exclusions
}

// NewEvent returns an event starting at start. A nil rule means the
// event happens once.
func NewEvent(uid string, start time.Time, rule *rrule.Rule, excl rrule.Exclusions) *Event {
	if excl == nil {
		excl = rrule.NewExclusions()
	}
	return &Event{UID: uid, Start: start, Rule: rule, Exclusions: excl}
}

// Occurrences returns a fresh iterator over the event's start instants.
func (e *Event) Occurrences() (*rrule.Iterator, error) {
	rule := e.Rule
	if rule == nil {
		rule = rrule.Single()
	}
	return rule.Iterator(e.Start, e.Exclusions)
}

func (e *Event) String() string {
	rule := "once"
	if e.Rule != nil {
		rule = e.Rule.Value()
	}
	return fmt.Sprintf("%s %s %q [%s]", e.UID, datetime.Format(e.Start), e.Summary, rule)
}

// Entry is one occurrence of an Event.
type Entry struct {
	Start time.Time
	Event *Event
}

func (en Entry) End() time.Time {
	return en.Start.Add(en.Event.Duration)
}

// String renders "start end summary", with both instants in the
// occurrence's own location.
func (en Entry) String() string {
	return datetime.Format(en.Start) + " " + datetime.Format(en.End()) + " " + en.Event.Summary
}

// Calendar is the result of parsing one VCALENDAR.
type Calendar struct {
	// Source is the id of the source the calendar was loaded from.
	Source string
	Name   string
	TZ     *tzmap.Map
	Events []*Event
}

// Entries iterates the calendar's occurrences in [begin, end).
func (c *Calendar) Entries(begin, end time.Time) *Iter {
	return NewIter(c.Events, begin, end)
}

// Events concatenates the events of cals, preserving their order. The
// result is what NewIter uses to break ties between calendars.
func Events(cals ...*Calendar) []*Event {
	var out []*Event
	for _, c := range cals {
		if c != nil {
			out = append(out, c.Events...)
		}
	}
	return out
}
