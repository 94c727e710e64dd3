// Package rrule implements the iCalendar RRULE data model, its text form
// and a lazy occurrence Iterator.
package rrule

import (
	"slices"
	"time"

	"github.com/samber/mo"
)

// Rule is a parsed recurrence rule. BY* lists keep the order they were
// written in; the Iterator sorts its own copies.
type Rule struct {
	Freq      Frequency
	Interval  int
	WeekStart Weekday

	Count mo.Option[int]
	Until mo.Option[time.Time]

	BySecond   []int
	ByMinute   []int
	ByHour     []int
	ByDay      []WeekdayNum
	ByMonthDay []int
	ByYearDay  []int
	ByWeekNo   []int
	ByMonth    []int
	BySetPos   []int
}

// Single returns the rule of a non-recurring event.
func Single() *Rule {
	return &Rule{Freq: None, Interval: 1, WeekStart: Monday}
}

// Equal compares rules field by field. Until instants are compared with
// time.Time.Equal, so the same instant in two locations is equal.
func (r *Rule) Equal(o *Rule) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.Freq != o.Freq || r.Interval != o.Interval || r.WeekStart != o.WeekStart {
		return false
	}
	rc, rcOK := r.Count.Get()
	oc, ocOK := o.Count.Get()
	if rcOK != ocOK || rc != oc {
		return false
	}
	ru, ruOK := r.Until.Get()
	ou, ouOK := o.Until.Get()
	if ruOK != ouOK || (ruOK && !ru.Equal(ou)) {
		return false
	}
	return slices.Equal(r.BySecond, o.BySecond) &&
		slices.Equal(r.ByMinute, o.ByMinute) &&
		slices.Equal(r.ByHour, o.ByHour) &&
		slices.Equal(r.ByDay, o.ByDay) &&
		slices.Equal(r.ByMonthDay, o.ByMonthDay) &&
		slices.Equal(r.ByYearDay, o.ByYearDay) &&
		slices.Equal(r.ByWeekNo, o.ByWeekNo) &&
		slices.Equal(r.ByMonth, o.ByMonth) &&
		slices.Equal(r.BySetPos, o.BySetPos)
}

// Exclusions is a set of instants removed from an Iterator's output.
// Membership is by instant at second precision, independent of location.
type Exclusions map[int64]struct{}

func NewExclusions(ts ...time.Time) Exclusions {
	ex := make(Exclusions, len(ts))
	for _, t := range ts {
		ex.Add(t)
	}
	return ex
}

func (ex Exclusions) Add(t time.Time) {
	ex[t.Unix()] = struct{}{}
}

func (ex Exclusions) Contains(t time.Time) bool {
	if ex == nil {
		return false
	}
	_, ok := ex[t.Unix()]
	return ok
}
