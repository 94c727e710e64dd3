package rrule

import (
	"strconv"
	"time"
)

// Frequency is the FREQ of a rule. None describes a non-recurring event.
type Frequency int

const (
	Secondly Frequency = iota
	Minutely
	Hourly
	Daily
	Weekly
	Monthly
	Yearly
	None
)

var frequencyNames = map[Frequency]string{
	Secondly: "SECONDLY",
	Minutely: "MINUTELY",
	Hourly:   "HOURLY",
	Daily:    "DAILY",
	Weekly:   "WEEKLY",
	Monthly:  "MONTHLY",
	Yearly:   "YEARLY",
}

var frequencyByName = invert(frequencyNames)

func (f Frequency) String() string {
	if f == None {
		return "NONE"
	}
	if s, ok := frequencyNames[f]; ok {
		return s
	}
	return "Frequency(" + strconv.Itoa(int(f)) + ")"
}

func (f Frequency) valid() bool {
	return f >= Secondly && f <= None
}

// Weekday is an ISO weekday, Monday first.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayCodes = map[Weekday]string{
	Monday:    "MO",
	Tuesday:   "TU",
	Wednesday: "WE",
	Thursday:  "TH",
	Friday:    "FR",
	Saturday:  "SA",
	Sunday:    "SU",
}

var weekdayByCode = invert(weekdayCodes)

func (d Weekday) String() string {
	if s, ok := weekdayCodes[d]; ok {
		return s
	}
	return "Weekday(" + strconv.Itoa(int(d)) + ")"
}

func (d Weekday) valid() bool {
	return d >= Monday && d <= Sunday
}

// WeekdayOf converts a time.Weekday.
func WeekdayOf(wd time.Weekday) Weekday {
	return Weekday((int(wd) + 6) % 7)
}

// WeekdayNum is one BYDAY entry. N == 0 selects every such weekday of
// the period; N < 0 counts from the end of the period.
type WeekdayNum struct {
	N   int
	Day Weekday
}

func (w WeekdayNum) String() string {
	if w.N == 0 {
		return w.Day.String()
	}
	return strconv.Itoa(w.N) + w.Day.String()
}

func invert[K comparable, V comparable](m map[K]V) map[V]K {
	out := make(map[V]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
