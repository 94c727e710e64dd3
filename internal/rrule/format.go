package rrule

import (
	"strconv"
	"strings"

	"rrcal/internal/datetime"
)

// String returns the rule as an "RRULE:" content line.
func (r *Rule) String() string {
	return prefix + r.Value()
}

// Value returns the property value. FREQ, INTERVAL and WKST are always
// written; the other parts only when set.
func (r *Rule) Value() string {
	parts := []string{
		"FREQ=" + r.Freq.String(),
		"INTERVAL=" + strconv.Itoa(r.Interval),
	}
	if n, ok := r.Count.Get(); ok {
		parts = append(parts, "COUNT="+strconv.Itoa(n))
	}
	parts = append(parts, "WKST="+r.WeekStart.String())
	if len(r.ByDay) > 0 {
		days := make([]string, len(r.ByDay))
		for i, d := range r.ByDay {
			days[i] = d.String()
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	if t, ok := r.Until.Get(); ok {
		parts = append(parts, "UNTIL="+datetime.Format(t))
	}

	lists := []struct {
		key  string
		vals []int
	}{
		{"BYSECOND", r.BySecond},
		{"BYMINUTE", r.ByMinute},
		{"BYHOUR", r.ByHour},
		{"BYMONTHDAY", r.ByMonthDay},
		{"BYMONTH", r.ByMonth},
		{"BYYEARDAY", r.ByYearDay},
		{"BYWEEKNO", r.ByWeekNo},
		{"BYSETPOS", r.BySetPos},
	}
	for _, l := range lists {
		if len(l.vals) > 0 {
			parts = append(parts, l.key+"="+joinInts(l.vals))
		}
	}
	return strings.Join(parts, ";")
}

func joinInts(vals []int) string {
	s := make([]string, len(vals))
	for i, v := range vals {
		s[i] = strconv.Itoa(v)
	}
	return strings.Join(s, ",")
}
