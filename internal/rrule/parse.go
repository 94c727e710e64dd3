package rrule

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"

	"rrcal/internal/datetime"
)

const prefix = "RRULE:"

// Parse reads an RRULE value such as "FREQ=WEEKLY;BYDAY=MO,WE". A
// leading "RRULE:" is accepted. dtstart supplies the location of a
// floating UNTIL. Parse checks syntax only; value ranges are checked by
// Iterator.
func Parse(text string, dtstart time.Time) (*Rule, error) {
	s := strings.TrimSpace(text)
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		s = s[len(prefix):]
	}

	r := &Rule{Interval: 1, WeekStart: Monday}
	haveFreq := false

	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		key = strings.ToUpper(strings.TrimSpace(key))
		if !ok {
			return nil, &ParseError{Key: key, Err: errNoValue}
		}
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case "FREQ":
			f, found := frequencyByName[strings.ToUpper(value)]
			if !found {
				return nil, &ParseError{Key: key, Value: value, Err: errBadValue}
			}
			r.Freq = f
			haveFreq = true
		case "INTERVAL":
			r.Interval, err = parseInt(key, value)
			if err == nil && r.Interval < 1 {
				err = &ParseError{Key: key, Value: value, Err: errBadValue}
			}
		case "COUNT":
			var n int
			n, err = parseInt(key, value)
			if err == nil && n < 0 {
				err = &ParseError{Key: key, Value: value, Err: errBadValue}
			}
			r.Count = mo.Some(n)
		case "UNTIL":
			var t time.Time
			t, err = datetime.Parse(value, dtstart.Location())
			if err != nil {
				err = &ParseError{Key: key, Value: value, Err: err}
			}
			r.Until = mo.Some(t)
		case "WKST":
			d, found := weekdayByCode[strings.ToUpper(value)]
			if !found {
				return nil, &ParseError{Key: key, Value: value, Err: errBadValue}
			}
			r.WeekStart = d
		case "BYDAY":
			r.ByDay, err = parseByDay(value)
		case "BYSECOND":
			r.BySecond, err = parseIntList(key, value)
		case "BYMINUTE":
			r.ByMinute, err = parseIntList(key, value)
		case "BYHOUR":
			r.ByHour, err = parseIntList(key, value)
		case "BYMONTHDAY":
			r.ByMonthDay, err = parseIntList(key, value)
		case "BYMONTH":
			r.ByMonth, err = parseIntList(key, value)
		case "BYYEARDAY":
			r.ByYearDay, err = parseIntList(key, value)
		case "BYWEEKNO":
			r.ByWeekNo, err = parseIntList(key, value)
		case "BYSETPOS":
			r.BySetPos, err = parseIntList(key, value)
		default:
			return nil, &ParseError{Key: key, Value: value, Err: errUnknownKey}
		}
		if err != nil {
			return nil, err
		}
	}

	if !haveFreq {
		return nil, &ParseError{Key: "FREQ", Err: errRequired}
	}
	return r, nil
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ParseError{Key: key, Value: value, Err: errBadValue}
	}
	return n, nil
}

func parseIntList(key, value string) ([]int, error) {
	items := strings.Split(value, ",")
	out := make([]int, 0, len(items))
	for _, item := range items {
		n, err := parseInt(key, strings.TrimSpace(item))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// parseByDay reads items like "MO", "1FR" or "-2SU".
func parseByDay(value string) ([]WeekdayNum, error) {
	items := strings.Split(value, ",")
	out := make([]WeekdayNum, 0, len(items))
	for _, item := range items {
		item = strings.ToUpper(strings.TrimSpace(item))
		if len(item) < 2 {
			return nil, &ParseError{Key: "BYDAY", Value: item, Err: errBadValue}
		}
		code, ord := item[len(item)-2:], item[:len(item)-2]
		day, ok := weekdayByCode[code]
		if !ok {
			return nil, &ParseError{Key: "BYDAY", Value: item, Err: errBadValue}
		}
		wn := WeekdayNum{Day: day}
		if ord != "" && ord != "+" {
			n, err := strconv.Atoi(ord)
			if err != nil {
				return nil, &ParseError{Key: "BYDAY", Value: item, Err: errBadValue}
			}
			wn.N = n
		}
		out = append(out, wn)
	}
	return out, nil
}
