package rrule

import (
	"math"
	"slices"
	"time"

	appLog "rrcal/internal/log"
)

const (
	maxYear = 9999
	// maxEmptyPeriods bounds how many consecutive periods may produce no
	// candidate before the Iterator gives up on the rule.
	maxEmptyPeriods = 1 << 20
)

// maxInterval caps INTERVAL per frequency at roughly maxYear years; a
// larger step can never produce a second occurrence.
var maxInterval = map[Frequency]int64{
	Yearly:   maxYear,
	Monthly:  maxYear * 12,
	Weekly:   maxYear * 53,
	Daily:    maxYear * 366,
	Hourly:   maxYear * 366 * 24,
	Minutely: maxYear * 366 * 24 * 60,
	Secondly: maxYear * 366 * 24 * 3600,
}

type clock struct{ h, m, s int }

// Iterator yields the occurrences of a rule in ascending order, one at a
// time. It only keeps the candidates of the current period in memory.
// An Iterator is not safe for concurrent use.
type Iterator struct {
	rule  *Rule
	start time.Time
	loc   *time.Location
	excl  Exclusions

	count    int
	hasCount bool
	until    time.Time
	hasUntil bool

	months     []int
	monthDays  []int
	yearDays   []int
	weekNos    []int
	days       []WeekdayNum
	monthScope bool
	hours      []int
	minutes    []int
	seconds    []int
	dayTimes   []clock
	setPos     []int

	// cursor is the civil start of the current period, kept in UTC so
	// that period arithmetic never crosses a DST transition.
	cursor    time.Time
	startDate time.Time

	pending   []time.Time
	last      time.Time
	generated int
	empty     int
	started   bool
	stalled   bool
	done      bool
}

// Iterator validates the rule against dtstart and returns a fresh
// Iterator positioned before the first occurrence. Instants in excl
// are skipped but still count towards COUNT.
func (r *Rule) Iterator(dtstart time.Time, excl Exclusions) (*Iterator, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	start := dtstart.Truncate(time.Second)
	it := &Iterator{
		rule:  r,
		start: start,
		loc:   start.Location(),
		excl:  excl,
	}
	it.count, it.hasCount = r.Count.Get()
	it.until, it.hasUntil = r.Until.Get()

	if r.Freq != None {
		it.setup()
	}
	return it, nil
}

// Next returns the next occurrence. It returns false once the rule is
// exhausted; every later call also returns false.
func (it *Iterator) Next() (time.Time, bool) {
	for !it.done {
		if it.hasCount && it.generated >= it.count {
			it.done = true
			break
		}
		if len(it.pending) == 0 {
			if !it.fill() {
				it.done = true
			}
			continue
		}

		t := it.pending[0]
		it.pending = it.pending[1:]

		if it.hasUntil && t.After(it.until) {
			it.done = true
			break
		}
		// Wall times inside a DST gap normalize onto a neighbouring
		// instant; keep the stream strictly increasing.
		if it.generated > 0 && !t.After(it.last) {
			continue
		}
		it.generated++
		it.last = t
		if it.excl.Contains(t) {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

func (r *Rule) validate() error {
	if !r.Freq.valid() {
		return &RangeError{Key: "FREQ", Value: int(r.Freq)}
	}
	if r.Interval < 1 || (r.Freq != None && int64(r.Interval) > maxInterval[r.Freq]) {
		return &RangeError{Key: "INTERVAL", Value: r.Interval}
	}
	if n, ok := r.Count.Get(); ok && n < 0 {
		return &RangeError{Key: "COUNT", Value: n}
	}
	if !r.WeekStart.valid() {
		return &RangeError{Key: "WKST", Value: int(r.WeekStart)}
	}

	checks := []struct {
		key     string
		vals    []int
		lo, hi  int
		nonZero bool
	}{
		{"BYSECOND", r.BySecond, 0, 59, false},
		{"BYMINUTE", r.ByMinute, 0, 59, false},
		{"BYHOUR", r.ByHour, 0, 23, false},
		{"BYMONTH", r.ByMonth, 1, 12, false},
		{"BYMONTHDAY", r.ByMonthDay, -31, 31, true},
		{"BYYEARDAY", r.ByYearDay, -366, 366, true},
		{"BYWEEKNO", r.ByWeekNo, -53, 53, true},
		{"BYSETPOS", r.BySetPos, -366, 366, true},
	}
	for _, c := range checks {
		for _, v := range c.vals {
			if v < c.lo || v > c.hi || (c.nonZero && v == 0) {
				return &RangeError{Key: c.key, Value: v}
			}
		}
	}
	for _, d := range r.ByDay {
		if !d.Day.valid() {
			return &RangeError{Key: "BYDAY", Value: int(d.Day)}
		}
		if d.N < -53 || d.N > 53 {
			return &RangeError{Key: "BYDAY", Value: d.N}
		}
	}
	return nil
}

// setup derives the effective expansion sets. Parts the rule leaves
// out are taken from dtstart the way RFC 5545 describes.
func (it *Iterator) setup() {
	r, s := it.rule, it.start

	it.months = r.ByMonth
	it.monthDays = r.ByMonthDay
	it.yearDays = r.ByYearDay
	it.weekNos = r.ByWeekNo

	ordinals := r.Freq == Monthly || r.Freq == Yearly
	for _, d := range r.ByDay {
		if !ordinals {
			d.N = 0
		}
		it.days = append(it.days, d)
	}
	it.monthScope = r.Freq == Monthly || (r.Freq == Yearly && len(r.ByMonth) > 0)

	if len(r.ByWeekNo) == 0 && len(r.ByYearDay) == 0 && len(r.ByMonthDay) == 0 && len(r.ByDay) == 0 {
		switch r.Freq {
		case Yearly:
			if len(it.months) == 0 {
				it.months = []int{int(s.Month())}
			}
			it.monthDays = []int{s.Day()}
		case Monthly:
			it.monthDays = []int{s.Day()}
		case Weekly:
			it.days = []WeekdayNum{{Day: WeekdayOf(s.Weekday())}}
		}
	}

	it.hours = sortedUnique(r.ByHour)
	if len(it.hours) == 0 && r.Freq > Hourly {
		it.hours = []int{s.Hour()}
	}
	it.minutes = sortedUnique(r.ByMinute)
	if len(it.minutes) == 0 && r.Freq > Minutely {
		it.minutes = []int{s.Minute()}
	}
	it.seconds = sortedUnique(r.BySecond)
	if len(it.seconds) == 0 && r.Freq > Secondly {
		it.seconds = []int{s.Second()}
	}
	if r.Freq >= Daily {
		it.dayTimes = product(it.hours, it.minutes, it.seconds)
	}

	if len(r.BySetPos) > 0 {
		if hasOtherBy(r) {
			it.setPos = r.BySetPos
		} else {
			appLog.Warn("rrule: BYSETPOS without another BY* part is ignored", "rule", r.Value())
		}
	}

	civil := time.Date(s.Year(), s.Month(), s.Day(), s.Hour(), s.Minute(), s.Second(), 0, time.UTC)
	it.startDate = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	switch r.Freq {
	case Yearly:
		it.cursor = time.Date(s.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	case Monthly:
		it.cursor = time.Date(s.Year(), s.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Weekly:
		back := (int(WeekdayOf(s.Weekday())) - int(r.WeekStart) + 7) % 7
		it.cursor = it.startDate.AddDate(0, 0, -back)
	case Daily:
		it.cursor = it.startDate
	case Hourly:
		it.cursor = civil.Truncate(time.Hour)
	case Minutely:
		it.cursor = civil.Truncate(time.Minute)
	default:
		it.cursor = civil
	}
}

// fill loads the candidates of the next non-empty period.
func (it *Iterator) fill() bool {
	if it.rule.Freq == None {
		if it.started {
			return false
		}
		it.started = true
		it.pending = []time.Time{it.start}
		return true
	}

	for {
		if it.stalled || it.cursor.Year() > maxYear {
			return false
		}
		if it.empty >= maxEmptyPeriods {
			appLog.Debug("rrule: no occurrence found, stopping", "rule", it.rule.Value(), "periods", it.empty)
			return false
		}

		cands, dayFiltered := it.expand()
		prev := it.cursor
		it.advance(dayFiltered)
		if !it.cursor.After(prev) {
			it.stalled = true
		}
		// Candidates before dtstart neither yield nor count, so a period
		// holding only those is empty.
		cands = slices.DeleteFunc(cands, func(t time.Time) bool { return t.Before(it.start) })
		if len(cands) > 0 {
			it.empty = 0
			it.pending = cands
			return true
		}
		it.empty++
	}
}

// expand builds the ordered candidates of the period at the cursor. The
// second result reports that every day of the period was filtered out.
func (it *Iterator) expand() ([]time.Time, bool) {
	c := it.cursor
	var span int
	switch it.rule.Freq {
	case Yearly:
		span = yearLen(c.Year())
	case Monthly:
		span = daysIn(c.Year(), c.Month())
	case Weekly:
		span = 7
	default:
		span = 1
	}
	first := time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, time.UTC)

	kept := make([]time.Time, 0, span)
	for i := 0; i < span; i++ {
		d := first.AddDate(0, 0, i)
		if it.rule.Freq == Weekly && d.Before(it.startDate) {
			continue
		}
		if it.matchDay(d) {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		return nil, true
	}

	times := it.timeSet()
	if len(times) == 0 {
		return nil, false
	}

	cands := make([]time.Time, 0, len(kept)*len(times))
	for _, d := range kept {
		for _, t := range times {
			cands = append(cands, time.Date(d.Year(), d.Month(), d.Day(), t.h, t.m, t.s, 0, it.loc))
		}
	}
	if len(it.setPos) > 0 {
		cands = pickSetPos(cands, it.setPos)
	}
	return cands, false
}

func (it *Iterator) timeSet() []clock {
	c := it.cursor
	h, m, s := c.Hour(), c.Minute(), c.Second()
	switch it.rule.Freq {
	case Hourly:
		if !allows(it.hours, h) {
			return nil
		}
		return product([]int{h}, it.minutes, it.seconds)
	case Minutely:
		if !allows(it.hours, h) || !allows(it.minutes, m) {
			return nil
		}
		return product([]int{h}, []int{m}, it.seconds)
	case Secondly:
		if !allows(it.hours, h) || !allows(it.minutes, m) || !allows(it.seconds, s) {
			return nil
		}
		return []clock{{h, m, s}}
	default:
		return it.dayTimes
	}
}

func (it *Iterator) matchDay(d time.Time) bool {
	y, m, md := d.Date()
	yd := d.YearDay()

	if len(it.months) > 0 && !slices.Contains(it.months, int(m)) {
		return false
	}
	if len(it.weekNos) > 0 {
		wk, total := weekNumber(y, yd-1, it.rule.WeekStart)
		if !slices.Contains(it.weekNos, wk) && !slices.Contains(it.weekNos, wk-total-1) {
			return false
		}
	}
	if len(it.yearDays) > 0 {
		neg := yd - yearLen(y) - 1
		if !slices.Contains(it.yearDays, yd) && !slices.Contains(it.yearDays, neg) {
			return false
		}
	}
	if len(it.monthDays) > 0 {
		neg := md - daysIn(y, m) - 1
		if !slices.Contains(it.monthDays, md) && !slices.Contains(it.monthDays, neg) {
			return false
		}
	}
	if len(it.days) > 0 && !it.matchWeekday(d) {
		return false
	}
	return true
}

// matchWeekday reports whether d satisfies any BYDAY entry. Ordinals
// count within the month or the year depending on monthScope.
func (it *Iterator) matchWeekday(d time.Time) bool {
	wd := WeekdayOf(d.Weekday())
	for _, e := range it.days {
		if e.Day != wd {
			continue
		}
		if e.N == 0 {
			return true
		}
		idx, length := d.YearDay(), yearLen(d.Year())
		if it.monthScope {
			idx, length = d.Day(), daysIn(d.Year(), d.Month())
		}
		if e.N == (idx-1)/7+1 || e.N == -((length-idx)/7+1) {
			return true
		}
	}
	return false
}

// advance moves the cursor to the next period. Sub-daily rules whose
// day was filtered out skip straight to the next day, keeping the
// interval alignment.
func (it *Iterator) advance(dayFiltered bool) {
	n := it.rule.Interval
	c := it.cursor
	switch it.rule.Freq {
	case Yearly:
		it.cursor = c.AddDate(n, 0, 0)
	case Monthly:
		it.cursor = c.AddDate(0, n, 0)
	case Weekly:
		it.cursor = c.AddDate(0, 0, 7*n)
	case Daily:
		it.cursor = c.AddDate(0, 0, n)
	case Hourly:
		it.step(skip(dayFiltered, c.Hour(), 23, n), 3600)
	case Minutely:
		it.step(skip(dayFiltered, c.Hour()*60+c.Minute(), 24*60-1, n), 60)
	case Secondly:
		it.step(skip(dayFiltered, c.Hour()*3600+c.Minute()*60+c.Second(), 24*3600-1, n), 1)
	}
}

// step moves the cursor by units*unitSeconds. A step that would
// overflow leaves the cursor in place, which ends the iteration.
func (it *Iterator) step(units int, unitSeconds int64) {
	u := int64(units)
	if u <= 0 || u > math.MaxInt64/unitSeconds {
		return
	}
	now := it.cursor.Unix()
	d := u * unitSeconds
	if d > math.MaxInt64-now {
		return
	}
	it.cursor = time.Unix(now+d, 0).UTC()
}

// skip returns how many units to move from pos so that the cursor
// leaves the current day when jump is set, or a single interval if not.
func skip(jump bool, pos, last, interval int) int {
	if !jump {
		return interval
	}
	return ((last-pos)/interval + 1) * interval
}

func pickSetPos(cands []time.Time, pos []int) []time.Time {
	n := len(cands)
	idx := make([]int, 0, len(pos))
	for _, p := range pos {
		i := p - 1
		if p < 0 {
			i = n + p
		}
		if i >= 0 && i < n && !slices.Contains(idx, i) {
			idx = append(idx, i)
		}
	}
	slices.Sort(idx)

	out := make([]time.Time, len(idx))
	for k, i := range idx {
		out[k] = cands[i]
	}
	return out
}

func hasOtherBy(r *Rule) bool {
	return len(r.BySecond) > 0 || len(r.ByMinute) > 0 || len(r.ByHour) > 0 ||
		len(r.ByDay) > 0 || len(r.ByMonthDay) > 0 || len(r.ByYearDay) > 0 ||
		len(r.ByWeekNo) > 0 || len(r.ByMonth) > 0
}

func allows(set []int, v int) bool {
	return len(set) == 0 || slices.Contains(set, v)
}

func sortedUnique(vals []int) []int {
	if len(vals) == 0 {
		return nil
	}
	out := slices.Clone(vals)
	slices.Sort(out)
	return slices.Compact(out)
}

func product(hours, minutes, seconds []int) []clock {
	out := make([]clock, 0, len(hours)*len(minutes)*len(seconds))
	for _, h := range hours {
		for _, m := range minutes {
			for _, s := range seconds {
				out = append(out, clock{h, m, s})
			}
		}
	}
	return out
}
