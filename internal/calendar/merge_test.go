package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rrcal/internal/datetime"
	"rrcal/internal/rrule"
)

func mustRule(t *testing.T, text string, start time.Time) *rrule.Rule {
	t.Helper()
	r, err := rrule.Parse(text, start)
	require.NoError(t, err)
	return r
}

func summaries(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Event.Summary
	}
	return out
}

func TestMergeTieOrder(t *testing.T) {
	start := time.Date(2020, 1, 1, 9, 0, 0, 0, time.UTC)
	a := NewEvent("a", start, mustRule(t, "FREQ=DAILY", start), nil)
	a.Summary = "A"
	b := NewEvent("b", start, mustRule(t, "FREQ=DAILY", start), nil)
	b.Summary = "B"

	it := NewIter([]*Event{a, b}, start, start.AddDate(0, 0, 2))
	got, more := Collect(it, 0)
	assert.False(t, more)
	assert.Equal(t, []string{"A", "B", "A", "B"}, summaries(got))
	assert.True(t, got[2].Start.Equal(start.AddDate(0, 0, 1)))
}

func TestMergeOrderAndWindow(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	daily := time.Date(2019, 12, 1, 10, 0, 0, 0, time.UTC)
	weekly := time.Date(2020, 1, 6, 8, 0, 0, 0, est)
	once := time.Date(2020, 1, 10, 12, 0, 0, 0, time.UTC)

	d := NewEvent("d", daily, mustRule(t, "FREQ=DAILY;INTERVAL=5", daily), nil)
	d.Summary = "every five days"
	w := NewEvent("w", weekly, mustRule(t, "FREQ=WEEKLY;BYDAY=MO,TH", weekly), nil)
	w.Summary = "standup"
	o := NewEvent("o", once, nil, nil)
	o.Summary = "one-off"

	begin, err := datetime.Parse("20191231T100000Z", nil)
	require.NoError(t, err)
	end, err := datetime.Parse("20200123T100000-0500", nil)
	require.NoError(t, err)

	got, _ := Collect(NewIter([]*Event{d, w, o}, begin, end), 0)

	var prev time.Time
	for _, e := range got {
		assert.False(t, e.Start.Before(begin))
		assert.True(t, e.Start.Before(end))
		assert.False(t, e.Start.Before(prev), "entries must ascend")
		prev = e.Start
	}

	// Daily at 10:00Z: Dec 31, Jan 5, 10, 15, 20.
	// Weekly at 13:00Z: Jan 6, 9, 13, 16, 20, 23. Once: Jan 10 12:00Z.
	assert.Equal(t, []string{
		"every five days",
		"every five days",
		"standup",
		"standup",
		"every five days",
		"one-off",
		"standup",
		"every five days",
		"standup",
		"every five days",
		"standup",
		"standup",
	}, summaries(got))
	assert.True(t, got[0].Start.Equal(begin), "begin is inclusive")
}

func TestMergeEndExclusive(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	ev := NewEvent("x", start, mustRule(t, "FREQ=DAILY", start), nil)

	got, _ := Collect(NewIter([]*Event{ev}, start, start.AddDate(0, 0, 3)), 0)
	assert.Len(t, got, 3)
}

func TestMergeSkipsBrokenEvent(t *testing.T) {
	start := time.Date(2020, 1, 1, 9, 0, 0, 0, time.UTC)
	bad := NewEvent("bad", start, mustRule(t, "FREQ=YEARLY;BYMONTH=13", start), nil)
	good := NewEvent("good", start, mustRule(t, "FREQ=DAILY;COUNT=2", start), nil)
	good.Summary = "good"

	it := NewIter([]*Event{bad, good}, start, start.AddDate(1, 0, 0))
	got, _ := Collect(it, 0)
	assert.Equal(t, []string{"good", "good"}, summaries(got))

	require.Len(t, it.Errors(), 1)
	assert.ErrorIs(t, it.Errors()[0], rrule.ErrRange)
	assert.Contains(t, it.Errors()[0].Error(), "bad")
}

func TestMergeExclusions(t *testing.T) {
	start := time.Date(2020, 1, 1, 9, 0, 0, 0, time.UTC)
	ev := NewEvent("x", start, mustRule(t, "FREQ=DAILY;COUNT=5", start), rrule.NewExclusions(start.AddDate(0, 0, 2)))

	got, _ := Collect(NewIter([]*Event{ev}, start, start.AddDate(1, 0, 0)), 0)
	assert.Len(t, got, 4)
}

func TestCollectLimit(t *testing.T) {
	start := time.Date(2020, 1, 1, 9, 0, 0, 0, time.UTC)
	ev := NewEvent("x", start, mustRule(t, "FREQ=HOURLY", start), nil)

	got, more := Collect(NewIter([]*Event{ev}, start, start.AddDate(1, 0, 0)), 10)
	assert.Len(t, got, 10)
	assert.True(t, more)

	got, more = Collect(NewIter([]*Event{ev}, start, start.Add(10*time.Hour)), 10)
	assert.Len(t, got, 10)
	assert.False(t, more)
}

func TestEmptyMerge(t *testing.T) {
	it := NewIter(nil, time.Time{}, time.Now())
	_, ok := it.Next()
	assert.False(t, ok)
}

func TestEntry(t *testing.T) {
	start := time.Date(2020, 1, 1, 9, 0, 0, 0, time.UTC)
	ev := NewEvent("x", start, nil, nil)
	ev.Summary = "Meeting"
	ev.Duration = 90 * time.Minute

	e := Entry{Start: start, Event: ev}
	assert.True(t, e.End().Equal(start.Add(90*time.Minute)))
	assert.Equal(t, "20200101T090000Z 20200101T103000Z Meeting", e.String())
}

func TestCalendarEvents(t *testing.T) {
	start := time.Date(2020, 1, 1, 9, 0, 0, 0, time.UTC)
	a := &Calendar{Events: []*Event{NewEvent("a", start, nil, nil)}}
	b := &Calendar{Events: []*Event{NewEvent("b", start, nil, nil)}}

	evs := Events(a, nil, b)
	require.Len(t, evs, 2)
	assert.Equal(t, "a", evs[0].UID)

	got, _ := Collect(a.Entries(start, start.Add(time.Hour)), 0)
	assert.Len(t, got, 1)
}
