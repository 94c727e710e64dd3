package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rrcal/internal/calendar"
	"rrcal/internal/rrule"
)

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//rrcal//test//EN
BEGIN:VTIMEZONE
TZID:Custom/Eastern
BEGIN:STANDARD
DTSTART:19701101T020000
TZOFFSETFROM:-0400
TZOFFSETTO:-0500
TZNAME:EST
END:STANDARD
BEGIN:DAYLIGHT
DTSTART:19700308T020000
TZOFFSETFROM:-0500
TZOFFSETTO:-0400
TZNAME:EDT
END:DAYLIGHT
END:VTIMEZONE
BEGIN:VEVENT
UID:standup
SUMMARY:Standup
DTSTART;TZID=Custom/Eastern:20200106T090000
DTEND;TZID=Custom/Eastern:20200106T091500
RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR;COUNT=6
EXDATE;TZID=Custom/Eastern:20200108T090000
END:VEVENT
BEGIN:VEVENT
UID:standup
RECURRENCE-ID;TZID=Custom/Eastern:20200110T090000
SUMMARY:Standup moved
DTSTART;TZID=Custom/Eastern:20200110T110000
DURATION:PT30M
END:VEVENT
BEGIN:VEVENT
UID:holiday
SUMMARY:Holiday
DTSTART;VALUE=DATE:20200120
END:VEVENT
BEGIN:VEVENT
UID:broken
SUMMARY:Broken
DTSTART:20200101T000000Z
RRULE:FREQ=SOMETIMES
END:VEVENT
BEGIN:VEVENT
SUMMARY:No UID
DTSTART:20200115T120000Z
END:VEVENT
END:VCALENDAR
`

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParse(t *testing.T) {
	cal, err := Parse(Source{ID: "test", Name: "Test"}, crlf(sampleICS))
	require.NotNil(t, cal)
	require.Error(t, err, "the broken VEVENT is reported")
	assert.ErrorIs(t, err, rrule.ErrParse)
	assert.Contains(t, err.Error(), "broken")

	assert.Equal(t, "Test", cal.Name)
	assert.Equal(t, "test", cal.Source)
	require.Len(t, cal.Events, 4)

	standup := cal.Events[0]
	assert.Equal(t, "test", standup.Source)
	assert.Equal(t, 15*time.Minute, standup.Duration)
	assert.False(t, standup.AllDay)
	require.NotNil(t, standup.Rule)
	assert.Equal(t, rrule.Weekly, standup.Rule.Freq)
	assert.True(t, standup.Start.Equal(time.Date(2020, 1, 6, 14, 0, 0, 0, time.UTC)))

	moved := cal.Events[1]
	assert.Equal(t, "standup", moved.UID)
	assert.Nil(t, moved.Rule)
	assert.Equal(t, 30*time.Minute, moved.Duration)

	holiday := cal.Events[2]
	assert.True(t, holiday.AllDay)
	assert.Equal(t, 24*time.Hour, holiday.Duration)

	assert.NotEmpty(t, cal.Events[3].UID, "a UID is generated when missing")
}

func TestParseTimezones(t *testing.T) {
	cal, _ := Parse(Source{ID: "test"}, crlf(sampleICS))
	require.NotNil(t, cal)

	id, err := cal.TZ.FindID("EST")
	require.NoError(t, err)
	assert.Equal(t, "Custom/Eastern", id)

	off, err := cal.TZ.Offset("Custom/Eastern")
	require.NoError(t, err)
	assert.Equal(t, -5*3600, off)
}

func TestParseExpand(t *testing.T) {
	cal, _ := Parse(Source{ID: "test"}, crlf(sampleICS))
	require.NotNil(t, cal)

	begin := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)
	got, _ := calendar.Collect(cal.Entries(begin, end), 0)

	var names []string
	for _, e := range got {
		names = append(names, e.Event.Summary)
	}
	assert.Equal(t, []string{
		"Standup",
		"Standup moved",
		"Standup",
		"No UID",
		"Standup",
		"Standup",
		"Holiday",
	}, names)
	assert.True(t, got[1].Start.Equal(time.Date(2020, 1, 10, 16, 0, 0, 0, time.UTC)))
}

func TestParseEmptyAndInvalid(t *testing.T) {
	_, err := Parse(Source{ID: "x"}, nil)
	assert.Error(t, err)

	cal, err := Parse(Source{ID: "x"}, crlf("BEGIN:VCALENDAR\nBEGIN:VEVENT\nUID:a\nSUMMARY:no start\nEND:VEVENT\nEND:VCALENDAR\n"))
	require.NotNil(t, cal)
	assert.Empty(t, cal.Events)
	assert.ErrorContains(t, err, "missing DTSTART")
}

func TestParseDateExdateOnTimedEvent(t *testing.T) {
	body := `BEGIN:VCALENDAR
BEGIN:VEVENT
UID:daily
DTSTART:20200101T090000Z
RRULE:FREQ=DAILY;COUNT=3
EXDATE;VALUE=DATE:20200102
END:VEVENT
END:VCALENDAR
`
	cal, err := Parse(Source{ID: "x"}, crlf(body))
	require.NoError(t, err)

	got, _ := calendar.Collect(cal.Entries(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)), 0)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[1].Start.Day())
}
