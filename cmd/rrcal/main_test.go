package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestParseWhen(t *testing.T) {
	now := time.Date(2020, 1, 10, 12, 0, 0, 0, time.UTC)

	got, err := parseWhen("20200102T030405Z", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC), got)

	got, err = parseWhen("2020-03-04", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC), got)

	got, err = parseWhen("2020-03-04T05:00:00+01:00", now, time.UTC)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2020, 3, 4, 4, 0, 0, 0, time.UTC)))

	got, err = parseWhen("tomorrow", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 11, got.Day())

	_, err = parseWhen("zzzz", now, time.UTC)
	assert.Error(t, err)
}

func TestWindow(t *testing.T) {
	now := time.Date(2020, 1, 10, 12, 0, 0, 0, time.UTC)

	begin, end, err := window("", "", 3, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, now, begin)
	assert.Equal(t, now.AddDate(0, 0, 3), end)

	_, _, err = window("20200105", "20200101", 1, now, time.UTC)
	assert.ErrorContains(t, err, "empty window")
}

func TestRuleCommand(t *testing.T) {
	out, err := run(t, "rule", "FREQ=MONTHLY;BYDAY=-1FR;INTERVAL=1", "--start", "20200101T090000Z", "--count", "3")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"RRULE:FREQ=MONTHLY;INTERVAL=1;WKST=MO;BYDAY=-1FR",
		"20200131T090000Z",
		"20200228T090000Z",
		"20200327T090000Z",
		"",
	}, "\n"), out)

	_, err = run(t, "rule", "FREQ=SOMETIMES", "--start", "20200101T090000Z")
	assert.Error(t, err)
}

func TestRuleWeekStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rrcal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("week_start: sunday\n"), 0o600))

	rule := "FREQ=WEEKLY;INTERVAL=2;BYDAY=TU,SU;COUNT=4"
	out, err := run(t, "rule", rule, "--start", "19970805T090000Z", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"RRULE:FREQ=WEEKLY;INTERVAL=2;COUNT=4;WKST=SU;BYDAY=TU,SU",
		"19970805T090000Z",
		"19970817T090000Z",
		"19970819T090000Z",
		"19970831T090000Z",
		"",
	}, "\n"), out)

	out, err = run(t, "rule", rule, "--start", "19970805T090000Z", "--config", path, "--wkst", "monday")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"RRULE:FREQ=WEEKLY;INTERVAL=2;COUNT=4;WKST=MO;BYDAY=TU,SU",
		"19970805T090000Z",
		"19970810T090000Z",
		"19970819T090000Z",
		"19970824T090000Z",
		"",
	}, "\n"), out)

	_, err = run(t, "rule", rule, "--start", "19970805T090000Z", "--wkst", "friday")
	assert.ErrorContains(t, err, "week start")

	_, err = run(t, "rule", rule, "--start", "19970805T090000Z", "--config", "./rrcal.yaml", "--wkst", "monday")
	require.NoError(t, err)
}

func TestExpandCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.ics")
	body := strings.ReplaceAll(`BEGIN:VCALENDAR
BEGIN:VEVENT
UID:daily
SUMMARY:Daily
DTSTART:20200101T090000Z
DTEND:20200101T093000Z
RRULE:FREQ=DAILY;COUNT=3
END:VEVENT
END:VCALENDAR
`, "\n", "\r\n")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	out, err := run(t, "expand", path, "--from", "20200101T000000Z", "--to", "20200103T000000Z", "--tz", "UTC", "--limit", "0")
	require.NoError(t, err)
	assert.Equal(t, "20200101T090000Z 20200101T093000Z Daily\n20200102T090000Z 20200102T093000Z Daily\n", out)
}
