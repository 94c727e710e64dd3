package tzmap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rrcal/internal/datetime"
)

func sample(t *testing.T) *Map {
	t.Helper()
	m := New()
	require.NoError(t, m.Add("America/New_York", "EST", "-0500"))
	require.NoError(t, m.Add("Asia/Kolkata", "IST", "+0530"))
	require.NoError(t, m.Add("Europe/London", "GMT", "+0000"))
	return m
}

func TestLookupByIDAndName(t *testing.T) {
	m := sample(t)

	id, err := m.FindID("EST")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", id)

	id, err = m.FindID("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", id)

	off, err := m.Offset("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, -18000, off)

	name, err := m.Name("Asia/Kolkata")
	require.NoError(t, err)
	assert.Equal(t, "IST", name)

	off, err = m.Offset("Asia/Kolkata")
	require.NoError(t, err)
	assert.Equal(t, 19800, off)
}

func TestNotFound(t *testing.T) {
	m := sample(t)

	_, err := m.FindID("Mars/Olympus")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Offset("EST")
	assert.ErrorIs(t, err, ErrNotFound, "offset is looked up by id only")
	_, err = m.Name("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Location("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdd(t *testing.T) {
	m := New()
	assert.ErrorIs(t, m.Add("X", "X", "0500"), datetime.ErrFormat)
	assert.Error(t, m.Add("", "X", "+0100"))
	assert.Equal(t, 0, m.Len())

	require.NoError(t, m.Add("Custom/Zone", "CZ", "+0100"))
	require.NoError(t, m.Add("Custom/Zone", "CZT", "+0200"))
	assert.Equal(t, 1, m.Len())

	_, err := m.FindID("CZ")
	assert.ErrorIs(t, err, ErrNotFound)
	id, err := m.FindID("CZT")
	require.NoError(t, err)
	assert.Equal(t, "Custom/Zone", id)
}

func TestLocation(t *testing.T) {
	m := sample(t)
	loc, err := m.Location("EST")
	require.NoError(t, err)

	at := time.Date(2020, 1, 23, 10, 0, 0, 0, loc)
	assert.True(t, at.Equal(time.Date(2020, 1, 23, 15, 0, 0, 0, time.UTC)))
	name, off := at.Zone()
	assert.Equal(t, "EST", name)
	assert.Equal(t, -18000, off)
}

func TestString(t *testing.T) {
	m := sample(t)
	assert.Equal(t, []string{"America/New_York", "Asia/Kolkata", "Europe/London"}, m.IDs())
	assert.Equal(t,
		"America/New_York -0500 EST\nAsia/Kolkata +0530 IST\nEurope/London +0000 GMT\n",
		m.String())
}
