package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rrcal/internal/config"
)

const tinyICS = "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:one\r\nSUMMARY:One\r\nDTSTART:20200101T090000Z\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"

func TestFetchHTTPWithCache(t *testing.T) {
	var hits, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(tinyICS))
	}))

	f := NewFetcher(t.TempDir())
	src := Source{ID: "remote", URL: srv.URL + "/cal.ics?token=secret"}

	res, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, tinyICS, string(res.Body))

	res, err = f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, tinyICS, string(res.Body))
	assert.Equal(t, int32(1), notModified.Load())

	srv.Close()
	res, err = f.FetchOne(context.Background(), src)
	require.NoError(t, err, "network errors fall back to the cache")
	assert.True(t, res.FromCache)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchHTTPErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	_, err := f.FetchOne(context.Background(), Source{ID: "gone", URL: srv.URL})
	assert.ErrorContains(t, err, "410")
}

func TestFetchLocal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cal.ics")
	require.NoError(t, os.WriteFile(path, []byte(tinyICS), 0o600))

	f := NewFetcher(t.TempDir())
	for _, u := range []string{path, "file://" + path} {
		res, err := f.FetchOne(context.Background(), Source{ID: "local", URL: u})
		require.NoError(t, err, u)
		assert.Equal(t, tinyICS, string(res.Body))
	}

	_, err := f.FetchOne(context.Background(), Source{ID: "missing", URL: filepath.Join(dir, "nope.ics")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cal.ics")
	require.NoError(t, os.WriteFile(path, []byte(tinyICS), 0o600))

	sources := SourcesFromConfig([]config.SourceConfig{
		{ID: "ok", Name: "OK", URL: path},
		{ID: "missing", URL: filepath.Join(dir, "nope.ics")},
		{ID: "skipped"},
	})
	require.Len(t, sources, 2)

	cals, err := NewFetcher(t.TempDir()).LoadAll(context.Background(), sources)
	require.Len(t, cals, 1)
	assert.Equal(t, "OK", cals[0].Name)
	require.Len(t, cals[0].Events, 1)
	assert.Equal(t, "ok", cals[0].Events[0].Source)
	assert.ErrorContains(t, err, "missing")
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/private.ics?token=abcd"))
	assert.Equal(t, "/tmp/cal.ics", redactURL("/tmp/cal.ics"))
}
