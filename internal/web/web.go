package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rrcal/internal/calendar"
	"rrcal/internal/config"
	"rrcal/internal/datetime"
	appLog "rrcal/internal/log"
	"rrcal/internal/metric"
	"rrcal/internal/model"
)

// Server exposes the currently loaded calendars over HTTP.
//
// The calendars are replaced as a whole by SetCalendars (typically from
// the cron refresh job); handlers only read the current snapshot.
type Server struct {
	cfg *config.Config
	mux *http.ServeMux
	loc *time.Location
	now func() time.Time

	mu       sync.RWMutex
	cals     []*calendar.Calendar
	loadedAt time.Time
	loadErr  error

	// Short-lived cache of /api/entries responses keyed by raw query.
	// It is dropped whenever the calendars change.
	cacheMu sync.Mutex
	cache   map[string]entriesCache
}

type entriesCache struct {
	resp      entriesResponse
	updatedAt time.Time
}

const entriesCacheTTL = 30 * time.Second

// NewServer constructs a new Server.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg:   cfg,
		mux:   http.NewServeMux(),
		loc:   resolveLocationOrLocal(cfg.Timezone),
		now:   time.Now,
		cache: make(map[string]entriesCache),
	}
	s.registerRoutes()
	return s
}

// SetCalendars swaps in a new snapshot. err is the outcome of the load
// that produced it and is reported on /api/sources.
func (s *Server) SetCalendars(cals []*calendar.Calendar, err error) {
	s.mu.Lock()
	s.cals = cals
	s.loadedAt = s.now()
	s.loadErr = err
	s.mu.Unlock()

	s.cacheMu.Lock()
	clear(s.cache)
	s.cacheMu.Unlock()
}

func (s *Server) snapshot() ([]*calendar.Calendar, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cals, s.loadedAt, s.loadErr
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="rrcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/entries", s.handleEntries)
	s.mux.HandleFunc("GET /api/timezones", s.handleTimezones)
	s.mux.HandleFunc("GET /api/sources", s.handleSources)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// entriesResponse is the JSON response shape for /api/entries.
type entriesResponse struct {
	Entries         []model.Occurrence `json:"entries"`
	Truncated       bool               `json:"truncated,omitempty"`
	RangeStart      time.Time          `json:"range_start"`
	RangeEnd        time.Time          `json:"range_end"`
	DisplayTimeZone string             `json:"display_timezone"`
	WeekStart       string             `json:"week_start"`
	Errors          []string           `json:"errors,omitempty"`
}

// handleEntries returns merged occurrences of all loaded calendars
// within a window.
//
// GET /api/entries?from=20200101T000000Z&to=20200201T000000Z
// GET /api/entries?days=7&backfill=1
//   - from/to:  DATE, DATE-TIME or RFC 3339; dates are read in the display zone
//   - days:     days ahead of now when "to" is absent (default horizon_days)
//   - backfill: days before now when "from" is absent (default backfill_days)
//   - source:   only include the calendar loaded from this source id
//   - limit:    cap on returned entries (default and maximum max_entries)
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := q.Encode()

	s.cacheMu.Lock()
	ec, ok := s.cache[key]
	s.cacheMu.Unlock()
	if ok && s.now().Sub(ec.updatedAt) < entriesCacheTTL {
		writeJSON(w, http.StatusOK, ec.resp)
		return
	}

	now := s.now().In(s.loc)
	begin := now.AddDate(0, 0, -max(parseIntDefault(q.Get("backfill"), s.cfg.BackfillDays), 0))
	end := now.AddDate(0, 0, positiveOr(parseIntDefault(q.Get("days"), s.cfg.HorizonDays), s.cfg.HorizonDays))

	var err error
	if v := q.Get("from"); v != "" {
		if begin, err = s.parseTime(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid from: "+err.Error())
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if end, err = s.parseTime(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to: "+err.Error())
			return
		}
	}
	if !begin.Before(end) {
		writeError(w, http.StatusBadRequest, "empty window: from must be before to")
		return
	}

	limit := s.cfg.MaxEntries
	if n := parseIntDefault(q.Get("limit"), 0); n > 0 && n < limit {
		limit = n
	}

	cals, _, _ := s.snapshot()
	if id := q.Get("source"); id != "" {
		cals = filterSource(cals, id)
	}

	it := calendar.NewIter(calendar.Events(cals...), begin, end)
	entries, truncated := calendar.Collect(it, limit)

	resp := entriesResponse{
		Entries:         model.FromEntries(entries, s.loc),
		Truncated:       truncated,
		RangeStart:      begin.In(s.loc),
		RangeEnd:        end.In(s.loc),
		DisplayTimeZone: s.loc.String(),
		WeekStart:       s.cfg.WeekStart,
	}
	for _, e := range it.Errors() {
		resp.Errors = append(resp.Errors, e.Error())
	}
	metric.EntriesServed.Add(float64(len(resp.Entries)))

	appLog.Debug("api entries request",
		"range_start", resp.RangeStart.Format(time.RFC3339),
		"range_end", resp.RangeEnd.Format(time.RFC3339),
		"entries", len(resp.Entries),
		"truncated", truncated,
	)

	s.cacheMu.Lock()
	s.cache[key] = entriesCache{resp: resp, updatedAt: s.now()}
	s.cacheMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// handleTimezones lists the VTIMEZONE entries of every loaded calendar.
func (s *Server) handleTimezones(w http.ResponseWriter, _ *http.Request) {
	cals, _, _ := s.snapshot()
	seen := make(map[string]bool)
	zones := make([]model.Zone, 0)
	for _, c := range cals {
		if c.TZ == nil {
			continue
		}
		for _, z := range c.TZ.Zones() {
			if seen[z.ID] {
				continue
			}
			seen[z.ID] = true
			zones = append(zones, model.Zone{ID: z.ID, Name: z.Name, Offset: datetime.FormatOffset(z.Offset)})
		}
	}
	writeJSON(w, http.StatusOK, zones)
}

type sourceStatus struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Events int    `json:"events"`
}

type sourcesResponse struct {
	LoadedAt time.Time      `json:"loaded_at"`
	Sources  []sourceStatus `json:"sources"`
	Error    string         `json:"error,omitempty"`
}

func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	cals, loadedAt, loadErr := s.snapshot()
	resp := sourcesResponse{LoadedAt: loadedAt, Sources: make([]sourceStatus, 0, len(cals))}
	for _, c := range cals {
		resp.Sources = append(resp.Sources, sourceStatus{ID: c.Source, Name: c.Name, Events: len(c.Events)})
	}
	if loadErr != nil {
		resp.Error = loadErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func filterSource(cals []*calendar.Calendar, id string) []*calendar.Calendar {
	var out []*calendar.Calendar
	for _, c := range cals {
		if c.Source == id {
			out = append(out, c)
		}
	}
	return out
}

// parseTime accepts iCalendar DATE / DATE-TIME or RFC 3339.
func (s *Server) parseTime(v string) (time.Time, error) {
	if strings.ContainsAny(v, "-:") && len(v) > 15 {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, nil
		}
	}
	return datetime.Parse(v, s.loc)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func positiveOr(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
