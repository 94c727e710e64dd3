package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"rrcal/internal/calendar"
	"rrcal/internal/datetime"
	appLog "rrcal/internal/log"
	"rrcal/internal/metric"
	"rrcal/internal/rrule"
	"rrcal/internal/tzmap"
)

// Parse turns a single ICS payload into a Calendar.
//
//   - VTIMEZONE components fill the calendar's tzmap. TZID parameters are
//     resolved against the system tz database, then against that map.
//   - DTSTART without a time part marks an all-day event.
//   - RRULE and EXDATE are parsed here; expansion happens lazily through
//     calendar.Iter.
//   - A VEVENT with RECURRENCE-ID replaces one instance of its master: the
//     master gets an exclusion and the override is kept as its own event.
//
// Malformed VEVENTs are logged and skipped. Their errors are joined into
// the returned error next to a usable Calendar.
func Parse(src Source, body []byte) (*calendar.Calendar, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	out := &calendar.Calendar{Source: src.ID, Name: src.Name, TZ: timezones(cal, src)}

	var errs []error
	overrides := make(map[string][]time.Time)
	for _, ve := range cal.Events() {
		ev, rid, perr := parseVEvent(src, ve, out.TZ)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "url", redactURL(src.URL))
			metric.EventParseErrors.WithLabelValues(src.ID).Inc()
			errs = append(errs, perr)
			continue
		}
		if !rid.IsZero() {
			overrides[ev.UID] = append(overrides[ev.UID], rid)
		}
		out.Events = append(out.Events, ev)
	}

	for _, ev := range out.Events {
		if ev.Rule == nil {
			continue
		}
		for _, rid := range overrides[ev.UID] {
			ev.Exclusions.Add(rid)
		}
	}

	metric.SourceEvents.WithLabelValues(src.ID).Set(float64(len(out.Events)))
	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(out.Events), "timezones", out.TZ.Len())
	return out, errors.Join(errs...)
}

// timezones collects TZID, TZNAME and TZOFFSETTO of every VTIMEZONE,
// preferring the STANDARD observance over DAYLIGHT.
func timezones(cal *ical.Calendar, src Source) *tzmap.Map {
	m := tzmap.New()
	for _, tz := range cal.Timezones() {
		idProp := tz.GetProperty(ical.ComponentPropertyTzid)
		if idProp == nil || idProp.Value == "" {
			continue
		}

		var std, dst []ical.IANAProperty
		for _, sub := range tz.SubComponents() {
			switch c := sub.(type) {
			case *ical.Standard:
				std = c.UnknownPropertiesIANAProperties()
			case *ical.Daylight:
				dst = c.UnknownPropertiesIANAProperties()
			case *ical.GeneralComponent:
				switch strings.ToUpper(c.Token) {
				case "STANDARD":
					std = c.UnknownPropertiesIANAProperties()
				case "DAYLIGHT":
					dst = c.UnknownPropertiesIANAProperties()
				}
			}
		}
		props := std
		if props == nil {
			props = dst
		}

		name := propValue(props, ical.PropertyTzname)
		if name == "" {
			name = idProp.Value
		}
		if err := m.Add(idProp.Value, name, propValue(props, ical.PropertyTzoffsetto)); err != nil {
			appLog.Warn("ics vtimezone skipped", "id", src.ID, "tzid", idProp.Value, "err", err)
		}
	}
	return m
}

func propValue(props []ical.IANAProperty, p ical.Property) string {
	for _, prop := range props {
		if prop.IANAToken == string(p) {
			return strings.TrimSpace(prop.Value)
		}
	}
	return ""
}

// parseVEvent builds one Event. The second result is the event's
// RECURRENCE-ID, or the zero time.
func parseVEvent(src Source, ve *ical.VEvent, tz *tzmap.Map) (*calendar.Event, time.Time, error) {
	var rid time.Time
	ev := &calendar.Event{Source: src.ID, Exclusions: rrule.NewExclusions()}

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil && p.Value != "" {
		ev.UID = p.Value
	} else {
		ev.UID = uuid.NewString()
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.Location = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return nil, rid, fmt.Errorf("event %q: missing DTSTART", ev.UID)
	}
	loc := resolveLocation(param(dtStart, "TZID"), tz, time.UTC)
	start, err := datetime.Parse(dtStart.Value, loc)
	if err != nil {
		return nil, rid, fmt.Errorf("event %q: DTSTART: %w", ev.UID, err)
	}
	ev.Start = start
	ev.AllDay = datetime.IsDate(dtStart.Value) || strings.EqualFold(param(dtStart, "VALUE"), "DATE")

	switch {
	case ve.GetProperty(ical.ComponentPropertyDtEnd) != nil:
		p := ve.GetProperty(ical.ComponentPropertyDtEnd)
		end, err := datetime.Parse(p.Value, resolveLocation(param(p, "TZID"), tz, loc))
		if err != nil {
			return nil, rid, fmt.Errorf("event %q: DTEND: %w", ev.UID, err)
		}
		ev.Duration = end.Sub(start)
	case ve.GetProperty(ical.ComponentProperty("DURATION")) != nil:
		d, err := datetime.ParseDuration(ve.GetProperty(ical.ComponentProperty("DURATION")).Value)
		if err != nil {
			return nil, rid, fmt.Errorf("event %q: DURATION: %w", ev.UID, err)
		}
		ev.Duration = d
	case ev.AllDay:
		ev.Duration = 24 * time.Hour
	}
	if ev.Duration < 0 {
		ev.Duration = 0
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		rule, err := rrule.Parse(p.Value, start)
		if err != nil {
			return nil, rid, fmt.Errorf("event %q: %w", ev.UID, err)
		}
		ev.Rule = rule
	}

	// EXDATE can appear multiple times, each with a comma-separated list.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		exLoc := resolveLocation(param(p, "TZID"), tz, loc)
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			t, err := datetime.Parse(part, exLoc)
			if err != nil {
				appLog.Warn("ics exdate ignored", "uid", ev.UID, "value", part, "err", err)
				continue
			}
			if datetime.IsDate(part) && !ev.AllDay {
				t = time.Date(t.Year(), t.Month(), t.Day(), start.Hour(), start.Minute(), start.Second(), 0, start.Location())
			}
			ev.Exclusions.Add(t)
		}
	}

	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		t, err := datetime.Parse(p.Value, resolveLocation(param(p, "TZID"), tz, loc))
		if err == nil {
			rid = t
		}
	}

	return ev, rid, nil
}

func param(p *ical.IANAProperty, name string) string {
	if p == nil || p.ICalParameters == nil {
		return ""
	}
	if vs, ok := p.ICalParameters[name]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// resolveLocation maps a TZID to a location: the system tz database
// when it knows the id, else the fixed offset from the calendar's own
// VTIMEZONE table, else UTC. An empty TZID yields def.
func resolveLocation(tzid string, tz *tzmap.Map, def *time.Location) *time.Location {
	if tzid == "" {
		return def
	}
	if loc, err := time.LoadLocation(tzid); err == nil {
		return loc
	}
	if tz != nil {
		if loc, err := tz.Location(tzid); err == nil {
			return loc
		}
	}
	appLog.Warn("ics unknown TZID, using UTC", "tzid", tzid)
	return time.UTC
}
