// Package metric declares the prometheus collectors of the service.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SourceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rrcal_source_fetch_total",
		Help: "Calendar source loads by source id and result (fresh, cached, error)",
	}, []string{"source", "result"})

	EventParseErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rrcal_event_parse_errors_total",
		Help: "VEVENTs skipped because they could not be parsed",
	}, []string{"source"})

	SourceEvents = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rrcal_source_events",
		Help: "Events loaded from each calendar source",
	}, []string{"source"})

	EntriesServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rrcal_entries_served_total",
		Help: "Calendar entries returned by the HTTP API",
	})

	RefreshSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rrcal_refresh_duration_seconds",
		Help:    "Time spent loading and parsing every source",
		Buckets: prometheus.DefBuckets,
	})
)

// Result labels for SourceFetches.
const (
	ResultFresh  = "fresh"
	ResultCached = "cached"
	ResultError  = "error"
)
