package model

import (
	"time"

	"rrcal/internal/calendar"
	"rrcal/internal/datetime"
)

// Occurrence is the JSON view of one calendar.Entry, shared by the CLI
// and the HTTP API.
type Occurrence struct {
	SourceID string `json:"source_id"`
	UID      string `json:"uid"`

	// InstanceKey identifies a single occurrence of a recurring event:
	// the UID plus the UTC start.
	InstanceKey string `json:"instance_key"`

	Summary  string `json:"summary"`
	Location string `json:"location,omitempty"`
	AllDay   bool   `json:"all_day"`

	// Start / End are in the display timezone.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FromEntry converts e, moving its instants to loc. A nil loc keeps
// the entry's own location.
func FromEntry(e calendar.Entry, loc *time.Location) Occurrence {
	start, end := e.Start, e.End()
	if loc != nil {
		start, end = start.In(loc), end.In(loc)
	}
	return Occurrence{
		SourceID:    e.Event.Source,
		UID:         e.Event.UID,
		InstanceKey: e.Event.UID + "@" + datetime.Format(e.Start.UTC()),
		Summary:     e.Event.Summary,
		Location:    e.Event.Location,
		AllDay:      e.Event.AllDay,
		Start:       start,
		End:         end,
	}
}

// FromEntries converts a slice of entries.
func FromEntries(entries []calendar.Entry, loc *time.Location) []Occurrence {
	out := make([]Occurrence, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromEntry(e, loc))
	}
	return out
}

// Zone is the JSON view of a tzmap entry.
type Zone struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Offset string `json:"offset"`
}
