// Package tzmap maps calendar timezone identifiers to a fixed UTC offset
// and a display name. It is filled from VTIMEZONE components and then
// used to resolve TZID parameters.
package tzmap

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"rrcal/internal/datetime"
)

// ErrNotFound is returned when an id or name is not in the map.
var ErrNotFound = errors.New("tzmap: timezone not found")

// Zone is a single entry of the map.
type Zone struct {
	ID     string
	Name   string
	Offset int // seconds east of UTC
}

// Map is a timezone table keyed by id with a secondary index by name.
// It is not safe for concurrent writes; once built it can be shared.
type Map struct {
	byID   map[string]Zone
	byName map[string]string
}

func New() *Map {
	return &Map{
		byID:   make(map[string]Zone),
		byName: make(map[string]string),
	}
}

// Add registers id with a display name and an offset written as ±HHMM
// or ±HHMMSS. Re-adding an id replaces the previous entry.
func (m *Map) Add(id, name, offset string) error {
	if id == "" {
		return errors.New("tzmap: empty timezone id")
	}
	off, err := datetime.ParseOffset(offset)
	if err != nil {
		return fmt.Errorf("tzmap: zone %q: %w", id, err)
	}

	if old, ok := m.byID[id]; ok && m.byName[old.Name] == id {
		delete(m.byName, old.Name)
	}
	m.byID[id] = Zone{ID: id, Name: name, Offset: off}
	if name != "" {
		if _, taken := m.byName[name]; !taken {
			m.byName[name] = id
		}
	}
	return nil
}

// FindID resolves an id or a display name to the id it is stored under.
// Ids take precedence over names.
func (m *Map) FindID(nameOrID string) (string, error) {
	if _, ok := m.byID[nameOrID]; ok {
		return nameOrID, nil
	}
	if id, ok := m.byName[nameOrID]; ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, nameOrID)
}

// Offset returns the offset of id in seconds east of UTC.
func (m *Map) Offset(id string) (int, error) {
	z, err := m.zone(id)
	if err != nil {
		return 0, err
	}
	return z.Offset, nil
}

// Name returns the display name registered for id.
func (m *Map) Name(id string) (string, error) {
	z, err := m.zone(id)
	if err != nil {
		return "", err
	}
	return z.Name, nil
}

// Location returns a fixed-offset location for id or name.
func (m *Map) Location(nameOrID string) (*time.Location, error) {
	id, err := m.FindID(nameOrID)
	if err != nil {
		return nil, err
	}
	z := m.byID[id]
	name := z.Name
	if name == "" {
		name = z.ID
	}
	return time.FixedZone(name, z.Offset), nil
}

// IDs returns all registered ids in sorted order.
func (m *Map) IDs() []string {
	ids := make([]string, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Zones returns all entries sorted by id.
func (m *Map) Zones() []Zone {
	out := make([]Zone, 0, len(m.byID))
	for _, id := range m.IDs() {
		out = append(out, m.byID[id])
	}
	return out
}

func (m *Map) Len() int {
	return len(m.byID)
}

// String lists one zone per line as "id offset name".
func (m *Map) String() string {
	var b strings.Builder
	for _, z := range m.Zones() {
		fmt.Fprintf(&b, "%s %s %s\n", z.ID, datetime.FormatOffset(z.Offset), z.Name)
	}
	return b.String()
}

func (m *Map) zone(id string) (Zone, error) {
	z, ok := m.byID[id]
	if !ok {
		return Zone{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return z, nil
}
