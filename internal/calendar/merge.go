package calendar

import (
	"container/heap"
	"fmt"
	"time"

	appLog "rrcal/internal/log"
	"rrcal/internal/rrule"
)

// cursor is the look-ahead of one event's iterator.
type cursor struct {
	it    *rrule.Iterator
	event *Event
	order int
	next  time.Time
}

// pull advances c to its first occurrence in [begin, end).
func (c *cursor) pull(begin, end time.Time) bool {
	for {
		t, ok := c.it.Next()
		if !ok || !t.Before(end) {
			return false
		}
		if t.Before(begin) {
			continue
		}
		c.next = t
		return true
	}
}

type cursorHeap []*cursor

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	if h[i].next.Equal(h[j].next) {
		return h[i].order < h[j].order
	}
	return h[i].next.Before(h[j].next)
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x any) { *h = append(*h, x.(*cursor)) }

func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return c
}

// Iter merges the occurrences of several events into ascending order
// within the half-open window [begin, end). Occurrences at the same
// instant come out in the order the events were given.
type Iter struct {
	heap  cursorHeap
	begin time.Time
	end   time.Time
	errs  []error
}

// NewIter builds one iterator per event. Events whose rule cannot be
// expanded are left out and reported by Errors.
func NewIter(events []*Event, begin, end time.Time) *Iter {
	m := &Iter{begin: begin, end: end, heap: make(cursorHeap, 0, len(events))}
	for i, ev := range events {
		it, err := ev.Occurrences()
		if err != nil {
			err = fmt.Errorf("event %q: %w", ev.UID, err)
			appLog.Error("calendar: skipping event", err, "uid", ev.UID)
			m.errs = append(m.errs, err)
			continue
		}
		c := &cursor{it: it, event: ev, order: i}
		if c.pull(begin, end) {
			m.heap = append(m.heap, c)
		}
	}
	heap.Init(&m.heap)
	return m
}

// Next returns the earliest pending entry.
func (m *Iter) Next() (Entry, bool) {
	if len(m.heap) == 0 {
		return Entry{}, false
	}
	c := m.heap[0]
	entry := Entry{Start: c.next, Event: c.event}
	if c.pull(m.begin, m.end) {
		heap.Fix(&m.heap, 0)
	} else {
		heap.Pop(&m.heap)
	}
	return entry, true
}

// Errors lists the events that were left out of the merge.
func (m *Iter) Errors() []error {
	return m.errs
}

// Collect drains it into a slice. A positive limit caps the number of
// entries; the second result reports whether the cap cut the stream.
func Collect(it *Iter, limit int) ([]Entry, bool) {
	var out []Entry
	for {
		if limit > 0 && len(out) == limit {
			_, more := it.Next()
			return out, more
		}
		e, ok := it.Next()
		if !ok {
			return out, false
		}
		out = append(out, e)
	}
}
