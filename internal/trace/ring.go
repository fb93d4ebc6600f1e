package trace

import (
	"fmt"
	"io"
	"slices"
	"sync"
)

// RingTracer keeps the last N accepted events in memory. It backs the dump
// printed when setup panics.
type RingTracer struct {
	mu      sync.Mutex
	buf     []Event
	written uint64
	level   Level
}

// NewRingTracer creates a ring holding capacity events (4096 when <= 0).
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{buf: make([]Event, capacity), level: level}
}

func (t *RingTracer) Emit(ev *Event) {
	if !t.level.Accepts(ev) {
		return
	}
	t.mu.Lock()
	t.buf[t.written%uint64(len(t.buf))] = *ev
	t.written++
	t.mu.Unlock()
}

// Snapshot returns the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	size := uint64(len(t.buf))
	if t.written <= size {
		return slices.Clone(t.buf[:t.written])
	}
	start := t.written % size
	return slices.Concat(t.buf[start:], t.buf[:start])
}

// Material returns the stored events about material id, oldest first.
func (t *RingTracer) Material(id int32) []Event {
	var out []Event
	for _, ev := range t.Snapshot() {
		if ev.Material == id {
			out = append(out, ev)
		}
	}
	return out
}

// InFlight lists the materials whose span was begun and not yet ended, in
// the order they were begun. After a panic this names the material that was
// being resolved.
func (t *RingTracer) InFlight() []int32 {
	open := make(map[uint64]int32)
	var order []uint64
	for _, ev := range t.Snapshot() {
		if ev.Scope != ScopeMaterial || ev.Material == 0 {
			continue
		}
		switch ev.Kind {
		case KindSpanBegin:
			open[ev.SpanID] = ev.Material
			order = append(order, ev.SpanID)
		case KindSpanEnd:
			delete(open, ev.SpanID)
		}
	}
	var out []int32
	for _, id := range order {
		if m, ok := open[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Dump writes the stored events to w. Text dumps start with the materials
// still in flight.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	if format != FormatNDJSON {
		for _, id := range t.InFlight() {
			if _, err := fmt.Fprintf(w, "in flight: material %d\n", id); err != nil {
				return err
			}
		}
	}
	for _, ev := range t.Snapshot() {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error  { return nil }
func (t *RingTracer) Close() error  { return nil }
func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
