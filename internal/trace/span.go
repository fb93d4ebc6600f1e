package trace

import (
	"sync/atomic"
	"time"
)

var (
	seq     atomic.Uint64
	spanIDs atomic.Uint64
)

// Span is an open interval in the trace. The zero Span and spans begun on a
// disabled tracer are inert, so callers never check before calling End.
type Span struct {
	tracer  Tracer
	ev      Event
	started time.Time
	extra   map[string]string
	err     string
}

// Begin opens a span named name under parent (0 for a root span).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	return begin(t, Event{Scope: scope, Name: name, ParentID: parent})
}

// BeginMaterial opens the span covering one material. label is what the
// text format prints ("material" when empty); id goes into every event of
// the span.
func BeginMaterial(t Tracer, id int32, label string, parent uint64) *Span {
	if label == "" {
		label = "material"
	}
	return begin(t, Event{Scope: ScopeMaterial, Name: label, Material: id, ParentID: parent})
}

func begin(t Tracer, ev Event) *Span {
	if t == nil || !t.Enabled() || !t.Level().Tracks(ev.Scope) {
		return &Span{}
	}
	ev.Kind = KindSpanBegin
	ev.SpanID = spanIDs.Add(1)
	ev.Time = time.Now()
	ev.Seq = seq.Add(1)
	t.Emit(&ev)
	return &Span{tracer: t, ev: ev, started: ev.Time}
}

// WithExtra adds a key-value pair to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.tracer == nil {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string, 2)
	}
	s.extra[key] = value
	return s
}

// Fail marks the span as failed with err; the end event carries it.
func (s *Span) Fail(err error) *Span {
	if s == nil || s.tracer == nil || err == nil {
		return s
	}
	s.err = err.Error()
	return s
}

// End closes the span and returns its duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil {
		return 0
	}
	ev := s.ev
	ev.Kind = KindSpanEnd
	ev.Time = time.Now()
	ev.Seq = seq.Add(1)
	ev.Detail = detail
	ev.Err = s.err
	ev.Extra = s.extra
	s.tracer.Emit(&ev)
	s.tracer = nil
	return ev.Time.Sub(s.started)
}

// ID returns the span ID, 0 for an inert span.
func (s *Span) ID() uint64 {
	if s == nil || s.tracer == nil {
		return 0
	}
	return s.ev.SpanID
}

// Point emits an instant event under parent.
func Point(t Tracer, scope Scope, name, detail string, parent uint64) {
	point(t, Event{Scope: scope, Name: name, Detail: detail, ParentID: parent})
}

// Nuclide emits the binding of one constituent of material.
func Nuclide(t Tracer, material int32, nuclide, detail string, parent uint64) {
	point(t, Event{Scope: ScopeNuclide, Name: "bind", Material: material, Nuclide: nuclide, Detail: detail, ParentID: parent})
}

func point(t Tracer, ev Event) {
	if t == nil || !t.Enabled() || !t.Level().Accepts(&ev) {
		return
	}
	ev.Kind = KindPoint
	ev.SpanID = spanIDs.Add(1)
	ev.Time = time.Now()
	ev.Seq = seq.Add(1)
	t.Emit(&ev)
}
