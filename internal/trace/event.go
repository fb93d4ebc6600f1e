package trace

import (
	"strconv"
	"time"
)

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	}
	return "unknown"
}

// Scope is the granularity of an event; lower is coarser.
type Scope uint8

const (
	ScopeDriver   Scope = iota + 1 // CLI command, whole setup
	ScopePhase                     // load, register, cells, seal, survey
	ScopeMaterial                  // one material or library file
	ScopeNuclide                   // one constituent binding
)

var scopeNames = [...]string{
	ScopeDriver:   "driver",
	ScopePhase:    "phase",
	ScopeMaterial: "material",
	ScopeNuclide:  "nuclide",
}

func (s Scope) String() string {
	if int(s) < len(scopeNames) && scopeNames[s] != "" {
		return scopeNames[s]
	}
	return "unknown"
}

// Event is one trace record. Material and Nuclide say what the event is
// about; both are zero for driver and phase events.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Name     string // phase name or material label
	Material int32
	Nuclide  string
	Detail   string
	Err      string // set on the end event of a failed span
	Extra    map[string]string
}

// Subject renders what the event is about: "material 7", "material 7/U235",
// or "" for events outside a material.
func (ev *Event) Subject() string {
	if ev.Material == 0 {
		return ev.Nuclide
	}
	s := "material " + strconv.FormatInt(int64(ev.Material), 10)
	if ev.Nuclide != "" {
		s += "/" + ev.Nuclide
	}
	return s
}

// Failed reports whether the event closes a failed span.
func (ev *Event) Failed() bool { return ev.Err != "" }
