package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // failed phases and materials only
	LevelPhase        // driver + phase boundaries
	LevelDetail       // one span per material
	LevelDebug        // everything including nuclide bindings
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel converts a flag value to a Level.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// Tracks reports whether spans at scope are opened at this level. LevelError
// opens material spans as well so a failing material can still be reported.
func (l Level) Tracks(scope Scope) bool {
	switch l {
	case LevelError, LevelDetail:
		return scope <= ScopeMaterial
	case LevelPhase:
		return scope <= ScopePhase
	case LevelDebug:
		return true
	}
	return false
}

// Accepts reports whether a tracer at this level records ev.
func (l Level) Accepts(ev *Event) bool {
	if l == LevelError {
		return ev.Failed()
	}
	return l.Tracks(ev.Scope)
}
