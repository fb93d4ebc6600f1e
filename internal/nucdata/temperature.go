package nucdata

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Method selects how a requested temperature maps onto tabulated data.
type Method uint8

const (
	// MethodNearest picks the nearest tabulated temperature within Tolerance.
	MethodNearest Method = iota
	// MethodFallback always picks the nearest tabulated temperature.
	MethodFallback
)

func (m Method) String() string {
	switch m {
	case MethodNearest:
		return "nearest"
	case MethodFallback:
		return "fallback"
	}
	return "unknown"
}

// ParseMethod converts a string to a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nearest":
		return MethodNearest, nil
	case "fallback":
		return MethodFallback, nil
	}
	return MethodNearest, fmt.Errorf("invalid temperature method %q (expected nearest|fallback)", s)
}

// DefaultTolerance is the default temperature tolerance in kelvin.
const DefaultTolerance = 10.0

// Policy combines a Method with its tolerance in kelvin.
type Policy struct {
	Method    Method
	Tolerance float64
}

// DefaultPolicy returns nearest-within-10K.
func DefaultPolicy() Policy {
	return Policy{Method: MethodNearest, Tolerance: DefaultTolerance}
}

// Select returns the tabulated temperature used for t. temps must be sorted.
func (p Policy) Select(temps []float64, t float64) (float64, bool) {
	if len(temps) == 0 || math.IsNaN(t) {
		return 0, false
	}
	i := sort.SearchFloat64s(temps, t)
	best := -1
	bestDist := math.Inf(1)
	for _, j := range [2]int{i - 1, i} {
		if j < 0 || j >= len(temps) {
			continue
		}
		// ties go to the lower temperature
		if d := math.Abs(temps[j] - t); d < bestDist {
			best, bestDist = j, d
		}
	}
	if p.Method == MethodNearest && bestDist > p.Tolerance {
		return 0, false
	}
	return temps[best], true
}

// Within reports whether selected lies inside the tolerance around requested.
func (p Policy) Within(requested, selected float64) bool {
	return math.Abs(requested-selected) <= p.Tolerance
}
