package setup

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"matforge/internal/registry"
	"matforge/internal/trace"
)

// Summary describes one material of a sealed registry.
type Summary struct {
	Index        registry.Index
	ID           int32
	Name         string
	Nuclides     int
	Traces       int
	Temperature  float64
	Volume       float64 // VolumeUnset when unknown
	AtomDensity  float64 // atoms/barn-cm
	MassDensity  float64 // g/cm3
	MolarMass    float64 // g/mol
	ThermalBound int     // constituents with a thermal-scattering law
	Fallbacks    int
}

// Survey summarizes every material of a sealed registry. The records are read
// by up to jobs goroutines at once; the result is in index order.
func Survey(ctx context.Context, reg *registry.Registry, jobs int) ([]Summary, error) {
	if !reg.Sealed() {
		return nil, fmt.Errorf("survey needs a sealed registry")
	}
	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "survey", trace.Parent(ctx))
	defer span.End("")

	if jobs <= 0 {
		jobs = 1
	}
	out := make([]Summary, reg.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(out))))
	for idx, rec := range reg.All() {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			s := Summary{
				Index:       idx,
				ID:          rec.ID(),
				Name:        rec.Name(),
				Nuclides:    rec.Len(),
				Temperature: rec.Temperature(),
				Volume:      rec.Volume(),
				AtomDensity: rec.TotalAtomicDensity(),
				MassDensity: rec.MassDensity(),
				MolarMass:   rec.MolarMass(),
				Fallbacks:   len(rec.Fallbacks()),
			}
			sum := 0.0
			for _, e := range reg.NuclideEntries(idx).All() {
				sum += e.Density
				if e.Trace {
					s.Traces++
				}
				if e.Law != nil {
					s.ThermalBound++
				}
			}
			if math.Abs(sum-s.AtomDensity) > 1e-9*s.AtomDensity {
				return fmt.Errorf("material %d: entries sum to %g, total is %g", s.ID, sum, s.AtomDensity)
			}
			out[idx] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
