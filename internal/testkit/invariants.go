// Package testkit holds invariant checkers shared by package tests.
package testkit

import (
	"fmt"
	"math"

	"fortio.org/safecast"

	"matforge/internal/material"
	"matforge/internal/registry"
)

// SumTolerance is the relative tolerance used when comparing sums of densities.
const SumTolerance = 1e-9

// CheckRecordInvariants runs the invariants every finalized record must hold:
// 1) total atomic density is finite, non-negative and equals the sum of entries
// 2) every entry has a bound identity and data handle, and a density >= 0
// 3) a zero density only appears on trace placeholders
// 4) the volume is unset or non-negative
func CheckRecordInvariants(rec *material.Record) error {
	if rec == nil {
		return fmt.Errorf("nil record")
	}
	total := rec.TotalAtomicDensity()
	if math.IsNaN(total) || math.IsInf(total, 0) || total < 0 {
		return fmt.Errorf("material %d: total atomic density %v", rec.ID(), total)
	}
	sum := 0.0
	for e := range rec.Entries() {
		if !e.Nuclide.IsValid() || e.Data == nil {
			return fmt.Errorf("material %d: %s is not bound", rec.ID(), e.Name)
		}
		if e.Density < 0 || math.IsNaN(e.Density) {
			return fmt.Errorf("material %d: %s has density %v", rec.ID(), e.Name, e.Density)
		}
		if e.Density == 0 && !e.Trace {
			return fmt.Errorf("material %d: %s has zero density without being a trace", rec.ID(), e.Name)
		}
		sum += e.Density
	}
	if math.Abs(sum-total) > SumTolerance*math.Max(total, 1e-300) {
		return fmt.Errorf("material %d: sum of entries %v != total %v", rec.ID(), sum, total)
	}
	if rec.HasVolume() && rec.Volume() < 0 {
		return fmt.Errorf("material %d: negative volume %v", rec.ID(), rec.Volume())
	}
	return nil
}

// CheckRegistryInvariants checks every record and the index mapping:
// 1) indices are dense, Lookup(Get(i).ID()) == i
// 2) identifiers are unique
// 3) every record satisfies CheckRecordInvariants
func CheckRegistryInvariants(reg *registry.Registry) error {
	if reg == nil {
		return fmt.Errorf("nil registry")
	}
	seen := make(map[int32]struct{}, reg.Len())
	for idx, rec := range reg.All() {
		want, err := safecast.Conv[int32](int(idx))
		if err != nil {
			return fmt.Errorf("index overflow: %w", err)
		}
		if rec != reg.Get(idx) {
			return fmt.Errorf("index %d: All and Get disagree", want)
		}
		if _, dup := seen[rec.ID()]; dup {
			return fmt.Errorf("material %d registered twice", rec.ID())
		}
		seen[rec.ID()] = struct{}{}
		got, err := reg.Lookup(rec.ID())
		if err != nil {
			return err
		}
		if got != idx {
			return fmt.Errorf("material %d: lookup gives %d, stored at %d", rec.ID(), got, idx)
		}
		if err := CheckRecordInvariants(rec); err != nil {
			return err
		}
	}
	if len(seen) != reg.Len() {
		return fmt.Errorf("registry yields %d records, Len reports %d", len(seen), reg.Len())
	}
	return nil
}
