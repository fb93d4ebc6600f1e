package units

import (
	"errors"
	"math"

	"matforge/internal/diag"
)

// ConsistencyTolerance is the relative tolerance used when a bulk density is
// given alongside absolute constituent densities.
const ConsistencyTolerance = 1e-6

// Term is one constituent as declared. Name is only used for error context.
type Term struct {
	Name  string
	Value float64
	Unit  Unit
	// Trace marks a zero-density placeholder kept for depletion bookkeeping.
	Trace bool
}

// MolarMassFunc returns the molar mass [g/mol] of terms[i].
type MolarMassFunc func(i int) (float64, error)

// Normalize converts terms into atomic densities [atoms/barn-cm], one per term,
// in the order given. Molar masses are requested lazily and at most once per
// term, only when a conversion needs them.
func Normalize(terms []Term, bulk Density, mass MolarMassFunc) ([]float64, error) {
	if len(terms) == 0 {
		return nil, diag.Errorf(diag.CmpEmptyComposition, "no constituents declared")
	}
	if err := validateBulk(bulk); err != nil {
		return nil, err
	}
	class, err := classify(terms)
	if err != nil {
		return nil, err
	}
	m := &massCache{terms: terms, fn: mass, vals: make([]float64, len(terms))}
	if class == Absolute {
		return normalizeAbsolute(terms, bulk, m)
	}
	return normalizeRelative(terms, bulk, m)
}

func validateBulk(bulk Density) error {
	switch bulk.Unit {
	case DensityUnset, DensitySum:
		return nil
	case GramPerCC, KilogramPerM3, AtomPerBarnCM, AtomPerCC:
		if !finite(bulk.Value) || bulk.Value <= 0 {
			return diag.Errorf(diag.CmpInvalidQuantity, "bulk density %g %s must be positive", bulk.Value, bulk.Unit)
		}
		return nil
	}
	return diag.Errorf(diag.CmpInvalidQuantity, "unknown bulk density unit")
}

// classify validates every term and returns the unit class shared by all of them.
func classify(terms []Term) (Class, error) {
	var (
		class Class
		first Unit
	)
	for _, t := range terms {
		switch {
		case t.Unit.Class() == ClassNone:
			return ClassNone, diag.Errorf(diag.CmpInvalidQuantity, "constituent has no unit").ForNuclide(t.Name)
		case !finite(t.Value):
			return ClassNone, diag.Errorf(diag.CmpInvalidQuantity, "value %v is not finite", t.Value).ForNuclide(t.Name)
		case t.Value < 0:
			return ClassNone, diag.Errorf(diag.CmpInvalidQuantity, "negative value %g; units are given by tag, not by sign", t.Value).ForNuclide(t.Name)
		case t.Value == 0 && !t.Trace:
			return ClassNone, diag.Errorf(diag.CmpInvalidQuantity, "zero value; mark the constituent as a trace placeholder to keep it").ForNuclide(t.Name)
		}
		if class == ClassNone {
			class, first = t.Unit.Class(), t.Unit
			continue
		}
		if t.Unit.Class() != class {
			return ClassNone, diag.Errorf(diag.CmpInconsistentUnitMix,
				"%s (%s) cannot be mixed with %s (%s)", t.Unit, t.Unit.Class(), first, class).ForNuclide(t.Name)
		}
		if class == Relative && t.Unit != first {
			return ClassNone, diag.Errorf(diag.CmpInconsistentUnitMix,
				"atom and weight fractions cannot be mixed (%s after %s)", t.Unit, first).ForNuclide(t.Name)
		}
	}
	return class, nil
}

func normalizeRelative(terms []Term, bulk Density, m *massCache) ([]float64, error) {
	if !bulk.IsSet() {
		return nil, diag.Errorf(diag.CmpUnderspecifiedDensity,
			"%s fractions need a numeric bulk density, got %s", terms[0].Unit, bulk.Unit)
	}

	out := make([]float64, len(terms))
	sum := 0.0
	for i, t := range terms {
		if t.Value == 0 {
			continue
		}
		a := t.Value
		if t.Unit == WeightFraction {
			mm, err := m.get(i)
			if err != nil {
				return nil, err
			}
			a /= mm
		}
		out[i] = a
		sum += a
	}
	if sum == 0 {
		return nil, diag.Errorf(diag.CmpInvalidQuantity, "fractions sum to zero")
	}
	for i := range out {
		out[i] /= sum
	}

	var total float64
	if bulk.IsMass() {
		// mean molar mass per atom of the mixture
		mean := 0.0
		for i, f := range out {
			if f == 0 {
				continue
			}
			mm, err := m.get(i)
			if err != nil {
				return nil, err
			}
			mean += f * mm
		}
		total = MassToAtoms(bulk.GramsPerCC(), mean)
	} else {
		total = bulk.AtomsPerBarnCM()
	}
	for i := range out {
		out[i] *= total
	}
	return out, nil
}

func normalizeAbsolute(terms []Term, bulk Density, m *massCache) ([]float64, error) {
	out := make([]float64, len(terms))
	for i, t := range terms {
		switch t.Unit {
		case AtomDensity:
			out[i] = t.Value
		case MassDensity:
			if t.Value == 0 {
				continue
			}
			mm, err := m.get(i)
			if err != nil {
				return nil, err
			}
			out[i] = MassToAtoms(t.Value, mm)
		}
	}
	if !bulk.IsSet() {
		return out, nil
	}

	// A bulk density given next to absolute constituents must agree with them.
	var got, want float64
	if bulk.IsMass() {
		want = bulk.GramsPerCC()
		for i, n := range out {
			if n == 0 {
				continue
			}
			mm, err := m.get(i)
			if err != nil {
				return nil, err
			}
			got += AtomsToMass(n, mm)
		}
	} else {
		want = bulk.AtomsPerBarnCM()
		for _, n := range out {
			got += n
		}
	}
	if math.Abs(got-want) > ConsistencyTolerance*want {
		return nil, diag.Errorf(diag.CmpInconsistentUnitMix,
			"bulk density %s disagrees with the sum of absolute constituents (%g)", bulk, got)
	}
	return out, nil
}

type massCache struct {
	terms []Term
	fn    MolarMassFunc
	vals  []float64
}

func (c *massCache) get(i int) (float64, error) {
	if v := c.vals[i]; v > 0 {
		return v, nil
	}
	name := c.terms[i].Name
	if c.fn == nil {
		return 0, diag.Errorf(diag.MatMissingNuclideData, "no molar mass source").ForNuclide(name)
	}
	v, err := c.fn(i)
	if err != nil {
		var de *diag.Error
		if errors.As(err, &de) {
			return 0, de.ForNuclide(name)
		}
		return 0, diag.Wrap(diag.MatMissingNuclideData, err, "molar mass unavailable").ForNuclide(name)
	}
	if !finite(v) || v <= 0 {
		return 0, diag.Errorf(diag.CmpInvalidQuantity, "molar mass %g must be positive", v).ForNuclide(name)
	}
	c.vals[i] = v
	return v, nil
}
