// Package units converts constituent fractions and bulk densities into
// atomic densities in atoms/barn-cm, the single unit the transport kernel
// works in.
package units

import (
	"fmt"
	"math"
	"strings"
)

const (
	// Avogadro is the Avogadro constant in 1/mol (CODATA 2018, exact).
	Avogadro = 6.02214076e23
	// Barn is one barn in cm^2.
	Barn = 1e-24
	// AvogadroBarn converts mol/cm^3 into atoms/barn-cm.
	AvogadroBarn = Avogadro * Barn
)

// Unit tags how a constituent quantity is expressed.
type Unit uint8

const (
	UnitInvalid Unit = iota
	// AtomFraction is a relative abundance by atom count ("ao").
	AtomFraction
	// WeightFraction is a relative abundance by mass ("wo").
	WeightFraction
	// AtomDensity is an absolute density in atoms/barn-cm.
	AtomDensity
	// MassDensity is an absolute partial density in g/cm^3.
	MassDensity
)

func (u Unit) String() string {
	switch u {
	case AtomFraction:
		return "ao"
	case WeightFraction:
		return "wo"
	case AtomDensity:
		return "atom/b-cm"
	case MassDensity:
		return "g/cm3"
	}
	return "invalid"
}

// Class groups units that may be combined inside one material.
type Class uint8

const (
	ClassNone Class = iota
	Relative
	Absolute
)

func (c Class) String() string {
	switch c {
	case Relative:
		return "relative"
	case Absolute:
		return "absolute"
	}
	return "none"
}

// Class reports whether u is a relative fraction or an absolute density.
func (u Unit) Class() Class {
	switch u {
	case AtomFraction, WeightFraction:
		return Relative
	case AtomDensity, MassDensity:
		return Absolute
	}
	return ClassNone
}

// ParseUnit maps a unit tag onto a Unit.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ao", "atom", "atom-fraction":
		return AtomFraction, nil
	case "wo", "weight", "weight-fraction":
		return WeightFraction, nil
	case "atom/b-cm", "atom/barn-cm":
		return AtomDensity, nil
	case "g/cm3", "g/cc":
		return MassDensity, nil
	}
	return UnitInvalid, fmt.Errorf("unknown constituent unit %q (expected ao|wo|atom/b-cm|g/cm3)", s)
}

// DensityUnit tags how the bulk density of a material is expressed.
type DensityUnit uint8

const (
	DensityUnset DensityUnit = iota
	GramPerCC
	KilogramPerM3
	AtomPerBarnCM
	AtomPerCC
	// DensitySum means the bulk density is the sum of absolute constituents.
	DensitySum
)

func (u DensityUnit) String() string {
	switch u {
	case GramPerCC:
		return "g/cm3"
	case KilogramPerM3:
		return "kg/m3"
	case AtomPerBarnCM:
		return "atom/b-cm"
	case AtomPerCC:
		return "atom/cm3"
	case DensitySum:
		return "sum"
	}
	return "unset"
}

// ParseDensityUnit maps a bulk density unit tag onto a DensityUnit.
func ParseDensityUnit(s string) (DensityUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "g/cm3", "g/cc":
		return GramPerCC, nil
	case "kg/m3":
		return KilogramPerM3, nil
	case "atom/b-cm", "atom/barn-cm":
		return AtomPerBarnCM, nil
	case "atom/cm3", "atom/cc":
		return AtomPerCC, nil
	case "sum":
		return DensitySum, nil
	}
	return DensityUnset, fmt.Errorf("unknown density unit %q (expected g/cm3|kg/m3|atom/b-cm|atom/cm3|sum)", s)
}

// Density is a bulk density together with its unit.
type Density struct {
	Value float64
	Unit  DensityUnit
}

// GramsPerCC builds a mass density.
func GramsPerCC(v float64) Density { return Density{Value: v, Unit: GramPerCC} }

// AtomsPerBarnCM builds an atom density.
func AtomsPerBarnCM(v float64) Density { return Density{Value: v, Unit: AtomPerBarnCM} }

// Sum builds the "sum of constituents" density.
func Sum() Density { return Density{Unit: DensitySum} }

// IsSet reports whether a numeric bulk density was supplied.
func (d Density) IsSet() bool {
	return d.Unit != DensityUnset && d.Unit != DensitySum
}

// IsMass reports whether the density is a mass density.
func (d Density) IsMass() bool {
	return d.Unit == GramPerCC || d.Unit == KilogramPerM3
}

// GramsPerCC returns a mass density in g/cm^3; only valid when IsMass.
func (d Density) GramsPerCC() float64 {
	if d.Unit == KilogramPerM3 {
		return d.Value * 1e-3
	}
	return d.Value
}

// AtomsPerBarnCM returns an atom density in atoms/barn-cm; only valid for atom units.
func (d Density) AtomsPerBarnCM() float64 {
	if d.Unit == AtomPerCC {
		return d.Value * Barn
	}
	return d.Value
}

func (d Density) String() string {
	if !d.IsSet() {
		return d.Unit.String()
	}
	return fmt.Sprintf("%g %s", d.Value, d.Unit)
}

// MassToAtoms converts a partial mass density [g/cm^3] into atoms/barn-cm.
func MassToAtoms(rho, molarMass float64) float64 {
	return rho * AvogadroBarn / molarMass
}

// AtomsToMass converts an atom density [atoms/barn-cm] into g/cm^3.
func AtomsToMass(n, molarMass float64) float64 {
	return n * molarMass / AvogadroBarn
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
