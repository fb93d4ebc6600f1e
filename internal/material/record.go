package material

import (
	"iter"
	"slices"

	"matforge/internal/composition"
	"matforge/internal/units"
)

// Record is a finalized material. Read-only; safe for concurrent readers.
type Record struct {
	id          int32
	name        string
	volume      float64
	temperature float64
	density     units.Density
	depletable  bool
	comp        *composition.Table
	sab         []string

	atomDensity float64 // atoms/barn-cm
	massDensity float64 // g/cm3
	molarMass   float64 // g/mol, mean per atom
	fallbacks   []Fallback
}

func (r *Record) ID() int32    { return r.id }
func (r *Record) Name() string { return r.name }

// Volume returns the volume in cm^3, or VolumeUnset.
func (r *Record) Volume() float64 { return r.volume }

func (r *Record) HasVolume() bool { return r.volume != VolumeUnset }

// Temperature returns the resolved temperature in kelvin.
func (r *Record) Temperature() float64 { return r.temperature }

// Density returns the bulk density as declared.
func (r *Record) Density() units.Density { return r.density }

func (r *Record) Depletable() bool { return r.depletable }

// ThermalTables returns a copy of the material-level thermal tables.
func (r *Record) ThermalTables() []string { return slices.Clone(r.sab) }

// TotalAtomicDensity returns the sum of constituent densities [atoms/barn-cm].
func (r *Record) TotalAtomicDensity() float64 { return r.atomDensity }

// MassDensity returns sum(N_i * M_i) / N_A [g/cm3].
func (r *Record) MassDensity() float64 { return r.massDensity }

// MolarMass returns the mean molar mass per atom [g/mol].
func (r *Record) MolarMass() float64 { return r.molarMass }

// Fallbacks lists constituents resolved outside the temperature tolerance.
func (r *Record) Fallbacks() []Fallback { return slices.Clone(r.fallbacks) }

// Len returns the number of constituents.
func (r *Record) Len() int { return r.comp.Len() }

// Entry returns a copy of the i-th constituent.
func (r *Record) Entry(i int) composition.Entry { return *r.comp.At(i) }

// Entries yields copies of the constituents in declaration order.
func (r *Record) Entries() iter.Seq[composition.Entry] {
	return func(yield func(composition.Entry) bool) {
		for e := range r.comp.Entries() {
			if !yield(*e) {
				return
			}
		}
	}
}

// View exposes the constituents for hot loops without copying the table.
func (r *Record) View() composition.View { return r.comp.View() }

// release drops the composition so bound handles can be collected.
func (r *Record) release() {
	r.comp = composition.New(r.comp.Policy())
	r.fallbacks = nil
}

// Release is called by the owning registry on teardown.
func Release(r *Record) {
	if r != nil && r.comp != nil {
		r.release()
	}
}
