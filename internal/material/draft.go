// Package material turns a declared material into an immutable Record.
//
// A Draft is built during problem setup and finalized exactly once. A Record
// is what the transport kernel reads: composition, bound data handles and the
// derived totals, with no further mutation possible.
package material

import (
	"math"
	"slices"
	"strings"

	"matforge/internal/composition"
	"matforge/internal/diag"
	"matforge/internal/units"
)

// VolumeUnset marks a material without a known volume.
const VolumeUnset = -1.0

// DefaultTemperature is the global default temperature in kelvin.
const DefaultTemperature = 293.6

// State is the lifecycle state of a Draft.
type State uint8

const (
	StateDraft State = iota
	StateFinalized
)

func (s State) String() string {
	if s == StateFinalized {
		return "finalized"
	}
	return "draft"
}

// Draft is a material under construction. Not safe for concurrent use.
type Draft struct {
	id          int32
	name        string
	volume      float64
	temperature float64
	density     units.Density
	depletable  bool
	comp        *composition.Table
	sab         []string

	state  State
	err    error
	record *Record
}

// NewDraft starts a material with external identifier id. The identifier is
// validated at Finalize.
func NewDraft(id int32, policy composition.MergePolicy) *Draft {
	return &Draft{
		id:          id,
		volume:      VolumeUnset,
		temperature: -1,
		comp:        composition.New(policy),
	}
}

func (d *Draft) ID() int32    { return d.id }
func (d *Draft) Name() string { return d.name }
func (d *Draft) State() State { return d.state }

// Err returns the error of the last failed Finalize, or nil.
func (d *Draft) Err() error { return d.err }

// Record returns the finalized record, or nil.
func (d *Draft) Record() *Record { return d.record }

func (d *Draft) mutable() error {
	if d.state == StateFinalized {
		return diag.Errorf(diag.MatFinalized, "material can no longer be modified").ForMaterial(d.id)
	}
	return nil
}

// SetDensity sets the bulk density.
func (d *Draft) SetDensity(density units.Density) error {
	if err := d.mutable(); err != nil {
		return err
	}
	d.density = density
	return nil
}

// SetTemperature sets the material temperature in kelvin; a negative value
// means the global default applies.
func (d *Draft) SetTemperature(kelvin float64) error {
	if err := d.mutable(); err != nil {
		return err
	}
	d.temperature = kelvin
	return nil
}

// SetVolume sets the volume in cm^3; VolumeUnset clears it.
func (d *Draft) SetVolume(cm3 float64) error {
	if err := d.mutable(); err != nil {
		return err
	}
	d.volume = cm3
	return nil
}

func (d *Draft) SetName(name string) error {
	if err := d.mutable(); err != nil {
		return err
	}
	d.name = strings.TrimSpace(name)
	return nil
}

func (d *Draft) SetDepletable(v bool) error {
	if err := d.mutable(); err != nil {
		return err
	}
	d.depletable = v
	return nil
}

// Option tunes one constituent.
type Option func(*composition.Term)

// Trace marks the constituent as a zero-density placeholder.
func Trace() Option {
	return func(t *composition.Term) { t.Trace = true }
}

// ThermalLaw binds the constituent to a specific thermal-scattering table.
func ThermalLaw(name string) Option {
	return func(t *composition.Term) { t.Law = strings.TrimSpace(name) }
}

// AddNuclide adds a constituent. Names are resolved at Finalize.
func (d *Draft) AddNuclide(name string, value float64, unit units.Unit, opts ...Option) error {
	if err := d.mutable(); err != nil {
		return err
	}
	term := composition.Term{Name: name, Value: value, Unit: unit}
	for _, opt := range opts {
		opt(&term)
	}
	if err := d.comp.AddTerm(term); err != nil {
		return materialErr(err, d.id)
	}
	return nil
}

// AddThermalTable attaches a material-level thermal-scattering table. It binds
// to every constituent it covers that has no law of its own.
func (d *Draft) AddThermalTable(name string) error {
	if err := d.mutable(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return diag.Errorf(diag.InpMissingField, "empty thermal table name").ForMaterial(d.id)
	}
	if !slices.Contains(d.sab, name) {
		d.sab = append(d.sab, name)
	}
	return nil
}

// Len returns the number of declared constituents.
func (d *Draft) Len() int { return d.comp.Len() }

func (d *Draft) validate(env *Env) (float64, error) {
	if d.id <= 0 {
		return 0, diag.Errorf(diag.MatInvalidIdentifier, "identifier %d must be positive", d.id).ForMaterial(d.id)
	}
	if d.volume != VolumeUnset && (math.IsNaN(d.volume) || math.IsInf(d.volume, 0) || d.volume < 0) {
		return 0, diag.Errorf(diag.MatInvalidVolume, "volume %g cm3 must be non-negative", d.volume).ForMaterial(d.id)
	}
	t := d.temperature
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, diag.Errorf(diag.MatInvalidTemperature, "temperature %v is not finite", t).ForMaterial(d.id)
	}
	if t < 0 {
		t = env.defaultTemperature()
	}
	return t, nil
}
