package material

import (
	"errors"
	"math"

	"matforge/internal/composition"
	"matforge/internal/diag"
	"matforge/internal/nucdata"
	"matforge/internal/nuclide"
	"matforge/internal/units"
)

// Env is what Finalize resolves a material against.
type Env struct {
	Data  nucdata.Service
	Names *nuclide.Interner
	// DefaultTemperature replaces a negative material temperature. Zero or
	// negative means DefaultTemperature.
	DefaultTemperature float64
	// Tolerance [K]: a data set farther than this from the requested
	// temperature is recorded as a Fallback.
	Tolerance float64
}

func (e *Env) defaultTemperature() float64 {
	if e.DefaultTemperature > 0 {
		return e.DefaultTemperature
	}
	return DefaultTemperature
}

// Fallback records a constituent whose data was taken at a temperature
// outside the tolerance of the requested one.
type Fallback struct {
	Nuclide   string
	Law       string // "" for cross sections
	Requested float64
	Selected  float64
}

// Finalize validates the draft, resolves its composition and returns the
// immutable record. A failed Finalize leaves the draft in StateDraft with
// the error available from Err.
func (d *Draft) Finalize(env Env) (*Record, error) {
	if d.state == StateFinalized {
		return nil, diag.Errorf(diag.MatFinalized, "material is already finalized").ForMaterial(d.id)
	}
	rec, err := d.finalize(&env)
	if err != nil {
		d.err = materialErr(err, d.id)
		return nil, d.err
	}
	d.err = nil
	d.state = StateFinalized
	d.record = rec
	return rec, nil
}

func (d *Draft) finalize(env *Env) (*Record, error) {
	if env.Data == nil {
		return nil, diag.Errorf(diag.MatMissingNuclideData, "no nuclear data service")
	}
	if env.Names == nil {
		env.Names = nuclide.NewInterner()
	}
	temp, err := d.validate(env)
	if err != nil {
		return nil, err
	}

	b := &binder{env: env, temp: temp, sab: d.sab, used: make([]bool, len(d.sab))}
	if err := d.comp.Finalize(d.density, b); err != nil {
		return nil, err
	}
	for i, used := range b.used {
		if !used {
			d.comp = rebuild(d.comp)
			return nil, diag.Errorf(diag.MatMissingNuclideData,
				"thermal table %s covers no constituent at %g K", d.sab[i], temp)
		}
	}

	rec := &Record{
		id:          d.id,
		name:        d.name,
		volume:      d.volume,
		temperature: temp,
		density:     d.density,
		depletable:  d.depletable,
		comp:        d.comp,
		sab:         append([]string(nil), d.sab...),
		atomDensity: d.comp.TotalAtomicDensity(),
		massDensity: b.mass,
		fallbacks:   b.fallbacks,
	}
	if rec.atomDensity > 0 {
		rec.molarMass = rec.massDensity * units.AvogadroBarn / rec.atomDensity
	}
	return rec, nil
}

// rebuild returns an unfinalized copy of a finalized table so a draft that
// failed after its composition resolved stays mutable.
func rebuild(t *composition.Table) *composition.Table {
	out := composition.New(t.Policy())
	for _, term := range t.Terms() {
		_ = out.AddTerm(term)
	}
	return out
}

// binder resolves constituents against the data service at one temperature.
type binder struct {
	env       *Env
	temp      float64
	sab       []string
	used      []bool
	mass      float64 // g/cm3
	fallbacks []Fallback
}

func (b *binder) MolarMass(name string) (float64, error) {
	info, err := nuclide.Parse(name)
	if err != nil {
		return 0, err
	}
	m, err := b.env.Data.MolarMass(info.Name)
	if err != nil {
		if errors.Is(err, nucdata.ErrNotFound) {
			return 0, diag.Errorf(diag.MatMissingNuclideData, "no molar mass in the data library").ForNuclide(info.Name)
		}
		return 0, diag.Wrap(diag.MatMissingNuclideData, err, "molar mass lookup failed").ForNuclide(info.Name)
	}
	return m, nil
}

func (b *binder) Bind(e *composition.Entry, law string) error {
	id, err := b.env.Names.Intern(e.Name)
	if err != nil {
		return err
	}
	name := b.env.Names.MustName(id)
	e.Nuclide = id
	e.Name = name

	data := b.env.Data
	if !data.HasCrossSections(name, b.temp) {
		return diag.Errorf(diag.MatMissingNuclideData, "no cross sections at %g K", b.temp).ForNuclide(name)
	}
	h, ok := data.CrossSections(name, b.temp)
	if !ok {
		return diag.Errorf(diag.MatMissingNuclideData, "no cross sections at %g K", b.temp).ForNuclide(name)
	}
	e.Data = h
	b.noteFallback(name, "", h.Temperature)

	if law != "" {
		l, ok := data.ThermalScatteringLaw(law, name, b.temp)
		if !ok {
			return diag.Errorf(diag.MatMissingNuclideData, "thermal table %s has no data at %g K", law, b.temp).ForNuclide(name)
		}
		e.Law = l
		b.noteFallback(name, law, l.Temperature)
	} else {
		for i, table := range b.sab {
			if l, ok := data.ThermalScatteringLaw(table, name, b.temp); ok {
				e.Law = l
				b.used[i] = true
				b.noteFallback(name, table, l.Temperature)
				break
			}
		}
	}
	// explicit laws also satisfy a material-level table of the same name
	if e.Law != nil {
		for i, table := range b.sab {
			if table == e.Law.Name {
				b.used[i] = true
			}
		}
	}

	if e.Density > 0 {
		m, err := b.MolarMass(name)
		if err != nil {
			return err
		}
		b.mass += units.AtomsToMass(e.Density, m)
	}
	return nil
}

func (b *binder) noteFallback(name, law string, selected float64) {
	if b.env.Tolerance <= 0 || math.Abs(selected-b.temp) <= b.env.Tolerance {
		return
	}
	b.fallbacks = append(b.fallbacks, Fallback{Nuclide: name, Law: law, Requested: b.temp, Selected: selected})
}

func materialErr(err error, id int32) error {
	var de *diag.Error
	if errors.As(err, &de) {
		return de.ForMaterial(id)
	}
	return err
}
