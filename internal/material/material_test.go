package material

import (
	"errors"
	"math"
	"testing"

	"matforge/internal/composition"
	"matforge/internal/diag"
	"matforge/internal/nucdata"
	"matforge/internal/nuclide"
	"matforge/internal/units"
)

func testEnv(t *testing.T) Env {
	t.Helper()
	lib, err := nucdata.FromSnapshot(&nucdata.Snapshot{
		Nuclides: []nucdata.NuclideData{
			{Name: "H1", MolarMass: 1.00782503207, Temperatures: []float64{294, 600}},
			{Name: "O16", MolarMass: 15.99491461956, Temperatures: []float64{294, 600}},
			{Name: "Fe56", MolarMass: 55.935, Temperatures: []float64{294}},
			{Name: "U235", MolarMass: 235.043930131, Temperatures: []float64{294, 900}},
			{Name: "U238", MolarMass: 238.050788423, Temperatures: []float64{294, 900}},
		},
		Thermal: []nucdata.ThermalData{
			{Name: "c_H_in_H2O", Nuclides: []string{"H1"}, Temperatures: []float64{294, 600}},
			{Name: "c_O_in_UO2", Nuclides: []string{"O16"}, Temperatures: []float64{900}},
		},
	}, nucdata.Policy{Method: nucdata.MethodFallback})
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	return Env{Data: lib, Names: nuclide.NewInterner(), Tolerance: nucdata.DefaultTolerance}
}

func water(id int32) *Draft {
	d := NewDraft(id, composition.MergeReject)
	_ = d.SetDensity(units.GramsPerCC(1.0))
	_ = d.AddNuclide("H1", 2, units.AtomFraction)
	_ = d.AddNuclide("O16", 1, units.AtomFraction)
	_ = d.AddThermalTable("c_H_in_H2O")
	return d
}

func TestFinalizeWater(t *testing.T) {
	d := water(1)
	rec, err := d.Finalize(testEnv(t))
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if d.State() != StateFinalized || d.Record() != rec {
		t.Fatalf("draft not marked finalized")
	}
	if rec.Temperature() != DefaultTemperature {
		t.Fatalf("temperature = %v, want the global default", rec.Temperature())
	}
	if math.Abs(rec.MassDensity()-1.0) > 1e-9 {
		t.Fatalf("mass density = %v, want 1.0", rec.MassDensity())
	}
	if math.Abs(rec.MolarMass()*3-18.0106) > 1e-3 {
		t.Fatalf("molecular mass = %v", rec.MolarMass()*3)
	}
	sum := 0.0
	for e := range rec.Entries() {
		sum += e.Density
	}
	if math.Abs(sum-rec.TotalAtomicDensity()) > 1e-15 {
		t.Fatalf("total %v != sum %v", rec.TotalAtomicDensity(), sum)
	}
	if h := rec.Entry(0); h.Law == nil || h.Law.Name != "c_H_in_H2O" {
		t.Fatalf("material-level table not bound to H1: %+v", h.Law)
	}
	if rec.Entry(1).Law != nil {
		t.Fatalf("c_H_in_H2O bound to O16")
	}
	if rec.HasVolume() {
		t.Fatalf("volume should be unset")
	}
	if err := d.AddNuclide("Fe56", 1, units.AtomFraction); !errors.Is(err, diag.ErrFinalized) {
		t.Fatalf("mutation after finalize: %v", err)
	}
	if _, err := d.Finalize(testEnv(t)); !errors.Is(err, diag.ErrFinalized) {
		t.Fatalf("second finalize: %v", err)
	}
}

func TestHandlesSharedAcrossMaterials(t *testing.T) {
	env := testEnv(t)
	a, err := water(1).Finalize(env)
	if err != nil {
		t.Fatalf("a: %v", err)
	}
	bd := water(2)
	_ = bd.SetTemperature(290)
	b, err := bd.Finalize(env)
	if err != nil {
		t.Fatalf("b: %v", err)
	}
	if a.Entry(0).Data != b.Entry(0).Data || a.Entry(0).Law != b.Entry(0).Law {
		t.Fatalf("materials at the same data temperature hold distinct handles")
	}
	if a.Entry(0).Nuclide != b.Entry(0).Nuclide {
		t.Fatalf("nuclide ids differ across materials")
	}
}

func TestFinalizeFailuresKeepDraft(t *testing.T) {
	cases := []struct {
		name  string
		build func() *Draft
		want  error
	}{
		{"zero id", func() *Draft { return water(0) }, diag.ErrInvalidIdentifier},
		{"negative volume", func() *Draft { d := water(1); _ = d.SetVolume(-3); return d }, diag.ErrInvalidQuantity},
		{"nan temperature", func() *Draft { d := water(1); _ = d.SetTemperature(math.NaN()); return d }, diag.ErrInvalidQuantity},
		{"missing nuclide", func() *Draft { d := water(1); _ = d.AddNuclide("Xe135", 1e-6, units.AtomFraction); return d }, diag.ErrMissingNuclideData},
		{"bad name", func() *Draft { d := water(1); _ = d.AddNuclide("Qq12", 1e-6, units.AtomFraction); return d }, diag.ErrInvalidNuclide},
		{"unused table", func() *Draft { d := water(1); _ = d.AddThermalTable("c_Graphite"); return d }, diag.ErrMissingNuclideData},
		{"no bulk density", func() *Draft {
			d := NewDraft(4, composition.MergeReject)
			_ = d.AddNuclide("Fe56", 1, units.WeightFraction)
			return d
		}, diag.ErrUnderspecifiedDensity},
		{"unit mix", func() *Draft {
			d := NewDraft(5, composition.MergeReject)
			_ = d.SetDensity(units.GramsPerCC(1))
			_ = d.AddNuclide("H1", 2, units.AtomFraction)
			_ = d.AddNuclide("O16", 0.03, units.AtomDensity)
			return d
		}, diag.ErrInconsistentUnitMix},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := tc.build()
			_, err := d.Finalize(testEnv(t))
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			if d.State() != StateDraft || d.Err() == nil {
				t.Fatalf("draft state %v, err %v", d.State(), d.Err())
			}
			if err := d.SetName("retry"); err != nil {
				t.Fatalf("draft not mutable after failure: %v", err)
			}
		})
	}
}

func TestErrorsCarryMaterialAndNuclide(t *testing.T) {
	d := water(42)
	_ = d.AddNuclide("Xe135", 1e-6, units.AtomFraction)
	_, err := d.Finalize(testEnv(t))
	var de *diag.Error
	if !errors.As(err, &de) {
		t.Fatalf("error %T is not *diag.Error", err)
	}
	if de.Material != 42 || de.Nuclide != "Xe135" {
		t.Fatalf("context = material %d nuclide %q", de.Material, de.Nuclide)
	}
}

func TestTemperatureFallbackRecorded(t *testing.T) {
	d := NewDraft(7, composition.MergeReject)
	_ = d.SetDensity(units.GramsPerCC(10.4))
	_ = d.SetTemperature(1200)
	_ = d.AddNuclide("U235", 0.03, units.AtomFraction)
	_ = d.AddNuclide("U238", 0.97, units.AtomFraction)
	rec, err := d.Finalize(testEnv(t))
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	fb := rec.Fallbacks()
	if len(fb) != 2 || fb[0].Selected != 900 || fb[0].Requested != 1200 {
		t.Fatalf("unexpected fallbacks %+v", fb)
	}
}

func TestTracePlaceholderAndExplicitLaw(t *testing.T) {
	d := NewDraft(8, composition.MergeReject)
	_ = d.SetTemperature(900)
	_ = d.SetDepletable(true)
	_ = d.AddNuclide("U235", 0.0005, units.AtomDensity)
	_ = d.AddNuclide("U238", 0.022, units.AtomDensity)
	_ = d.AddNuclide("O16", 0.045, units.AtomDensity, ThermalLaw("c_O_in_UO2"))
	_ = d.AddNuclide("Xe135", 0, units.AtomDensity, Trace())
	_, err := d.Finalize(testEnv(t))
	if !errors.Is(err, diag.ErrMissingNuclideData) {
		t.Fatalf("trace placeholders still need data: %v", err)
	}

	d = NewDraft(9, composition.MergeReject)
	_ = d.SetTemperature(900)
	_ = d.AddNuclide("U238", 0.022, units.AtomDensity)
	_ = d.AddNuclide("O16", 0.045, units.AtomDensity, ThermalLaw("c_O_in_UO2"))
	_ = d.AddNuclide("U235", 0, units.AtomDensity, Trace())
	rec, err := d.Finalize(testEnv(t))
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if rec.Entry(2).Density != 0 || !rec.Entry(2).Trace {
		t.Fatalf("trace placeholder not kept: %+v", rec.Entry(2))
	}
	if rec.Entry(1).Law == nil || rec.Entry(1).Law.Temperature != 900 {
		t.Fatalf("explicit law not bound")
	}
	if math.Abs(rec.TotalAtomicDensity()-0.067) > 1e-12 {
		t.Fatalf("total = %v", rec.TotalAtomicDensity())
	}
}
