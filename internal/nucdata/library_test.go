package nucdata

import (
	"errors"
	"sync"
	"testing"

	"matforge/internal/diag"
)

func testLibrary(t *testing.T, policy Policy) *Library {
	t.Helper()
	lib, err := FromSnapshot(&Snapshot{
		Nuclides: []NuclideData{
			{Name: "H1", MolarMass: 1.00782503207, Temperatures: []float64{294, 600}},
			{Name: "O16", MolarMass: 15.99491461956, Temperatures: []float64{600, 294}},
			{Name: "U235", MolarMass: 235.043930131, Temperatures: []float64{294, 600, 900}},
		},
		Thermal: []ThermalData{
			{Name: "c_H_in_H2O", Nuclides: []string{"H1"}, Temperatures: []float64{294, 350}},
		},
	}, policy)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	return lib
}

func TestTemperatureSelection(t *testing.T) {
	temps := []float64{294, 600, 900}
	cases := []struct {
		policy Policy
		in     float64
		want   float64
		ok     bool
	}{
		{DefaultPolicy(), 293.6, 294, true},
		{DefaultPolicy(), 600, 600, true},
		{DefaultPolicy(), 750, 0, false},
		{DefaultPolicy(), 2000, 0, false},
		{Policy{Method: MethodFallback}, 2000, 900, true},
		{Policy{Method: MethodFallback}, 750, 600, true},
		{Policy{Method: MethodNearest, Tolerance: 200}, 750, 600, true},
	}
	for _, tc := range cases {
		got, ok := tc.policy.Select(temps, tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("%s/%g: Select(%g) = %g, %v; want %g, %v", tc.policy.Method, tc.policy.Tolerance, tc.in, got, ok, tc.want, tc.ok)
		}
	}
	if _, ok := DefaultPolicy().Select(nil, 294); ok {
		t.Fatalf("empty table selected a temperature")
	}
}

func TestParseMethod(t *testing.T) {
	if m, err := ParseMethod(""); err != nil || m != MethodNearest {
		t.Fatalf("default method = %v, %v", m, err)
	}
	if m, err := ParseMethod("Fallback"); err != nil || m != MethodFallback {
		t.Fatalf("fallback = %v, %v", m, err)
	}
	if _, err := ParseMethod("interpolate"); err == nil {
		t.Fatalf("unknown method accepted")
	}
}

func TestLibraryLookups(t *testing.T) {
	lib := testLibrary(t, DefaultPolicy())

	if m, err := lib.MolarMass("O16"); err != nil || m != 15.99491461956 {
		t.Fatalf("MolarMass(O16) = %v, %v", m, err)
	}
	if _, err := lib.MolarMass("Xe135"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing nuclide error = %v", err)
	}
	if !lib.HasCrossSections("U235", 293.6) {
		t.Fatalf("U235 at 293.6 K should resolve to 294 K")
	}
	if lib.HasCrossSections("U235", 1200) {
		t.Fatalf("U235 at 1200 K is outside the tolerance")
	}
	if lib.HasCrossSections("Xe135", 294) {
		t.Fatalf("unknown nuclide reported data")
	}
}

func TestHandlesAreShared(t *testing.T) {
	lib := testLibrary(t, DefaultPolicy())

	a, ok := lib.CrossSections("U235", 293.6)
	if !ok {
		t.Fatalf("no handle for U235")
	}
	b, _ := lib.CrossSections("U235", 294)
	if a != b {
		t.Fatalf("requests resolving to the same data set returned different handles")
	}
	if a.Temperature != 294 {
		t.Fatalf("selected temperature = %g", a.Temperature)
	}
	c, _ := lib.CrossSections("U235", 600)
	if c == a {
		t.Fatalf("different temperatures share a handle")
	}

	l1, ok := lib.ThermalScatteringLaw("c_H_in_H2O", "H1", 300)
	if !ok {
		t.Fatalf("thermal law not found")
	}
	l2, _ := lib.ThermalScatteringLaw("c_H_in_H2O", "H1", 294)
	if l1 != l2 {
		t.Fatalf("thermal law handles not shared")
	}
	if _, ok := lib.ThermalScatteringLaw("c_H_in_H2O", "O16", 294); ok {
		t.Fatalf("thermal table does not cover O16")
	}
	if _, ok := lib.ThermalScatteringLaw("c_Graphite", "H1", 294); ok {
		t.Fatalf("unknown thermal table resolved")
	}
	if s := lib.Stats(); s.Handles != 3 || s.Nuclides != 3 || s.Thermal != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestHandlesConcurrent(t *testing.T) {
	lib := testLibrary(t, DefaultPolicy())
	const workers = 16
	got := make([]*Handle, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], _ = lib.CrossSections("H1", 294)
		}()
	}
	wg.Wait()
	for i := 1; i < workers; i++ {
		if got[i] != got[0] {
			t.Fatalf("worker %d got a distinct handle", i)
		}
	}
}

func TestLibraryRejectsBadRecords(t *testing.T) {
	lib := New(DefaultPolicy())
	cases := []struct {
		name string
		rec  NuclideData
		want error
	}{
		{"bad name", NuclideData{Name: "Qq1", MolarMass: 1, Temperatures: []float64{294}}, diag.ErrMalformedLibrary},
		{"zero mass", NuclideData{Name: "H1", Temperatures: []float64{294}}, diag.ErrMalformedLibrary},
		{"no temps", NuclideData{Name: "H1", MolarMass: 1}, diag.ErrMalformedLibrary},
		{"negative temp", NuclideData{Name: "H1", MolarMass: 1, Temperatures: []float64{-1}}, diag.ErrMalformedLibrary},
	}
	for _, tc := range cases {
		if err := lib.AddNuclide(tc.rec); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v", tc.name, err)
		}
	}
	if err := lib.AddNuclide(NuclideData{Name: "H1", MolarMass: 1, Temperatures: []float64{294}}); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}
	err := lib.AddNuclide(NuclideData{Name: "H1", MolarMass: 1, Temperatures: []float64{294}})
	var de *diag.Error
	if !errors.As(err, &de) || de.Code != diag.DatDuplicate {
		t.Fatalf("duplicate nuclide error = %v", err)
	}
	if err := lib.AddThermal(ThermalData{Name: "c_H", Temperatures: []float64{294}}); !errors.Is(err, diag.ErrMalformedLibrary) {
		t.Fatalf("thermal table without nuclides accepted: %v", err)
	}
}

func TestCloseDropsCache(t *testing.T) {
	lib := testLibrary(t, DefaultPolicy())
	a, _ := lib.CrossSections("H1", 294)
	if err := lib.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if lib.Stats().Handles != 0 {
		t.Fatalf("Close kept cached handles")
	}
	if a.Nuclide != "H1" {
		t.Fatalf("handle returned before Close was modified")
	}
}
