package setup

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"matforge/internal/diag"
	"matforge/internal/nucdata"
	"matforge/internal/observ"
	"matforge/internal/problem"
	"matforge/internal/testkit"
	"matforge/internal/trace"
)

const libA = `
[[nuclide]]
name = "H1"
molar_mass = 1.00782503207
temperatures = [294.0, 600.0]

[[nuclide]]
name = "O16"
molar_mass = 15.99491461956
temperatures = [294.0, 600.0]

[[thermal]]
name = "c_H_in_H2O"
nuclides = ["H1"]
temperatures = [294.0, 600.0]
`

const libB = `
[[nuclide]]
name = "U235"
molar_mass = 235.043930131
temperatures = [294.0, 900.0]

[[nuclide]]
name = "U238"
molar_mass = 238.050788423
temperatures = [294.0, 900.0]

[[nuclide]]
name = "Fe56"
molar_mass = 55.935
temperatures = [294.0]
`

const goodProblem = `
[settings]
temperature_method = "fallback"
libraries = ["a.toml", "b.toml"]

[[material]]
id = 1
name = "water"
density = { value = 1.0, units = "g/cm3" }
sab = ["c_H_in_H2O"]
nuclides = [
  { name = "H1", fraction = 2.0, unit = "ao" },
  { name = "O16", fraction = 1.0, unit = "ao" },
]

[[material]]
id = 2
name = "fuel"
temperature = 1200.0
density = { value = 10.4, units = "g/cm3" }
nuclides = [
  { name = "U235", fraction = 0.03, unit = "wo" },
  { name = "U238", fraction = 0.97, unit = "wo" },
]

[[material]]
id = 3
nuclides = [{ name = "Fe56", fraction = 10.0, unit = "g/cm3" }]

[[cell]]
id = 1
material = 2

[[cell]]
id = 2
material = 1

[[cell]]
id = 3
material = 0
`

func writeProblem(t *testing.T, src string) *problem.Problem {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{"a.toml": libA, "b.toml": libB, problem.FileName: src} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	p, err := problem.Load(filepath.Join(dir, problem.FileName))
	if err != nil {
		t.Fatalf("problem.Load: %v", err)
	}
	return p
}

func TestBuild(t *testing.T) {
	p := writeProblem(t, goodProblem)
	var mu sync.Mutex
	var events []Event
	sink := FuncSink(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	timer := observ.NewTimer()

	res, err := Build(context.Background(), p, Options{Jobs: 2, Progress: sink, Timer: timer})
	if err != nil {
		t.Fatalf("Build: %v (%v)", err, res.Bag.Items())
	}
	reg := res.Registry
	if reg == nil || !reg.Sealed() || reg.Len() != 3 {
		t.Fatalf("registry not built: %+v", reg)
	}
	if err := testkit.CheckRegistryInvariants(reg); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	if len(res.Cells) != 3 || res.Cells[0] != 1 || res.Cells[1] != 0 || !res.Cells[2].IsVoid() {
		t.Fatalf("cells = %v", res.Cells)
	}

	// fuel at 1200 K falls back to 900 K data for both uranium isotopes
	if res.Bag.HasErrors() || res.Bag.Len() != 2 {
		t.Fatalf("expected two fallback warnings, got %+v", res.Bag.Items())
	}
	for _, d := range res.Bag.Items() {
		if d.Code != diag.MatTemperatureFallback || d.Primary.Material != 2 {
			t.Fatalf("unexpected diagnostic %+v", d)
		}
	}

	water, _ := reg.Lookup(1)
	if math.Abs(reg.Get(water).MassDensity()-1.0) > 1e-9 {
		t.Fatalf("water mass density = %v", reg.Get(water).MassDensity())
	}
	if reg.Get(water).Temperature() != 293.6 {
		t.Fatalf("water did not inherit the global temperature")
	}

	sawSeal := false
	for _, ev := range events {
		if ev.Stage == StageSeal && ev.Status == StatusDone {
			sawSeal = true
		}
	}
	if !sawSeal {
		t.Fatalf("no seal event among %d events", len(events))
	}
	if got := len(timer.Report().Phases); got != 4 {
		t.Fatalf("timer recorded %d phases", got)
	}
}

func TestBuildIsReproducible(t *testing.T) {
	p := writeProblem(t, goodProblem)
	a, err := Build(context.Background(), p, Options{Jobs: 1})
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	b, err := Build(context.Background(), p, Options{Jobs: 4})
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if a.Registry.Digest() != b.Registry.Digest() {
		t.Fatalf("digests differ: %s vs %s", a.Registry.Digest().Short(), b.Registry.Digest().Short())
	}
}

func TestBuildReportsEveryFailure(t *testing.T) {
	src := strings.Replace(goodProblem, `{ name = "O16", fraction = 1.0, unit = "ao" },`,
		`{ name = "O16", fraction = 0.03, unit = "atom/b-cm" },`, 1)
	src += `
[[material]]
id = 3
nuclides = [{ name = "Fe56", fraction = 1.0, unit = "g/cm3" }]

[[material]]
id = 4
density = { value = 1.0, units = "g/cm3" }
nuclides = [{ name = "Xe135", fraction = 1.0, unit = "ao" }]

[[cell]]
id = 4
material = 9

[[cell]]
id = 5
material = 1
`
	p := writeProblem(t, src)
	res, err := Build(context.Background(), p, Options{})
	if !errors.Is(err, diag.ErrSetupFailed) {
		t.Fatalf("expected ErrSetupFailed, got %v", err)
	}
	if res.Registry != nil {
		t.Fatalf("registry handed out after failure")
	}
	want := map[diag.Code]bool{
		diag.CmpInconsistentUnitMix: false,
		diag.RegDuplicateIdentifier: false,
		diag.MatMissingNuclideData:  false,
		diag.RegUnknownMaterial:     false,
	}
	for _, d := range res.Bag.Items() {
		if d.Severity != diag.SevError {
			continue
		}
		if _, ok := want[d.Code]; !ok {
			t.Fatalf("unexpected error %s: %s", d.Code.ID(), d.Message)
		}
		want[d.Code] = true
	}
	for code, seen := range want {
		if !seen {
			t.Errorf("%s not reported", code.ID())
		}
	}
	// cell 5 points at the broken water material; only the material error is reported
	if n := res.Bag.CountErrors(); n != 4 {
		t.Fatalf("expected 4 errors, got %d: %+v", n, res.Bag.Items())
	}
}

func TestBuildTracesFailedMaterials(t *testing.T) {
	src := goodProblem + `
[[material]]
id = 4
density = { value = 1.0, units = "g/cm3" }
nuclides = [{ name = "Xe135", fraction = 1.0, unit = "ao" }]
`
	ring := trace.NewRingTracer(64, trace.LevelError)
	ctx := trace.WithTracer(context.Background(), ring)
	if _, err := Build(ctx, writeProblem(t, src), Options{}); !errors.Is(err, diag.ErrSetupFailed) {
		t.Fatalf("expected ErrSetupFailed, got %v", err)
	}

	var failed []int32
	for _, ev := range ring.Snapshot() {
		if !ev.Failed() {
			t.Fatalf("error level recorded %+v", ev)
		}
		if ev.Material != 0 {
			failed = append(failed, ev.Material)
		}
	}
	if len(failed) != 1 || failed[0] != 4 {
		t.Fatalf("failed materials = %v", failed)
	}
	if evs := ring.Material(4); len(evs) != 1 || !strings.Contains(evs[0].Err, "Xe135") {
		t.Fatalf("material 4 events = %+v", evs)
	}
	if len(ring.InFlight()) != 0 {
		t.Fatalf("materials left in flight: %v", ring.InFlight())
	}
}

func TestBuildWithoutLibraries(t *testing.T) {
	p := writeProblem(t, "[[material]]\nid = 1\nnuclides = [{ name = \"Fe56\", fraction = 1.0, unit = \"g/cm3\" }]\n")
	res, err := Build(context.Background(), p, Options{})
	if !errors.Is(err, diag.ErrSetupFailed) || res.Bag.Items()[0].Code != diag.InpMissingField {
		t.Fatalf("got %v / %+v", err, res.Bag.Items())
	}
}

func TestLoadLibrariesRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.toml")
	b := filepath.Join(dir, "b.toml")
	_ = os.WriteFile(a, []byte(libA), 0o644)
	_ = os.WriteFile(b, []byte(libA), 0o644)
	_, err := LoadLibraries(context.Background(), []string{a, b}, nucdata.DefaultPolicy(), nil, 2, nil)
	if !errors.Is(err, diag.ErrMalformedLibrary) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if !strings.Contains(err.Error(), "b.toml") {
		t.Fatalf("error does not name the second file: %v", err)
	}
}

func TestLoadLibrariesUsesCache(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.toml")
	_ = os.WriteFile(a, []byte(libA), 0o644)
	cache, err := nucdata.OpenCacheDir(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("OpenCacheDir: %v", err)
	}
	for range 2 {
		lib, err := LoadLibraries(context.Background(), []string{a}, nucdata.DefaultPolicy(), cache, 1, nil)
		if err != nil {
			t.Fatalf("LoadLibraries: %v", err)
		}
		if lib.Stats().Nuclides != 2 {
			t.Fatalf("stats = %+v", lib.Stats())
		}
	}
}

func TestSurvey(t *testing.T) {
	p := writeProblem(t, goodProblem)
	res, err := Build(context.Background(), p, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sums, err := Survey(context.Background(), res.Registry, 4)
	if err != nil {
		t.Fatalf("Survey: %v", err)
	}
	if len(sums) != 3 {
		t.Fatalf("got %d summaries", len(sums))
	}
	if sums[0].ID != 1 || sums[0].ThermalBound != 1 || sums[0].Nuclides != 2 {
		t.Fatalf("water summary %+v", sums[0])
	}
	if sums[1].Fallbacks != 2 || sums[1].Temperature != 1200 {
		t.Fatalf("fuel summary %+v", sums[1])
	}
	if math.Abs(sums[2].AtomDensity-0.1077) > 1e-4 {
		t.Fatalf("steel density %v", sums[2].AtomDensity)
	}
}

func TestBuildEmitsTrace(t *testing.T) {
	var buf strings.Builder
	tracer := trace.NewStreamTracer(&lockedWriter{w: &buf}, trace.LevelDebug, trace.FormatText)
	ctx := trace.WithTracer(context.Background(), tracer)
	if _, err := Build(ctx, writeProblem(t, goodProblem), Options{}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"setup", "register", "fuel [material 2]", "bind [material 2/U235]", "seal"} {
		if !strings.Contains(out, want) {
			t.Errorf("trace output lacks %q", want)
		}
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  *strings.Builder
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
