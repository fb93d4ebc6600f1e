package nucdata

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"matforge/internal/diag"
	"matforge/internal/nuclide"
)

// SnapshotSchema is bumped whenever the Snapshot layout changes.
const SnapshotSchema uint16 = 1

// NuclideData is the library record of one nuclide.
type NuclideData struct {
	Name         string    `toml:"name" msgpack:"name"`
	MolarMass    float64   `toml:"molar_mass" msgpack:"molar_mass"`
	Temperatures []float64 `toml:"temperatures" msgpack:"temperatures"`
}

// ThermalData is the library record of one thermal-scattering table.
type ThermalData struct {
	Name         string    `toml:"name" msgpack:"name"`
	Nuclides     []string  `toml:"nuclides" msgpack:"nuclides"`
	Temperatures []float64 `toml:"temperatures" msgpack:"temperatures"`
}

// Snapshot is the serialisable content of a Library.
type Snapshot struct {
	Schema   uint16        `toml:"-" msgpack:"schema"`
	Nuclides []NuclideData `toml:"nuclide" msgpack:"nuclides"`
	Thermal  []ThermalData `toml:"thermal" msgpack:"thermal"`
}

type xsKey struct {
	nuclide string
	temp    float64
}

type lawKey struct {
	law     string
	nuclide string
	temp    float64
}

// Library is an in-memory Service. Mutation (Add*, Merge) happens during setup;
// lookups may run concurrently and share cached handles.
type Library struct {
	mu       sync.RWMutex
	policy   Policy
	nuclides map[string]*NuclideData
	thermal  map[string]*thermalEntry
	order    []string // insertion order of nuclides
	tOrder   []string // insertion order of thermal tables

	xs    map[xsKey]*Handle
	laws  map[lawKey]*Law
	count int
}

type thermalEntry struct {
	data   ThermalData
	covers map[string]struct{}
}

var _ Service = (*Library)(nil)

// New creates an empty library using policy for temperature selection.
func New(policy Policy) *Library {
	if policy.Tolerance < 0 || math.IsNaN(policy.Tolerance) {
		policy.Tolerance = 0
	}
	return &Library{
		policy:   policy,
		nuclides: make(map[string]*NuclideData),
		thermal:  make(map[string]*thermalEntry),
		xs:       make(map[xsKey]*Handle),
		laws:     make(map[lawKey]*Law),
	}
}

// FromSnapshot builds a library from a decoded snapshot.
func FromSnapshot(s *Snapshot, policy Policy) (*Library, error) {
	lib := New(policy)
	if err := lib.Merge(s); err != nil {
		return nil, err
	}
	return lib, nil
}

// Policy returns the temperature policy in use.
func (l *Library) Policy() Policy { return l.policy }

// Merge adds every record of s. A name already present is an error.
func (l *Library) Merge(s *Snapshot) error {
	if s == nil {
		return nil
	}
	for _, n := range s.Nuclides {
		if err := l.AddNuclide(n); err != nil {
			return err
		}
	}
	for _, t := range s.Thermal {
		if err := l.AddThermal(t); err != nil {
			return err
		}
	}
	return nil
}

// AddNuclide registers a nuclide record.
func (l *Library) AddNuclide(n NuclideData) error {
	info, err := nuclide.Parse(n.Name)
	if err != nil {
		return diag.Wrap(diag.DatMalformed, err, "nuclide record")
	}
	if math.IsNaN(n.MolarMass) || math.IsInf(n.MolarMass, 0) || n.MolarMass <= 0 {
		return diag.Errorf(diag.DatMalformed, "nuclide %s: molar mass %g must be positive", info.Name, n.MolarMass)
	}
	temps, err := sortedTemperatures(n.Temperatures)
	if err != nil {
		return diag.Wrap(diag.DatMalformed, err, "nuclide %s", info.Name)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.nuclides[info.Name]; dup {
		return diag.Errorf(diag.DatDuplicate, "nuclide %s defined twice", info.Name)
	}
	l.nuclides[info.Name] = &NuclideData{Name: info.Name, MolarMass: n.MolarMass, Temperatures: temps}
	l.order = append(l.order, info.Name)
	return nil
}

// AddThermal registers a thermal-scattering table.
func (l *Library) AddThermal(t ThermalData) error {
	if t.Name == "" {
		return diag.Errorf(diag.DatMalformed, "thermal table without a name")
	}
	if len(t.Nuclides) == 0 {
		return diag.Errorf(diag.DatMalformed, "thermal table %s covers no nuclide", t.Name)
	}
	temps, err := sortedTemperatures(t.Temperatures)
	if err != nil {
		return diag.Wrap(diag.DatMalformed, err, "thermal table %s", t.Name)
	}
	entry := &thermalEntry{
		data:   ThermalData{Name: t.Name, Temperatures: temps},
		covers: make(map[string]struct{}, len(t.Nuclides)),
	}
	for _, name := range t.Nuclides {
		info, err := nuclide.Parse(name)
		if err != nil {
			return diag.Wrap(diag.DatMalformed, err, "thermal table %s", t.Name)
		}
		if _, seen := entry.covers[info.Name]; seen {
			continue
		}
		entry.covers[info.Name] = struct{}{}
		entry.data.Nuclides = append(entry.data.Nuclides, info.Name)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.thermal[t.Name]; dup {
		return diag.Errorf(diag.DatDuplicate, "thermal table %s defined twice", t.Name)
	}
	l.thermal[t.Name] = entry
	l.tOrder = append(l.tOrder, t.Name)
	return nil
}

func sortedTemperatures(in []float64) ([]float64, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("no temperatures listed")
	}
	out := slices.Clone(in)
	for _, t := range out {
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return nil, fmt.Errorf("temperature %g K is invalid", t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// MolarMass implements Service.
func (l *Library) MolarMass(name string) (float64, error) {
	l.mu.RLock()
	n, ok := l.nuclides[name]
	l.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return n.MolarMass, nil
}

// HasCrossSections implements Service.
func (l *Library) HasCrossSections(name string, temperature float64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n, ok := l.nuclides[name]
	if !ok {
		return false
	}
	_, ok = l.policy.Select(n.Temperatures, temperature)
	return ok
}

// CrossSections implements Service. Handles are cached by the selected
// temperature, so requests at 293.6 K and 294 K that both resolve to the
// 294 K data set share one handle.
func (l *Library) CrossSections(name string, temperature float64) (*Handle, bool) {
	l.mu.RLock()
	n, ok := l.nuclides[name]
	if !ok {
		l.mu.RUnlock()
		return nil, false
	}
	sel, ok := l.policy.Select(n.Temperatures, temperature)
	if !ok {
		l.mu.RUnlock()
		return nil, false
	}
	key := xsKey{nuclide: name, temp: sel}
	h, hit := l.xs[key]
	l.mu.RUnlock()
	if hit {
		return h, true
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if h, hit = l.xs[key]; hit {
		return h, true
	}
	h = &Handle{Nuclide: name, Temperature: sel, Index: l.count}
	l.count++
	l.xs[key] = h
	return h, true
}

// ThermalScatteringLaw implements Service.
func (l *Library) ThermalScatteringLaw(law, name string, temperature float64) (*Law, bool) {
	l.mu.RLock()
	t, ok := l.thermal[law]
	if !ok {
		l.mu.RUnlock()
		return nil, false
	}
	if _, covered := t.covers[name]; !covered {
		l.mu.RUnlock()
		return nil, false
	}
	sel, ok := l.policy.Select(t.data.Temperatures, temperature)
	if !ok {
		l.mu.RUnlock()
		return nil, false
	}
	key := lawKey{law: law, nuclide: name, temp: sel}
	h, hit := l.laws[key]
	l.mu.RUnlock()
	if hit {
		return h, true
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if h, hit = l.laws[key]; hit {
		return h, true
	}
	// one handle per (table, temperature); nuclides of the same table share it
	for k, existing := range l.laws {
		if k.law == law && k.temp == sel {
			l.laws[key] = existing
			return existing, true
		}
	}
	h = &Law{Name: law, Temperature: sel, Index: l.count}
	l.count++
	l.laws[key] = h
	return h, true
}

// HasThermalTable reports whether a thermal table named law is loaded.
func (l *Library) HasThermalTable(law string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.thermal[law]
	return ok
}

// Snapshot returns the library content in insertion order.
func (l *Library) Snapshot() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := &Snapshot{Schema: SnapshotSchema}
	for _, name := range l.order {
		n := l.nuclides[name]
		s.Nuclides = append(s.Nuclides, NuclideData{
			Name:         n.Name,
			MolarMass:    n.MolarMass,
			Temperatures: slices.Clone(n.Temperatures),
		})
	}
	for _, name := range l.tOrder {
		t := l.thermal[name].data
		s.Thermal = append(s.Thermal, ThermalData{
			Name:         t.Name,
			Nuclides:     slices.Clone(t.Nuclides),
			Temperatures: slices.Clone(t.Temperatures),
		})
	}
	return s
}

// Stats reports library and cache sizes.
type Stats struct {
	Nuclides int
	Thermal  int
	Handles  int
}

func (l *Library) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Stats{Nuclides: len(l.nuclides), Thermal: len(l.thermal), Handles: len(l.xs) + len(l.laws)}
}

// Close drops every cached handle. Handles already returned stay readable but
// are no longer shared with later lookups.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.xs)
	clear(l.laws)
	return nil
}
