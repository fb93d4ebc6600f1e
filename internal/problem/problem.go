// Package problem loads the declarative problem description (matforge.toml):
// global settings, materials and the material references of geometry cells.
package problem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"matforge/internal/composition"
	"matforge/internal/diag"
	"matforge/internal/material"
	"matforge/internal/nucdata"
	"matforge/internal/units"
)

// FileName is the problem file looked up by FindProblemFile.
const FileName = "matforge.toml"

// Problem is a decoded problem file.
type Problem struct {
	Path      string         `toml:"-"`
	Settings  Settings       `toml:"settings"`
	Materials []MaterialSpec `toml:"material"`
	Cells     []CellSpec     `toml:"cell"`
}

// Settings are the run-wide options.
type Settings struct {
	Temperature          float64  `toml:"temperature"`
	TemperatureMethod    string   `toml:"temperature_method"`
	TemperatureTolerance float64  `toml:"temperature_tolerance"`
	Duplicates           string   `toml:"duplicates"`
	SignedFractions      bool     `toml:"signed_fractions"`
	Libraries            []string `toml:"libraries"`
}

// DensitySpec is a bulk density with its unit.
type DensitySpec struct {
	Value float64 `toml:"value"`
	Units string  `toml:"units"`
}

// MaterialSpec is one [[material]] table.
type MaterialSpec struct {
	ID          int32         `toml:"id"`
	Name        string        `toml:"name"`
	Density     *DensitySpec  `toml:"density"`
	Temperature *float64      `toml:"temperature"`
	Volume      *float64      `toml:"volume"`
	Depletable  bool          `toml:"depletable"`
	Sab         []string      `toml:"sab"`
	Nuclides    []NuclideSpec `toml:"nuclides"`
}

// NuclideSpec is one constituent of a material.
type NuclideSpec struct {
	Name     string  `toml:"name"`
	Fraction float64 `toml:"fraction"`
	Unit     string  `toml:"unit"`
	Trace    bool    `toml:"trace"`
	Sab      string  `toml:"sab"`
}

// CellSpec is one [[cell]] table. Material 0 is void.
type CellSpec struct {
	ID       int32 `toml:"id"`
	Material int32 `toml:"material"`
}

// FindProblemFile walks up from startDir looking for FileName.
func FindProblemFile(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Resolve turns a command-line argument into a problem file path: a file is
// used as is, a directory (or "") is searched upwards for FileName.
func Resolve(arg string) (string, error) {
	if arg != "" {
		info, err := os.Stat(arg)
		if err != nil {
			return "", diag.Wrap(diag.InpNotFound, err, "problem %s", arg)
		}
		if !info.IsDir() {
			return arg, nil
		}
	}
	path, ok, err := FindProblemFile(arg)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", diag.Errorf(diag.InpNotFound, "no %s found\nplease pass the problem file explicitly, e.g.:\n  matforge resolve path/to/%s", FileName, FileName)
	}
	return path, nil
}

// Load reads and validates a problem file.
func Load(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, diag.Wrap(diag.InpNotFound, err, "problem %s", path)
	}
	return Parse(path, data)
}

// Parse decodes problem content; path is used for messages and to resolve
// relative library paths.
func Parse(path string, data []byte) (*Problem, error) {
	var p Problem
	meta, err := toml.Decode(string(data), &p)
	if err != nil {
		return nil, diag.Wrap(diag.InpMalformed, err, "%s: failed to parse TOML", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, diag.Errorf(diag.InpUnknownKey, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	p.Path = path
	if !meta.IsDefined("settings", "temperature") {
		p.Settings.Temperature = material.DefaultTemperature
	}
	if !meta.IsDefined("settings", "temperature_tolerance") {
		p.Settings.TemperatureTolerance = nucdata.DefaultTolerance
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Problem) validate() error {
	s := p.Settings
	if s.Temperature <= 0 {
		return diag.Errorf(diag.InpBadSetting, "%s: [settings].temperature must be positive", p.Path)
	}
	if s.TemperatureTolerance < 0 {
		return diag.Errorf(diag.InpBadSetting, "%s: [settings].temperature_tolerance must not be negative", p.Path)
	}
	if _, err := nucdata.ParseMethod(s.TemperatureMethod); err != nil {
		return diag.Wrap(diag.InpBadSetting, err, "%s: [settings].temperature_method", p.Path)
	}
	if _, err := composition.ParseMergePolicy(s.Duplicates); err != nil {
		return diag.Wrap(diag.InpBadSetting, err, "%s: [settings].duplicates", p.Path)
	}
	for i, m := range p.Materials {
		if m.ID == 0 {
			return diag.Errorf(diag.InpMissingField, "%s: material #%d has no id", p.Path, i+1)
		}
		for j, n := range m.Nuclides {
			if strings.TrimSpace(n.Name) == "" {
				return diag.Errorf(diag.InpMissingField, "%s: nuclide #%d has no name", p.Path, j+1).ForMaterial(m.ID)
			}
		}
	}
	for i, c := range p.Cells {
		if c.ID == 0 {
			return diag.Errorf(diag.InpMissingField, "%s: cell #%d has no id", p.Path, i+1)
		}
	}
	return nil
}

// Dir is the directory of the problem file.
func (p *Problem) Dir() string { return filepath.Dir(p.Path) }

// LibraryPaths returns library paths resolved against the problem directory.
func (p *Problem) LibraryPaths() []string {
	out := make([]string, len(p.Settings.Libraries))
	for i, lib := range p.Settings.Libraries {
		if filepath.IsAbs(lib) {
			out[i] = lib
		} else {
			out[i] = filepath.Join(p.Dir(), filepath.FromSlash(lib))
		}
	}
	return out
}

// Policy returns the temperature policy of the run.
func (s Settings) Policy() nucdata.Policy {
	m, _ := nucdata.ParseMethod(s.TemperatureMethod)
	return nucdata.Policy{Method: m, Tolerance: s.TemperatureTolerance}
}

// MergePolicy returns the duplicate-constituent policy.
func (s Settings) MergePolicy() composition.MergePolicy {
	mp, _ := composition.ParseMergePolicy(s.Duplicates)
	return mp
}

// CellRefs returns the material reference of every cell, in file order.
func (p *Problem) CellRefs() []int32 {
	out := make([]int32, len(p.Cells))
	for i, c := range p.Cells {
		out[i] = c.Material
	}
	return out
}

// Draft builds the material draft of m. Unit tags are resolved here; with
// signed fractions a constituent without a unit is ao when positive and wo
// when negative.
func (s Settings) Draft(m MaterialSpec) (*material.Draft, error) {
	d := material.NewDraft(m.ID, s.MergePolicy())
	if err := d.SetName(m.Name); err != nil {
		return nil, err
	}
	if m.Density != nil {
		unit, err := units.ParseDensityUnit(m.Density.Units)
		if err != nil {
			return nil, diag.Wrap(diag.InpUnknownUnit, err, "density").ForMaterial(m.ID)
		}
		if err := d.SetDensity(units.Density{Value: m.Density.Value, Unit: unit}); err != nil {
			return nil, err
		}
	}
	if m.Temperature != nil {
		if err := d.SetTemperature(*m.Temperature); err != nil {
			return nil, err
		}
	}
	if m.Volume != nil {
		if err := d.SetVolume(*m.Volume); err != nil {
			return nil, err
		}
	}
	if err := d.SetDepletable(m.Depletable); err != nil {
		return nil, err
	}
	for _, table := range m.Sab {
		if err := d.AddThermalTable(table); err != nil {
			return nil, err
		}
	}
	for _, n := range m.Nuclides {
		value, unit, err := s.constituentUnit(n)
		if err != nil {
			return nil, err.ForNuclide(n.Name).ForMaterial(m.ID)
		}
		var opts []material.Option
		if n.Trace {
			opts = append(opts, material.Trace())
		}
		if n.Sab != "" {
			opts = append(opts, material.ThermalLaw(n.Sab))
		}
		if err := d.AddNuclide(n.Name, value, unit, opts...); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (s Settings) constituentUnit(n NuclideSpec) (float64, units.Unit, *diag.Error) {
	if strings.TrimSpace(n.Unit) != "" {
		u, err := units.ParseUnit(n.Unit)
		if err != nil {
			return 0, units.UnitInvalid, diag.Wrap(diag.InpUnknownUnit, err, "constituent unit")
		}
		return n.Fraction, u, nil
	}
	if !s.SignedFractions {
		return 0, units.UnitInvalid, diag.Errorf(diag.InpMissingUnit, "no unit given and signed_fractions is off")
	}
	if n.Fraction < 0 {
		return -n.Fraction, units.WeightFraction, nil
	}
	return n.Fraction, units.AtomFraction, nil
}
