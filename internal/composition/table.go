// Package composition holds the ordered nuclide table of one material.
//
// A Table collects constituents as declared (value plus unit tag) and turns
// them into atomic densities once, at Finalize. Nuclide names are only keys
// here: resolving them against nuclear data is the Resolver's job, so unknown
// names and missing data surface at Finalize, never at Add.
package composition

import (
	"fmt"
	"iter"
	"strings"

	"matforge/internal/diag"
	"matforge/internal/nucdata"
	"matforge/internal/nuclide"
	"matforge/internal/units"
)

// MergePolicy decides what happens when a nuclide is added twice.
type MergePolicy uint8

const (
	// MergeReject fails with ErrDuplicateConstituent on any duplicate.
	MergeReject MergePolicy = iota
	// MergeAdditive sums the values of duplicates declared with the same unit.
	MergeAdditive
)

func (p MergePolicy) String() string {
	switch p {
	case MergeReject:
		return "reject"
	case MergeAdditive:
		return "add"
	}
	return fmt.Sprintf("MergePolicy(%d)", p)
}

// ParseMergePolicy accepts "reject" (default) and "add".
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return MergeReject, nil
	case "add", "additive":
		return MergeAdditive, nil
	}
	return MergeReject, fmt.Errorf("invalid duplicate policy %q (expected reject|add)", s)
}

// Term is one declared constituent.
type Term struct {
	Name  string
	Value float64
	Unit  units.Unit
	// Trace keeps a zero-density placeholder.
	Trace bool
	// Law names the constituent's own thermal-scattering table, if any.
	Law string
}

// Entry is a resolved constituent.
type Entry struct {
	Nuclide nuclide.ID
	Name    string
	Density float64 // atoms/barn-cm
	Trace   bool
	Data    *nucdata.Handle
	Law     *nucdata.Law
}

// Resolver supplies nuclear data to Finalize.
type Resolver interface {
	// MolarMass returns the molar mass of a constituent in g/mol.
	MolarMass(name string) (float64, error)
	// Bind fills the identity and data handles of e. law is the thermal
	// table requested for the constituent ("" for none).
	Bind(e *Entry, law string) error
}

// Table is the composition of one material.
type Table struct {
	policy  MergePolicy
	terms   []Term
	index   map[string]int
	entries []Entry
	total   float64
	final   bool
}

// New creates an empty table.
func New(policy MergePolicy) *Table {
	return &Table{policy: policy, index: make(map[string]int, 8)}
}

// Policy returns the duplicate policy.
func (t *Table) Policy() MergePolicy { return t.policy }

// Finalized reports whether Finalize succeeded.
func (t *Table) Finalized() bool { return t.final }

// Add appends a constituent or merges it into an existing one.
func (t *Table) Add(name string, value float64, unit units.Unit) error {
	return t.AddTerm(Term{Name: name, Value: value, Unit: unit})
}

// AddTerm is Add with trace and thermal-law options.
func (t *Table) AddTerm(term Term) error {
	if t.final {
		return diag.Errorf(diag.MatFinalized, "composition is already finalized").ForNuclide(term.Name)
	}
	term.Name = key(term.Name)
	if term.Name == "" {
		return diag.Errorf(diag.InpInvalidNuclide, "empty nuclide name")
	}
	i, dup := t.index[term.Name]
	if !dup {
		t.index[term.Name] = len(t.terms)
		t.terms = append(t.terms, term)
		return nil
	}
	prev := &t.terms[i]
	if t.policy == MergeReject {
		return diag.Errorf(diag.CmpDuplicateConstituent, "declared more than once").ForNuclide(term.Name)
	}
	switch {
	case prev.Unit != term.Unit:
		return diag.Errorf(diag.CmpDuplicateConstituent,
			"cannot merge %s into a constituent declared in %s", term.Unit, prev.Unit).ForNuclide(term.Name)
	case prev.Law != term.Law:
		return diag.Errorf(diag.CmpDuplicateConstituent,
			"conflicting thermal laws %q and %q", prev.Law, term.Law).ForNuclide(term.Name)
	case prev.Trace != term.Trace:
		return diag.Errorf(diag.CmpDuplicateConstituent,
			"cannot merge a trace placeholder with a regular constituent").ForNuclide(term.Name)
	}
	prev.Value += term.Value
	return nil
}

// Terms returns the declared constituents in insertion order.
func (t *Table) Terms() []Term { return t.terms }

// Find returns the position of the constituent named name.
func (t *Table) Find(name string) (int, bool) {
	i, ok := t.index[key(name)]
	return i, ok
}

// key returns the GNDS spelling of name so "fe56" and "Fe56" collide.
// Names that do not parse stay as given; Finalize reports them.
func key(name string) string {
	if info, err := nuclide.Parse(name); err == nil {
		return info.Name
	}
	return nuclide.Canonical(name)
}

// Finalize normalizes every term against bulk and binds data through r.
// On failure the table stays mutable and holds no entries.
func (t *Table) Finalize(bulk units.Density, r Resolver) error {
	if t.final {
		return diag.Errorf(diag.MatFinalized, "composition is already finalized")
	}
	terms := make([]units.Term, len(t.terms))
	for i, term := range t.terms {
		terms[i] = units.Term{Name: term.Name, Value: term.Value, Unit: term.Unit, Trace: term.Trace}
	}
	densities, err := units.Normalize(terms, bulk, func(i int) (float64, error) {
		return r.MolarMass(t.terms[i].Name)
	})
	if err != nil {
		return err
	}

	entries := make([]Entry, len(t.terms))
	total := 0.0
	for i, term := range t.terms {
		e := &entries[i]
		e.Name = term.Name
		e.Density = densities[i]
		e.Trace = term.Trace
		if err := r.Bind(e, term.Law); err != nil {
			return err
		}
		total += e.Density
	}
	t.entries = entries
	t.total = total
	t.final = true
	return nil
}

// TotalAtomicDensity returns the sum of entry densities [atoms/barn-cm].
func (t *Table) TotalAtomicDensity() float64 { return t.total }

// Len returns the number of constituents.
func (t *Table) Len() int { return len(t.terms) }

// At returns the i-th resolved entry. Panics before Finalize.
func (t *Table) At(i int) *Entry { return &t.entries[i] }

// Entries yields resolved entries in insertion order. Each call starts over.
func (t *Table) Entries() iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for i := range t.entries {
			if !yield(&t.entries[i]) {
				return
			}
		}
	}
}

// View returns a read-only view of the resolved entries.
func (t *Table) View() View { return View{entries: t.entries} }

// View reads resolved entries without copying the table. Entries come out by
// value, so a reader cannot write back into a finalized material.
type View struct {
	entries []Entry
}

// Len returns the number of entries.
func (v View) Len() int { return len(v.entries) }

// At returns a copy of the i-th entry.
func (v View) At(i int) Entry { return v.entries[i] }

// All yields entries in insertion order.
func (v View) All() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		for i, e := range v.entries {
			if !yield(i, e) {
				return
			}
		}
	}
}
