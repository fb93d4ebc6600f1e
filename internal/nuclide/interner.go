package nuclide

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// ID is a dense handle for an interned nuclide identity.
type ID uint32

// NoID marks the absence of a nuclide reference.
const NoID ID = 0

// IsValid reports whether the ID refers to an interned nuclide.
func (id ID) IsValid() bool { return id != NoID }

// Interner maps canonical nuclide names to dense IDs shared by every
// composition table of a run. Not safe for concurrent mutation; lookups on
// an interner that is no longer mutated are safe.
type Interner struct {
	byID  []Info        // индекс -> описание (byID[0] зарезервирован для NoID)
	index map[string]ID // каноническое имя -> ID
}

func NewInterner() *Interner {
	return &Interner{
		byID:  []Info{{}},
		index: make(map[string]ID, 64),
	}
}

// Intern parses name and returns its ID, allocating one on first sight.
// "fe56", " Fe56" and "Fe56" all intern to the same ID.
func (i *Interner) Intern(name string) (ID, error) {
	if id, ok := i.index[name]; ok {
		return id, nil
	}
	info, err := Parse(name)
	if err != nil {
		return NoID, err
	}
	if id, ok := i.index[info.Name]; ok {
		return id, nil
	}
	value, err := safecast.Conv[uint32](len(i.byID))
	if err != nil {
		panic(fmt.Errorf("nuclide interner overflow: %w", err))
	}
	id := ID(value)
	i.byID = append(i.byID, info)
	i.index[info.Name] = id
	return id, nil
}

// Lookup возвращает описание нуклида по ID.
func (i *Interner) Lookup(id ID) (Info, bool) {
	if !i.Has(id) {
		return Info{}, false
	}
	return i.byID[id], true
}

// Name returns the canonical name or "" for an unknown ID.
func (i *Interner) Name(id ID) string {
	if !i.Has(id) {
		return ""
	}
	return i.byID[id].Name
}

// MustName паникует, если ID не валиден.
func (i *Interner) MustName(id ID) string {
	if !i.Has(id) {
		panic(fmt.Sprintf("invalid nuclide ID %d", id))
	}
	return i.byID[id].Name
}

// Has reports whether id was handed out by this interner.
func (i *Interner) Has(id ID) bool {
	return id.IsValid() && int(id) < len(i.byID)
}

// Len returns the number of interned nuclides, excluding NoID.
func (i *Interner) Len() int {
	return len(i.byID) - 1
}

// Snapshot returns the canonical names in ID order, excluding NoID.
func (i *Interner) Snapshot() []string {
	out := make([]string, 0, i.Len())
	for _, info := range i.byID[1:] {
		out = append(out, info.Name)
	}
	return slices.Clip(out)
}
