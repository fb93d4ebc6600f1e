// Package registry owns every finalized material of a run and maps external
// material identifiers to dense runtime indices.
//
// Construction (Register) is single-threaded. After Seal the registry never
// changes, and Get, Lookup and the other readers are safe for any number of
// concurrent goroutines without locking.
package registry

import (
	"fmt"
	"io"
	"iter"

	"fortio.org/safecast"

	"matforge/internal/composition"
	"matforge/internal/diag"
	"matforge/internal/digest"
	"matforge/internal/material"
	"matforge/internal/nuclide"
)

// Index is the dense runtime handle of a registered material.
type Index int32

// Void is the index of a cell that holds no material.
const Void Index = -1

// IsVoid reports whether the index refers to no material.
func (i Index) IsVoid() bool { return i < 0 }

// Registry holds finalized material records.
type Registry struct {
	env     material.Env
	byID    map[int32]Index
	records []*material.Record
	sealed  bool
	closed  bool
	digest  digest.Digest
}

// New creates an empty registry resolving materials against env.
func New(env material.Env) *Registry {
	if env.Names == nil {
		env.Names = nuclide.NewInterner()
	}
	return &Registry{
		env:  env,
		byID: make(map[int32]Index, 32),
	}
}

// Env returns the environment materials are finalized against.
func (r *Registry) Env() material.Env { return r.env }

// Register finalizes d and appends the record. A duplicate identifier leaves
// the existing record untouched.
func (r *Registry) Register(d *material.Draft) (Index, error) {
	if r.sealed {
		return Void, diag.Errorf(diag.RegSealed, "cannot register after seal").ForMaterial(d.ID())
	}
	if existing, dup := r.byID[d.ID()]; dup {
		return Void, diag.Errorf(diag.RegDuplicateIdentifier,
			"already registered at index %d", existing).ForMaterial(d.ID())
	}
	rec, err := d.Finalize(r.env)
	if err != nil {
		return Void, err
	}
	value, err := safecast.Conv[int32](len(r.records))
	if err != nil {
		panic(fmt.Errorf("material registry overflow: %w", err))
	}
	idx := Index(value)
	r.records = append(r.records, rec)
	r.byID[rec.ID()] = idx
	return idx, nil
}

// Lookup returns the index of the material with external identifier id.
func (r *Registry) Lookup(id int32) (Index, error) {
	idx, ok := r.byID[id]
	if !ok {
		return Void, diag.Errorf(diag.RegUnknownMaterial, "no material with this identifier").ForMaterial(id)
	}
	return idx, nil
}

// Get returns the record at idx. Panics on an index the registry did not
// hand out.
func (r *Registry) Get(idx Index) *material.Record {
	return r.records[idx]
}

// TotalAtomicDensity returns the total atomic density of the material at idx.
func (r *Registry) TotalAtomicDensity(idx Index) float64 {
	return r.records[idx].TotalAtomicDensity()
}

// NuclideEntries returns a read-only view of the constituents of the material
// at idx.
func (r *Registry) NuclideEntries(idx Index) composition.View {
	return r.records[idx].View()
}

// Len returns the number of registered materials.
func (r *Registry) Len() int { return len(r.records) }

// All yields every record in registration order.
func (r *Registry) All() iter.Seq2[Index, *material.Record] {
	return func(yield func(Index, *material.Record) bool) {
		for i, rec := range r.records {
			if !yield(Index(i), rec) {
				return
			}
		}
	}
}

// Seal freezes the registry and computes its digest. Sealing twice is a no-op.
func (r *Registry) Seal() {
	if r.sealed {
		return
	}
	r.sealed = true
	r.digest = r.computeDigest()
}

func (r *Registry) Sealed() bool { return r.sealed }

// ResolveCells maps material references of geometry cells to indices.
// Reference 0 is a void cell.
func (r *Registry) ResolveCells(refs []int32) ([]Index, error) {
	out := make([]Index, len(refs))
	for i, ref := range refs {
		if ref == 0 {
			out[i] = Void
			continue
		}
		idx, err := r.Lookup(ref)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

// Digest returns the fingerprint of the registry content. Registries built
// from the same input and data have equal digests.
func (r *Registry) Digest() digest.Digest {
	if r.sealed {
		return r.digest
	}
	return r.computeDigest()
}

func (r *Registry) computeDigest() digest.Digest {
	b := digest.NewBuilder()
	b.Uint64(uint64(len(r.records)))
	for _, rec := range r.records {
		b.Int64(int64(rec.ID())).
			String(rec.Name()).
			Float64(rec.Volume()).
			Float64(rec.Temperature()).
			Bool(rec.Depletable()).
			Float64(rec.TotalAtomicDensity()).
			Float64(rec.MassDensity()).
			Uint64(uint64(rec.Len()))
		for e := range rec.Entries() {
			b.String(e.Name).Float64(e.Density).Bool(e.Trace)
			if e.Data != nil {
				b.Float64(e.Data.Temperature)
			}
			if e.Law != nil {
				b.String(e.Law.Name).Float64(e.Law.Temperature)
			} else {
				b.String("")
			}
		}
	}
	return b.Sum()
}

// Close releases every record and the data service bindings. The registry
// is empty afterwards.
func (r *Registry) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	for _, rec := range r.records {
		material.Release(rec)
	}
	r.records = nil
	clear(r.byID)
	if c, ok := r.env.Data.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
