// Package setup runs the problem setup pipeline: load nuclear data, register
// every material, resolve cell references and seal the registry.
//
// Build never stops at the first bad material. Every failure becomes a
// diagnostic in the returned bag so one run reports all problems; the
// registry is only handed out when the bag holds no error.
package setup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"matforge/internal/diag"
	"matforge/internal/material"
	"matforge/internal/nucdata"
	"matforge/internal/nuclide"
	"matforge/internal/observ"
	"matforge/internal/problem"
	"matforge/internal/registry"
	"matforge/internal/trace"
)

// Options tune Build.
type Options struct {
	// Data is used as is when set; otherwise the libraries listed in the
	// problem settings are loaded.
	Data           nucdata.Service
	Cache          *nucdata.Cache
	Jobs           int
	MaxDiagnostics int
	Progress       ProgressSink
	Timer          *observ.Timer
}

// Result is the outcome of Build. Registry and Cells are nil when setup failed.
type Result struct {
	Problem  *problem.Problem
	Data     nucdata.Service
	Registry *registry.Registry
	Cells    []registry.Index
	Bag      *diag.Bag
}

// Build runs setup for p. It returns an error wrapping ErrSetupFailed when
// any diagnostic of error severity was reported; the Result is returned in
// both cases so callers can render the bag.
func Build(ctx context.Context, p *problem.Problem, opts Options) (*Result, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "setup", trace.Parent(ctx))
	ctx = trace.WithParent(ctx, span)

	res := &Result{Problem: p, Bag: diag.NewBag(opts.MaxDiagnostics)}
	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: res.Bag})
	file := p.Path

	data := opts.Data
	if data == nil {
		idx := opts.Timer.Begin("load")
		paths := p.LibraryPaths()
		if len(paths) == 0 {
			diag.ReportError(reporter, diag.InpMissingField, diag.Location{File: file},
				"no nuclear data libraries listed in [settings].libraries").Emit()
		} else {
			lib, err := LoadLibraries(ctx, paths, p.Settings.Policy(), opts.Cache, opts.Jobs, opts.Progress)
			if err != nil {
				diag.ReportErr(reporter, err, diag.Location{File: file})
			} else {
				data = lib
			}
		}
		opts.Timer.End(idx, fmt.Sprintf("%d libraries", len(paths)))
	}
	res.Data = data
	if data == nil {
		span.Fail(failed(res.Bag)).End("no data")
		return res, failed(res.Bag)
	}

	env := material.Env{
		Data:               data,
		Names:              nuclide.NewInterner(),
		DefaultTemperature: p.Settings.Temperature,
		Tolerance:          p.Settings.TemperatureTolerance,
	}
	reg := registry.New(env)

	idx := opts.Timer.Begin("register")
	broken := registerAll(ctx, p, reg, reporter, opts.Progress)
	opts.Timer.End(idx, fmt.Sprintf("%d materials", reg.Len()))

	idx = opts.Timer.Begin("cells")
	cells := resolveCells(ctx, p, reg, broken, reporter, opts.Progress)
	opts.Timer.End(idx, fmt.Sprintf("%d cells", len(cells)))

	if res.Bag.HasErrors() {
		err := failed(res.Bag)
		span.Fail(err).End(fmt.Sprintf("%d errors", res.Bag.CountErrors()))
		return res, err
	}

	idx = opts.Timer.Begin("seal")
	sealSpan := trace.Begin(tracer, trace.ScopePhase, "seal", span.ID())
	emit(opts.Progress, Event{Stage: StageSeal, Status: StatusWorking})
	reg.Seal()
	emit(opts.Progress, Event{Stage: StageSeal, Status: StatusDone})
	sealSpan.WithExtra("digest", reg.Digest().Short()).End("")
	opts.Timer.End(idx, reg.Digest().Short())

	res.Registry = reg
	res.Cells = cells
	span.End(fmt.Sprintf("%d materials", reg.Len()))
	return res, nil
}

func failed(bag *diag.Bag) error {
	return diag.Errorf(diag.RegSetupFailed, "%d error(s) reported", bag.CountErrors())
}

// Label names a material in progress output.
func Label(m problem.MaterialSpec) string {
	if m.Name != "" {
		return fmt.Sprintf("material %d (%s)", m.ID, m.Name)
	}
	return fmt.Sprintf("material %d", m.ID)
}

// registerAll registers materials in file order and returns the identifiers
// that failed.
func registerAll(ctx context.Context, p *problem.Problem, reg *registry.Registry, r diag.Reporter, sink ProgressSink) map[int32]struct{} {
	tracer := trace.FromContext(ctx)
	phase := trace.Begin(tracer, trace.ScopePhase, "register", trace.Parent(ctx))
	broken := make(map[int32]struct{})

	for _, m := range p.Materials {
		emit(sink, Event{Item: Label(m), Stage: StageRegister, Status: StatusQueued})
	}
	for _, m := range p.Materials {
		label := Label(m)
		at := diag.At(p.Path, m.ID)
		start := time.Now()
		span := trace.BeginMaterial(tracer, m.ID, m.Name, phase.ID())
		emit(sink, Event{Item: label, Stage: StageDraft, Status: StatusWorking})

		idx, err := registerOne(p, m, reg, r, tracer, span.ID())
		if err != nil {
			broken[m.ID] = struct{}{}
			diag.ReportErr(r, err, at)
			span.Fail(err).End("")
			emit(sink, Event{Item: label, Stage: StageRegister, Status: StatusError, Err: err, Elapsed: time.Since(start)})
			continue
		}
		rec := reg.Get(idx)
		span.WithExtra("nuclides", strconv.Itoa(rec.Len())).
			WithExtra("atoms", strconv.FormatFloat(rec.TotalAtomicDensity(), 'g', 6, 64)).
			End("")
		emit(sink, Event{Item: label, Stage: StageRegister, Status: StatusDone, Elapsed: time.Since(start)})
	}
	phase.End(fmt.Sprintf("%d registered, %d failed", reg.Len(), len(broken)))
	return broken
}

func registerOne(p *problem.Problem, m problem.MaterialSpec, reg *registry.Registry, r diag.Reporter, tracer trace.Tracer, parent uint64) (registry.Index, error) {
	d, err := p.Settings.Draft(m)
	if err != nil {
		return registry.Void, err
	}
	idx, err := reg.Register(d)
	if err != nil {
		return registry.Void, err
	}
	rec := reg.Get(idx)
	for e := range rec.Entries() {
		trace.Nuclide(tracer, m.ID, e.Name, fmt.Sprintf("%.6e atoms/b-cm", e.Density), parent)
	}
	for _, fb := range rec.Fallbacks() {
		at := diag.At(p.Path, m.ID).WithNuclide(fb.Nuclide)
		what := "cross sections"
		if fb.Law != "" {
			what = "thermal table " + fb.Law
		}
		diag.ReportWarning(r, diag.MatTemperatureFallback, at,
			fmt.Sprintf("%s requested at %g K, using data at %g K", what, fb.Requested, fb.Selected)).
			WithNote(at, fmt.Sprintf("outside the %g K tolerance", p.Settings.TemperatureTolerance)).
			Emit()
	}
	return idx, nil
}

func resolveCells(ctx context.Context, p *problem.Problem, reg *registry.Registry, broken map[int32]struct{}, r diag.Reporter, sink ProgressSink) []registry.Index {
	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "cells", trace.Parent(ctx))
	emit(sink, Event{Stage: StageCells, Status: StatusWorking})

	cells, err := reg.ResolveCells(p.CellRefs())
	if err == nil {
		span.End(fmt.Sprintf("%d cells", len(cells)))
		emit(sink, Event{Stage: StageCells, Status: StatusDone})
		return cells
	}

	// report every bad cell, not only the first
	for _, c := range p.Cells {
		if c.Material == 0 {
			continue
		}
		if _, err := reg.Lookup(c.Material); err == nil {
			continue
		}
		at := diag.At(p.Path, c.Material)
		if _, failed := broken[c.Material]; failed {
			// the material's own error is already reported
			continue
		}
		diag.ReportError(r, diag.RegUnknownMaterial, at,
			fmt.Sprintf("cell %d refers to material %d, which is not defined", c.ID, c.Material)).Emit()
	}
	span.Fail(err).End("")
	emit(sink, Event{Stage: StageCells, Status: StatusError, Err: err})
	return nil
}
