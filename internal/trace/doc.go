// Package trace records what the material setup pipeline is doing.
//
// Spans wrap the setup phases (library loading, material registration,
// cell resolution, sealing) and every material inside them; nuclide
// bindings are instant events. Material and nuclide travel as typed event
// fields, so a dump can be filtered per material and a crash can name the
// material that was in flight.
//
//	matforge resolve --trace=- --trace-level=detail problem.toml
//	matforge check --trace=- --trace-level=error problem.toml
//
// LevelPhase emits driver and phase spans, LevelDetail adds one span per
// material, LevelDebug adds nuclide bindings. LevelError emits only the end
// events of spans that failed.
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.BeginMaterial(trace.FromContext(ctx), 7, "fuel", trace.Parent(ctx))
//	defer span.End("")
package trace
