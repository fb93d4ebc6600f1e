package trace

import "context"

type (
	tracerKey struct{}
	parentKey struct{}
)

// WithTracer returns ctx carrying t.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// FromContext returns the tracer carried by ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithParent makes s the parent of spans begun from the returned context.
// An inert span leaves ctx unchanged.
func WithParent(ctx context.Context, s *Span) context.Context {
	if id := s.ID(); id != 0 {
		return context.WithValue(ctx, parentKey{}, id)
	}
	return ctx
}

// Parent returns the span ID recorded by WithParent, or 0.
func Parent(ctx context.Context) uint64 {
	id, _ := ctx.Value(parentKey{}).(uint64)
	return id
}
