package setup

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"matforge/internal/nucdata"
	"matforge/internal/trace"
)

// LoadLibraries reads every library file in parallel and merges them, in the
// order given, into one Library. A nuclide or thermal table defined by two
// files is an error.
func LoadLibraries(ctx context.Context, paths []string, policy nucdata.Policy, cache *nucdata.Cache, jobs int, sink ProgressSink) (*nucdata.Library, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePhase, "load-libraries", trace.Parent(ctx))
	defer span.End("")

	if jobs <= 0 {
		jobs = 1
	}
	snaps := make([]*nucdata.Snapshot, len(paths))
	for _, path := range paths {
		emit(sink, Event{Item: path, Stage: StageLoad, Status: StatusQueued})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(paths))))
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			start := time.Now()
			emit(sink, Event{Item: path, Stage: StageLoad, Status: StatusWorking})

			var (
				snap *nucdata.Snapshot
				hit  bool
				err  error
			)
			if cache != nil {
				snap, hit, err = cache.Load(path)
			} else {
				snap, _, err = nucdata.ReadFile(path)
			}
			if err != nil {
				emit(sink, Event{Item: path, Stage: StageLoad, Status: StatusError, Err: err, Elapsed: time.Since(start)})
				return err
			}
			detail := "parsed"
			if hit {
				detail = "cached"
			}
			trace.Point(tracer, trace.ScopeMaterial, "library:"+path, detail, span.ID())
			snaps[i] = snap
			emit(sink, Event{Item: path, Stage: StageLoad, Status: StatusDone, Elapsed: time.Since(start)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lib := nucdata.New(policy)
	for i, snap := range snaps {
		if err := lib.Merge(snap); err != nil {
			return nil, fmt.Errorf("%s: %w", paths[i], err)
		}
	}
	return lib, nil
}
