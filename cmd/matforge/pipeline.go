package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"matforge/internal/diag"
	"matforge/internal/diagfmt"
	"matforge/internal/nucdata"
	"matforge/internal/observ"
	"matforge/internal/problem"
	"matforge/internal/setup"
	"matforge/internal/trace"
)

// addSetupFlags registers the flags shared by the commands that run setup.
func addSetupFlags(cmd *cobra.Command) {
	cmd.Flags().Int("jobs", 0, "max parallel library loaders (0=auto)")
	cmd.Flags().Bool("no-cache", false, "do not use the compiled library cache")
	cmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
	cmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	cmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
}

// session is one run of the setup pipeline.
type session struct {
	cmd     *cobra.Command
	path    string
	result  *setup.Result
	timer   *observ.Timer
	quiet   bool
	timings bool
	cleanup []func()
}

// Close releases the registry and stops tracing and profiling.
func (s *session) Close() {
	if s.result != nil && s.result.Registry != nil {
		_ = s.result.Registry.Close()
	}
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

// runSetup resolves the problem file named by arg (or found from the working
// directory) and builds its registry. The session is returned even when setup
// fails so its diagnostics can be rendered; err then wraps ErrSetupFailed.
func runSetup(cmd *cobra.Command, arg string) (*session, error) {
	root := cmd.Root().PersistentFlags()
	quiet, err := root.GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	timings, err := root.GetBool("timings")
	if err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}
	maxDiagnostics, err := root.GetInt("max-diagnostics")
	if err != nil {
		return nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return nil, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return nil, fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return nil, fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return nil, err
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	s := &session{cmd: cmd, timer: observ.NewTimer(), quiet: quiet, timings: timings}
	stopTrace, err := setupTracing(cmd)
	if err != nil {
		return nil, err
	}
	s.cleanup = append(s.cleanup, stopTrace)
	stopProf, err := setupProfiling(cmd)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.cleanup = append(s.cleanup, stopProf)

	ctx := cmd.Context()
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeDriver, cmd.Name(), 0)
	defer span.End("")
	ctx = trace.WithParent(ctx, span)

	path, err := problem.Resolve(arg)
	if err != nil {
		return s, s.fail(err, "")
	}
	s.path = path

	var p *problem.Problem
	err = s.timer.Measure("parse", func() error {
		var loadErr error
		p, loadErr = problem.Load(path)
		return loadErr
	})
	if err != nil {
		return s, s.fail(err, path)
	}

	opts := setup.Options{
		Jobs:           jobs,
		MaxDiagnostics: maxDiagnostics,
		Timer:          s.timer,
	}
	if !noCache {
		cache, cacheErr := nucdata.OpenCache("matforge")
		if cacheErr != nil && !quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: library cache disabled: %v\n", cacheErr)
		}
		opts.Cache = cache
	}

	if shouldUseTUI(cmd, mode, quiet, p) {
		s.result, err = runSetupWithUI(ctx, p, opts)
	} else {
		s.result, err = setup.Build(ctx, p, opts)
	}
	if s.result == nil {
		s.result = &setup.Result{Problem: p, Bag: diag.NewBag(maxDiagnostics)}
	}
	if s.result.Data != nil {
		if closer, ok := s.result.Data.(io.Closer); ok && s.result.Registry == nil {
			_ = closer.Close()
		}
	}
	return s, err
}

// fail turns an error raised before setup ran into a one-item bag.
func (s *session) fail(err error, file string) error {
	bag := diag.NewBag(1)
	bag.Add(diag.FromError(err, diag.Location{File: file}))
	s.result = &setup.Result{Bag: bag}
	return diag.Wrap(diag.RegSetupFailed, err, "")
}

// report renders the diagnostics of the session to w in format.
func (s *session) report(w io.Writer, format diagfmt.Format) error {
	bag := s.result.Bag
	if s.timings {
		bag.Add(s.timer.Diagnostic(s.path))
	}
	if bag.Len() == 0 {
		return nil
	}
	if s.quiet && !bag.HasErrors() && format != diagfmt.FormatJSON {
		return nil
	}
	withNotes, _ := s.cmd.Flags().GetBool("with-notes")
	fullPath, _ := s.cmd.Flags().GetBool("fullpath")
	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}

	switch format {
	case diagfmt.FormatJSON:
		return diagfmt.JSON(w, bag, diagfmt.JSONOpts{PathMode: pathMode, IncludeNotes: withNotes})
	case diagfmt.FormatShort:
		diagfmt.Short(w, bag, pathMode)
	default:
		color := false
		if f, ok := w.(*os.File); ok {
			var err error
			if color, err = useColor(s.cmd, f); err != nil {
				return err
			}
		}
		diagfmt.Pretty(w, bag, diagfmt.PrettyOpts{
			Color:     color,
			PathMode:  pathMode,
			ShowNotes: withNotes,
			Summary:   bag.HasErrors(),
		})
	}
	return nil
}

// finish maps a setup error to the command result once diagnostics are out.
func finish(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, diag.ErrSetupFailed) {
		return errReported
	}
	return err
}
