package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"matforge/internal/problem"
	"matforge/internal/trace"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

// minProgressItems is the smallest number of libraries plus materials
// for which auto mode draws the view; smaller problems finish before the
// first frame.
const minProgressItems = 4

func readUIMode(value string) (uiMode, error) {
	switch m := uiMode(strings.TrimSpace(strings.ToLower(value))); m {
	case "":
		return uiModeAuto, nil
	case uiModeAuto, uiModeOn, uiModeOff:
		return m, nil
	}
	return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// shouldUseTUI decides on the progress view for p. Auto needs an
// interactive stderr that no trace stream is writing to, and enough
// libraries and materials to be worth drawing.
func shouldUseTUI(cmd *cobra.Command, mode uiMode, quiet bool, p *problem.Problem) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	}
	if quiet || traceOnStderr(cmd) || !isTerminal(os.Stderr) {
		return false
	}
	return len(p.LibraryPaths())+len(p.Materials) >= minProgressItems
}

// traceOnStderr reports whether --trace streams events to stderr.
func traceOnStderr(cmd *cobra.Command) bool {
	flags := cmd.Root().PersistentFlags()
	path, _ := flags.GetString("trace")
	level, _ := flags.GetString("trace-level")
	mode, _ := flags.GetString("trace-mode")
	if path == "" && (level == "" || strings.EqualFold(level, trace.LevelOff.String())) {
		return false
	}
	if m, err := trace.ParseMode(mode); err == nil && m == trace.ModeRing {
		return false
	}
	return path == "" || path == "-"
}
