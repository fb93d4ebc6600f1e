package diagfmt

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format selects how diagnostics are rendered.
type Format uint8

const (
	FormatPretty Format = iota
	FormatShort
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatShort:
		return "short"
	case FormatJSON:
		return "json"
	}
	return "pretty"
}

// ParseFormat converts a --format value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pretty":
		return FormatPretty, nil
	case "short":
		return FormatShort, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatPretty, fmt.Errorf("unknown diagnostics format %q (expected pretty|short|json)", s)
}

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto chooses relative or absolute path automatically.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	BaseDir   string // для PathModeRelative; пусто - текущая директория
	ShowNotes bool
	// Summary appends an "N error(s), M warning(s)" line.
	Summary bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	PathMode     PathMode
	BaseDir      string
	Max          int // обрезка вывода, не Bag
	IncludeNotes bool
}

// formatPath renders path according to mode. Auto keeps relative paths as
// they are and shortens absolute ones below baseDir.
func formatPath(path string, mode PathMode, baseDir string) string {
	if path == "" {
		return ""
	}
	if baseDir == "" {
		baseDir = "."
	}
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
	case PathModeRelative:
		return relativeTo(path, baseDir)
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeAuto:
		if !filepath.IsAbs(path) {
			return path
		}
		if rel := relativeTo(path, baseDir); !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return path
}

func relativeTo(path, baseDir string) string {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return path
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
