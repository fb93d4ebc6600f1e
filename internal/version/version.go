// Package version holds build fingerprints. The variables can be overridden
// at build time via -ldflags "-X matforge/internal/version.GitCommit=...".
package version

import (
	"strings"

	"github.com/fatih/color"
)

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)

	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// Colored renders Version with major, minor and patch in their own colors.
// Anything that does not look like a semantic version is returned as is.
func Colored() string {
	core, suffix, _ := strings.Cut(Version, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	out := versionMajorColor.Sprint(parts[0]) + "." + versionMinorColor.Sprint(parts[1]) + "." + versionPatchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}

// Fingerprint is Version followed by the short commit and build date when known.
func Fingerprint() string {
	var extra []string
	if c := strings.TrimSpace(GitCommit); c != "" {
		if len(c) > 12 {
			c = c[:12]
		}
		extra = append(extra, c)
	}
	if d := strings.TrimSpace(BuildDate); d != "" {
		extra = append(extra, d)
	}
	if len(extra) == 0 {
		return Version
	}
	return Version + " (" + strings.Join(extra, ", ") + ")"
}
