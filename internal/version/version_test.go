package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestColored(t *testing.T) {
	orig, origNoColor := Version, color.NoColor
	defer func() { Version, color.NoColor = orig, origNoColor }()
	color.NoColor = true

	tests := []struct {
		in, want string
	}{
		{"0.1.0-dev", "0.1.0-dev"},
		{"1.2.3", "1.2.3"},
		{"1.0.0-beta.1", "1.0.0-beta.1"},
		{"nightly", "nightly"},
	}
	for _, tt := range tests {
		Version = tt.in
		if got := Colored(); got != tt.want {
			t.Errorf("Colored(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFingerprint(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate }()

	Version, GitCommit, BuildDate = "1.2.3", "", ""
	if got := Fingerprint(); got != "1.2.3" {
		t.Errorf("Fingerprint() = %q", got)
	}

	GitCommit = "1234567890abcdef1234567890abcdef12345678"
	BuildDate = "2024-01-15T10:30:00Z"
	got := Fingerprint()
	if got != "1.2.3 (1234567890ab, 2024-01-15T10:30:00Z)" {
		t.Errorf("Fingerprint() = %q", got)
	}
	if strings.Contains(got, "cdef12345678") {
		t.Errorf("commit not shortened: %q", got)
	}
}
