package diagfmt

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"matforge/internal/diag"
)

func sampleBag() *diag.Bag {
	bag := diag.NewBag(10)
	file := filepath.Join("/home/user/reactor", "matforge.toml")
	bag.Add(diag.NewError(diag.MatMissingNuclideData, diag.At(file, 4).WithNuclide("Xe135"),
		"no molar mass in the data library"))
	bag.Add(diag.NewWarning(diag.MatTemperatureFallback, diag.At(file, 2).WithNuclide("U235"),
		"cross sections requested at 1200 K, using data at 900 K").
		WithNote(diag.At(file, 2).WithNuclide("U235"), "outside the 10 K tolerance"))
	return bag
}

func TestPrettyPathModes(t *testing.T) {
	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"absolute", PathModeAbsolute, "/home/user/reactor/matforge.toml"},
		{"relative", PathModeRelative, "reactor/matforge.toml"},
		{"basename", PathModeBasename, "--> matforge.toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, sampleBag(), PrettyOpts{PathMode: tt.mode, BaseDir: "/home/user"})
			out := buf.String()
			if !strings.Contains(out, tt.contains) {
				t.Errorf("expected %q in:\n%s", tt.contains, out)
			}
			if !strings.Contains(out, "error[MAT3002]") || !strings.Contains(out, "warning[MAT3101]") {
				t.Errorf("severity/code missing:\n%s", out)
			}
			if !strings.Contains(out, "material 4:nuclide Xe135") {
				t.Errorf("location missing:\n%s", out)
			}
		})
	}
}

func TestPrettyNotesAndSummary(t *testing.T) {
	var buf bytes.Buffer
	Pretty(&buf, sampleBag(), PrettyOpts{ShowNotes: true, Summary: true})
	out := buf.String()
	if !strings.Contains(out, "= note: outside the 10 K tolerance") {
		t.Errorf("note missing:\n%s", out)
	}
	if !strings.HasSuffix(out, "1 error(s), 1 warning(s)\n") {
		t.Errorf("summary missing:\n%s", out)
	}

	buf.Reset()
	Pretty(&buf, sampleBag(), PrettyOpts{})
	if strings.Contains(buf.String(), "note:") {
		t.Errorf("notes printed without ShowNotes:\n%s", buf.String())
	}
}

func TestPrettyNoColorHasNoEscapes(t *testing.T) {
	var buf bytes.Buffer
	Pretty(&buf, sampleBag(), PrettyOpts{Color: false})
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("escape sequences in uncolored output: %q", buf.String())
	}
}

func TestShort(t *testing.T) {
	var buf bytes.Buffer
	Short(&buf, sampleBag(), PathModeBasename)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	want := "matforge.toml:material 4:nuclide Xe135: error MAT3002: no molar mass in the data library"
	if lines[0] != want {
		t.Fatalf("line = %q\nwant  %q", lines[0], want)
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, sampleBag(), JSONOpts{PathMode: PathModeBasename, Max: 1}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Count != 1 || out.Errors != 1 {
		t.Fatalf("count=%d errors=%d", out.Count, out.Errors)
	}
	d := out.Diagnostics[0]
	if d.Code != "MAT3002" || d.Severity != "ERROR" || d.Location.Material != 4 || d.Location.Nuclide != "Xe135" || d.Location.File != "matforge.toml" {
		t.Fatalf("diagnostic = %+v", d)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatPretty, "SHORT": FormatShort, "json": FormatJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("sarif"); err == nil {
		t.Error("sarif accepted")
	}
}
