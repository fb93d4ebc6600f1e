package nuclide

import (
	"errors"
	"testing"

	"matforge/internal/diag"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		name string
		zaid int
	}{
		{"Fe56", "Fe56", 260560000},
		{"U235", "U235", 922350000},
		{"  u235 ", "U235", 922350000},
		{"H1", "H1", 10010000},
		{"Am242_m1", "Am242_m1", 952420001},
		{"C0", "C0", 60000000},
		{"PU239", "Pu239", 942390000},
	}
	for _, tc := range cases {
		info, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if info.Name != tc.name || info.ZAID() != tc.zaid {
			t.Errorf("Parse(%q) = %s/%d, want %s/%d", tc.in, info.Name, info.ZAID(), tc.name, tc.zaid)
		}
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "56Fe", "Xx12", "Fe", "Fe5678", "U2", "C0_m1", "Am242_x1", "Am242_m", "Am242_m0"} {
		_, err := Parse(in)
		if err == nil {
			t.Errorf("Parse(%q) succeeded", in)
			continue
		}
		if !errors.Is(err, diag.ErrInvalidNuclide) {
			t.Errorf("Parse(%q): %v is not ErrInvalidNuclide", in, err)
		}
	}
}

func TestSymbolRoundTrip(t *testing.T) {
	for z := 1; z <= 118; z++ {
		sym := Symbol(z)
		got, ok := AtomicNumber(sym)
		if !ok || got != z {
			t.Fatalf("AtomicNumber(Symbol(%d)) = %d, %v", z, got, ok)
		}
	}
	if Symbol(0) != "" || Symbol(119) != "" {
		t.Fatalf("out of range symbols must be empty")
	}
}

func TestCanonicalNFC(t *testing.T) {
	// "e" + combining acute accent normalises to the precomposed rune.
	if Canonical(" e\u0301 ") != "\u00e9" {
		t.Fatalf("Canonical did not apply NFC")
	}
}
