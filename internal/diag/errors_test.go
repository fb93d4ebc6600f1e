package diag

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMatchesSentinel(t *testing.T) {
	cases := []struct {
		code Code
		want error
	}{
		{CmpUnderspecifiedDensity, ErrUnderspecifiedDensity},
		{CmpDuplicateConstituent, ErrDuplicateConstituent},
		{CmpInconsistentUnitMix, ErrInconsistentUnitMix},
		{MatMissingNuclideData, ErrMissingNuclideData},
		{RegDuplicateIdentifier, ErrDuplicateIdentifier},
		{RegUnknownMaterial, ErrUnknownMaterial},
		{RegSealed, ErrRegistrySealed},
		{MatInvalidVolume, ErrInvalidQuantity},
	}
	for _, tc := range cases {
		err := error(Errorf(tc.code, "detail"))
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: errors.Is(%v) = false", tc.code.ID(), tc.want)
		}
		wrapped := fmt.Errorf("outer: %w", err)
		if !errors.Is(wrapped, tc.want) {
			t.Errorf("%s: wrapped error lost its sentinel", tc.code.ID())
		}
	}
	if errors.Is(Errorf(RegSealed, ""), ErrUnknownMaterial) {
		t.Fatalf("sealed error must not match unknown material")
	}
}

func TestErrorMessageCarriesContext(t *testing.T) {
	err := Errorf(CmpDuplicateConstituent, "already declared as ao").ForNuclide("Fe56").ForMaterial(7)
	msg := err.Error()
	for _, want := range []string{"material 7", `"Fe56"`, "duplicate constituent", "already declared as ao"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q does not contain %q", msg, want)
		}
	}
	// outer scope must not override the inner one
	if got := err.ForMaterial(9).Material; got != 7 {
		t.Fatalf("ForMaterial overrode existing id: got %d", got)
	}
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("no such file")
	err := Wrap(InpNotFound, cause, "reading %s", "x.toml")
	if !errors.Is(err, cause) {
		t.Fatalf("cause is not reachable through Unwrap")
	}
}

func TestFromError(t *testing.T) {
	err := Errorf(MatMissingNuclideData, "no cross sections at 600 K").ForNuclide("U235").ForMaterial(3)
	d := FromError(fmt.Errorf("register: %w", err), At("problem.toml", 0))
	if d.Code != MatMissingNuclideData || d.Severity != SevError {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if d.Primary.File != "problem.toml" || d.Primary.Material != 3 || d.Primary.Nuclide != "U235" {
		t.Fatalf("unexpected location %+v", d.Primary)
	}

	plain := FromError(errors.New("boom"), At("p.toml", 4))
	if plain.Code != UnknownCode || plain.Primary.Material != 4 || plain.Message != "boom" {
		t.Fatalf("unexpected fallback diagnostic %+v", plain)
	}
}

func TestCodeIDRanges(t *testing.T) {
	cases := map[Code]string{
		InpMalformed:             "INP1001",
		CmpUnderspecifiedDensity: "CMP2001",
		MatTemperatureFallback:   "MAT3101",
		RegSealed:                "REG4003",
		DatMalformed:             "DAT5001",
		ObsTimings:               "OBS6001",
		UnknownCode:              "E0000",
	}
	for code, want := range cases {
		if got := code.ID(); got != want {
			t.Errorf("Code(%d).ID() = %q, want %q", code, got, want)
		}
	}
}
