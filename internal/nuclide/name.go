package nuclide

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"matforge/internal/diag"
)

// Info describes a parsed nuclide identity.
type Info struct {
	Name string // canonical GNDS name, e.g. "Am242_m1"
	Z    int
	A    int // 0 for natural elements ("C0")
	M    int // metastable state
}

// ZAID returns the identifier in ZZZAAAMMMM form.
func (n Info) ZAID() int {
	return n.Z*10000000 + n.A*10000 + n.M
}

// Element returns the chemical symbol.
func (n Info) Element() string { return Symbol(n.Z) }

// Natural reports whether the name denotes a natural element.
func (n Info) Natural() bool { return n.A == 0 }

// Canonical trims the name and puts it in Unicode NFC so visually identical
// identities intern to the same ID.
func Canonical(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// Parse validates a GNDS nuclide name (Fe56, U235, Am242_m1, C0) and returns
// its canonical form. Element symbols are accepted in any letter case.
func Parse(name string) (Info, error) {
	raw := Canonical(name)
	if raw == "" {
		return Info{}, diag.Errorf(diag.InpInvalidNuclide, "empty nuclide name")
	}

	i := 0
	for i < len(raw) && i < 2 && raw[i] < unicode.MaxASCII && unicode.IsLetter(rune(raw[i])) {
		i++
	}
	if i == 0 {
		return Info{}, diag.Errorf(diag.InpInvalidNuclide, "%q does not start with an element symbol", raw)
	}
	sym := strings.ToUpper(raw[:1]) + strings.ToLower(raw[1:i])
	z, ok := AtomicNumber(sym)
	if !ok {
		return Info{}, diag.Errorf(diag.InpInvalidNuclide, "unknown element %q in %q", raw[:i], raw)
	}

	rest := raw[i:]
	massPart, meta, hasMeta := strings.Cut(rest, "_")
	if massPart == "" || len(massPart) > 3 {
		return Info{}, diag.Errorf(diag.InpInvalidNuclide, "%q has no valid mass number", raw)
	}
	a, err := strconv.Atoi(massPart)
	if err != nil || a < 0 {
		return Info{}, diag.Errorf(diag.InpInvalidNuclide, "%q has no valid mass number", raw)
	}
	if a != 0 && a < z {
		return Info{}, diag.Errorf(diag.InpInvalidNuclide, "%q: mass number %d below atomic number %d", raw, a, z)
	}

	m := 0
	if hasMeta {
		if a == 0 || len(meta) < 2 || (meta[0] != 'm' && meta[0] != 'M') {
			return Info{}, diag.Errorf(diag.InpInvalidNuclide, "%q has a malformed metastable suffix", raw)
		}
		m, err = strconv.Atoi(meta[1:])
		if err != nil || m <= 0 || m > 9 {
			return Info{}, diag.Errorf(diag.InpInvalidNuclide, "%q has a malformed metastable suffix", raw)
		}
	}

	info := Info{Z: z, A: a, M: m}
	info.Name = sym + strconv.Itoa(a)
	if m > 0 {
		info.Name += "_m" + strconv.Itoa(m)
	}
	return info, nil
}
