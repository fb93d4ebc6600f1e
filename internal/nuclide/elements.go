package nuclide

// elements lists chemical symbols by atomic number; index 0 is unused.
var elements = [...]string{
	"",
	"H", "He", "Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar", "K", "Ca",
	"Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
	"Ga", "Ge", "As", "Se", "Br", "Kr", "Rb", "Sr", "Y", "Zr",
	"Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd", "In", "Sn",
	"Sb", "Te", "I", "Xe", "Cs", "Ba", "La", "Ce", "Pr", "Nd",
	"Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er", "Tm", "Yb",
	"Lu", "Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au", "Hg",
	"Tl", "Pb", "Bi", "Po", "At", "Rn", "Fr", "Ra", "Ac", "Th",
	"Pa", "U", "Np", "Pu", "Am", "Cm", "Bk", "Cf", "Es", "Fm",
	"Md", "No", "Lr", "Rf", "Db", "Sg", "Bh", "Hs", "Mt", "Ds",
	"Rg", "Cn", "Nh", "Fl", "Mc", "Lv", "Ts", "Og",
}

var atomicNumber = func() map[string]int {
	m := make(map[string]int, len(elements))
	for z, sym := range elements {
		if sym != "" {
			m[sym] = z
		}
	}
	return m
}()

// Symbol returns the chemical symbol for atomic number z, or "" if unknown.
func Symbol(z int) string {
	if z <= 0 || z >= len(elements) {
		return ""
	}
	return elements[z]
}

// AtomicNumber returns Z for a chemical symbol.
func AtomicNumber(symbol string) (int, bool) {
	z, ok := atomicNumber[symbol]
	return z, ok
}
