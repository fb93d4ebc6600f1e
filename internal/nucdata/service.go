// Package nucdata defines the nuclear data lookup service consumed during
// material finalisation and ships an in-memory reference library.
//
// The service owns every cross-section and thermal-scattering handle it hands
// out. Repeated lookups for the same (nuclide, temperature) pair return the
// same pointer for the lifetime of the service, so materials only hold
// lightweight references and heavy data is never duplicated per material.
package nucdata

import "errors"

// ErrNotFound is returned when a nuclide is absent from the service.
var ErrNotFound = errors.New("nuclide not found in data library")

// Service is the lookup contract material finalisation depends on.
// Nuclide names are canonical GNDS names (see internal/nuclide).
type Service interface {
	// MolarMass returns the molar mass in g/mol, or an error wrapping ErrNotFound.
	MolarMass(nuclide string) (float64, error)
	// HasCrossSections reports whether data exists at the temperature under
	// the service's temperature policy.
	HasCrossSections(nuclide string, temperature float64) bool
	// CrossSections returns the shared handle for the data set selected for
	// temperature.
	CrossSections(nuclide string, temperature float64) (*Handle, bool)
	// ThermalScatteringLaw returns the shared handle of thermal table law
	// for nuclide at temperature, or false when the table does not cover the
	// nuclide or has no data near the temperature.
	ThermalScatteringLaw(law, nuclide string, temperature float64) (*Law, bool)
}

// Handle references temperature-indexed cross-section data owned by a service.
type Handle struct {
	Nuclide     string
	Temperature float64 // temperature of the selected data set [K]
	Index       int     // dense position inside the owning service
}

// Law references a thermal-scattering table evaluated at one temperature.
type Law struct {
	Name        string
	Temperature float64
	Index       int
}
