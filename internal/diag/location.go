package diag

import (
	"strconv"
	"strings"
)

// Location points at the part of a problem description a diagnostic refers to.
// Zero fields are "not applicable": Material 0 is never a valid identifier.
type Location struct {
	File     string
	Material int32
	Nuclide  string
}

// At returns a location for a material inside file.
func At(file string, material int32) Location {
	return Location{File: file, Material: material}
}

// WithNuclide narrows the location to a single constituent.
func (l Location) WithNuclide(name string) Location {
	l.Nuclide = name
	return l
}

// IsZero reports whether no field is set.
func (l Location) IsZero() bool {
	return l.File == "" && l.Material == 0 && l.Nuclide == ""
}

func (l Location) String() string {
	var sb strings.Builder
	if l.File != "" {
		sb.WriteString(l.File)
	}
	if l.Material != 0 {
		if sb.Len() > 0 {
			sb.WriteString(":")
		}
		sb.WriteString("material ")
		sb.WriteString(strconv.FormatInt(int64(l.Material), 10))
	}
	if l.Nuclide != "" {
		if sb.Len() > 0 {
			sb.WriteString(":")
		}
		sb.WriteString("nuclide ")
		sb.WriteString(l.Nuclide)
	}
	return sb.String()
}

// Less orders locations by file, material and nuclide.
func (l Location) Less(o Location) bool {
	if l.File != o.File {
		return l.File < o.File
	}
	if l.Material != o.Material {
		return l.Material < o.Material
	}
	return l.Nuclide < o.Nuclide
}
