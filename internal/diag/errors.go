package diag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnderspecifiedDensity reports relative fractions without a usable bulk density.
	ErrUnderspecifiedDensity = errors.New("underspecified density")
	// ErrDuplicateConstituent reports a nuclide added twice where merging is not allowed.
	ErrDuplicateConstituent = errors.New("duplicate constituent")
	// ErrDuplicateIdentifier reports a material identifier that is already registered.
	ErrDuplicateIdentifier = errors.New("duplicate material identifier")
	// ErrUnknownMaterial reports a lookup of an identifier the registry does not hold.
	ErrUnknownMaterial = errors.New("unknown material")
	// ErrMissingNuclideData reports a nuclide (or thermal table) absent from the data service.
	ErrMissingNuclideData = errors.New("missing nuclide data")
	// ErrInconsistentUnitMix reports constituents whose units cannot be combined.
	ErrInconsistentUnitMix = errors.New("inconsistent unit mix")
	// ErrRegistrySealed reports a mutation attempt after Seal.
	ErrRegistrySealed = errors.New("registry sealed")

	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidIdentifier = errors.New("invalid material identifier")
	ErrInvalidNuclide    = errors.New("invalid nuclide")
	ErrEmptyComposition  = errors.New("empty composition")
	ErrFinalized         = errors.New("material finalized")
	ErrSetupFailed       = errors.New("setup failed")
	ErrMalformedInput    = errors.New("malformed input")
	ErrMalformedLibrary  = errors.New("malformed nuclear data library")
)

// Sentinel returns the taxonomy error a code belongs to, or nil.
func (c Code) Sentinel() error {
	switch c {
	case CmpUnderspecifiedDensity:
		return ErrUnderspecifiedDensity
	case CmpDuplicateConstituent:
		return ErrDuplicateConstituent
	case CmpInconsistentUnitMix:
		return ErrInconsistentUnitMix
	case CmpInvalidQuantity, MatInvalidVolume, MatInvalidTemperature:
		return ErrInvalidQuantity
	case CmpEmptyComposition:
		return ErrEmptyComposition
	case MatInvalidIdentifier:
		return ErrInvalidIdentifier
	case MatMissingNuclideData:
		return ErrMissingNuclideData
	case MatFinalized:
		return ErrFinalized
	case RegDuplicateIdentifier:
		return ErrDuplicateIdentifier
	case RegUnknownMaterial:
		return ErrUnknownMaterial
	case RegSealed:
		return ErrRegistrySealed
	case RegSetupFailed:
		return ErrSetupFailed
	case InpInvalidNuclide:
		return ErrInvalidNuclide
	case InpMalformed, InpUnknownUnit, InpMissingField, InpUnknownKey, InpMissingUnit, InpBadSetting:
		return ErrMalformedInput
	case DatMalformed, DatDuplicate:
		return ErrMalformedLibrary
	}
	return nil
}

// Error is the concrete error returned by the core packages.
// Material and Nuclide are zero when they do not apply.
type Error struct {
	Code     Code
	Material int32
	Nuclide  string
	Detail   string
	Cause    error
}

// Errorf builds an *Error without material context.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new *Error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...), Cause: cause}
}

// ForMaterial returns a copy of e scoped to a material identifier.
// An identifier that is already set is kept.
func (e *Error) ForMaterial(id int32) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	if cp.Material == 0 {
		cp.Material = id
	}
	return &cp
}

// ForNuclide returns a copy of e scoped to a nuclide.
func (e *Error) ForNuclide(name string) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	if cp.Nuclide == "" {
		cp.Nuclide = name
	}
	return &cp
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Material != 0 {
		fmt.Fprintf(&sb, "material %d: ", e.Material)
	}
	if e.Nuclide != "" {
		fmt.Fprintf(&sb, "nuclide %q: ", e.Nuclide)
	}
	if s := e.Code.Sentinel(); s != nil {
		sb.WriteString(s.Error())
	} else {
		sb.WriteString(strings.ToLower(e.Code.Title()))
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Is matches the sentinel of the error's code.
func (e *Error) Is(target error) bool {
	s := e.Code.Sentinel()
	return s != nil && s == target
}

func (e *Error) Unwrap() error { return e.Cause }

// Location returns where the error points to.
func (e *Error) Location() Location {
	return Location{Material: e.Material, Nuclide: e.Nuclide}
}

// FromError converts err into an error diagnostic. Errors that are not
// *Error get UnknownCode and the given fallback location.
func FromError(err error, fallback Location) Diagnostic {
	var de *Error
	if errors.As(err, &de) {
		at := de.Location()
		at.File = fallback.File
		if at.Material == 0 {
			at.Material = fallback.Material
		}
		if at.Nuclide == "" {
			at.Nuclide = fallback.Nuclide
		}
		msg := de.Detail
		if de.Cause != nil {
			if msg != "" {
				msg += ": "
			}
			msg += de.Cause.Error()
		}
		if msg == "" {
			msg = de.Code.Title()
		}
		return NewError(de.Code, at, msg)
	}
	return NewError(UnknownCode, fallback, err.Error())
}
