package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Problem description input
	InpInfo           Code = 1000
	InpMalformed      Code = 1001
	InpUnknownUnit    Code = 1002
	InpMissingField   Code = 1003
	InpUnknownKey     Code = 1004
	InpMissingUnit    Code = 1005
	InpBadSetting     Code = 1006
	InpNotFound       Code = 1007
	InpInvalidNuclide Code = 1008

	// Composition normalisation
	CmpInfo                  Code = 2000
	CmpUnderspecifiedDensity Code = 2001
	CmpDuplicateConstituent  Code = 2002
	CmpInconsistentUnitMix   Code = 2003
	CmpInvalidQuantity       Code = 2004
	CmpEmptyComposition      Code = 2005

	// Material finalisation
	MatInfo                Code = 3000
	MatInvalidIdentifier   Code = 3001
	MatMissingNuclideData  Code = 3002
	MatFinalized           Code = 3003
	MatInvalidVolume       Code = 3004
	MatInvalidTemperature  Code = 3005
	MatTemperatureFallback Code = 3101 // warning: nearest data outside tolerance

	// Registry
	RegInfo                Code = 4000
	RegDuplicateIdentifier Code = 4001
	RegUnknownMaterial     Code = 4002
	RegSealed              Code = 4003
	RegSetupFailed         Code = 4004

	// Nuclear data library
	DatInfo          Code = 5000
	DatMalformed     Code = 5001
	DatDuplicate     Code = 5002
	DatCacheMismatch Code = 5003

	// Observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:              "Unknown error",
		InpInfo:                  "Input information",
		InpMalformed:             "Malformed problem description",
		InpUnknownUnit:           "Unknown unit",
		InpMissingField:          "Missing required field",
		InpUnknownKey:            "Unknown key in problem description",
		InpMissingUnit:           "Constituent has no unit",
		InpBadSetting:            "Invalid setting",
		InpNotFound:              "Problem description not found",
		InpInvalidNuclide:        "Invalid nuclide name",
		CmpInfo:                  "Composition information",
		CmpUnderspecifiedDensity: "Relative fractions need a bulk density",
		CmpDuplicateConstituent:  "Duplicate constituent",
		CmpInconsistentUnitMix:   "Inconsistent unit mix",
		CmpInvalidQuantity:       "Invalid quantity",
		CmpEmptyComposition:      "Material has no constituents",
		MatInfo:                  "Material information",
		MatInvalidIdentifier:     "Invalid material identifier",
		MatMissingNuclideData:    "Missing nuclide data",
		MatFinalized:             "Material is already finalized",
		MatInvalidVolume:         "Invalid volume",
		MatInvalidTemperature:    "Invalid temperature",
		MatTemperatureFallback:   "Nuclide data taken at a distant temperature",
		RegInfo:                  "Registry information",
		RegDuplicateIdentifier:   "Duplicate material identifier",
		RegUnknownMaterial:       "Unknown material",
		RegSealed:                "Registry is sealed",
		RegSetupFailed:           "Setup failed",
		DatInfo:                  "Nuclear data information",
		DatMalformed:             "Malformed nuclear data library",
		DatDuplicate:             "Duplicate nuclear data entry",
		DatCacheMismatch:         "Cached library does not match its source",
		ObsInfo:                  "Observability information",
		ObsTimings:               "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("INP%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("CMP%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("MAT%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("REG%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("DAT%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
