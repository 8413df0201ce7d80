package models

import (
	"fmt"
	"strings"
)

// Stroke codes as used in event type codes.
const (
	StrokeFreestyle    = "SL"
	StrokeBackstroke   = "DO"
	StrokeBreaststroke = "RA"
	StrokeButterfly    = "FA"
	StrokeMedley       = "MI"
)

// Gender codes. GenderMixed only appears on relay events and programs.
const (
	GenderMale   = "M"
	GenderFemale = "F"
	GenderMixed  = "X"
)

// MedleyLegOrder is the fixed stroke assignment for medley relay legs:
// backstroke, breaststroke, butterfly, freestyle.
var MedleyLegOrder = []string{StrokeBackstroke, StrokeBreaststroke, StrokeButterfly, StrokeFreestyle}

// ValidStroke reports whether code is a known stroke code.
func ValidStroke(code string) bool {
	switch code {
	case StrokeFreestyle, StrokeBackstroke, StrokeBreaststroke, StrokeButterfly, StrokeMedley:
		return true
	default:
		return false
	}
}

// IndividualEventCode builds the domain code of an individual event,
// e.g. (200, "SL") -> "200SL".
func IndividualEventCode(distance int, stroke string) string {
	return fmt.Sprintf("%d%s", distance, stroke)
}

// RelayEventCode builds the domain code of a relay event. Same-gender relays
// carry the "S" prefix, mixed-gender relays the "M" prefix,
// e.g. (false, 4, 50, "MI") -> "S4X50MI".
func RelayEventCode(mixed bool, legs, legDistance int, stroke string) string {
	prefix := "S"
	if mixed {
		prefix = "M"
	}
	return fmt.Sprintf("%s%dX%d%s", prefix, legs, legDistance, stroke)
}

// SwimmerKey builds the deterministic natural key of a swimmer identity:
// LAST|FIRST|YEAR, prefixed by the gender qualifier when known.
func SwimmerKey(gender, lastName, firstName string, yearOfBirth int) string {
	base := fmt.Sprintf("%s|%s|%d",
		normalizeKeyPart(lastName), normalizeKeyPart(firstName), yearOfBirth)
	if gender == "" {
		return base
	}
	return gender + "|" + base
}

// IdentityOf strips the gender qualifier from a swimmer natural key, leaving
// the LAST|FIRST|YEAR identity shared by qualified and unqualified keys.
func IdentityOf(key string) string {
	if len(key) >= 2 && key[1] == '|' && (key[0] == GenderMale[0] || key[0] == GenderFemale[0]) {
		return key[2:]
	}
	return strings.TrimPrefix(key, "|")
}

// GenderQualified reports whether a swimmer natural key carries a gender
// prefix.
func GenderQualified(key string) bool {
	return IdentityOf(key) != key && !strings.HasPrefix(key, "|")
}

func normalizeKeyPart(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}
