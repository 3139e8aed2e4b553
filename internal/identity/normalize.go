// Package identity resolves loosely structured external identifiers from the
// results API to internal primary keys.
//
// The upstream service identifies drivers by free-text refs ("max_verstappen"),
// three-letter codes ("VER") or permanent numbers, constructors by a stable
// external key ("red_bull"), and circuits by name. None of these are the
// internal primary keys, so every ingestion run builds a Resolver over the
// reference tables and asks it to map each external identifier to an internal
// id. Resolution failure is an expected, counted outcome, not an error.
package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD and drops combining marks, so "Pérez" and
// "Perez" normalize to the same key.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize reduces a free-text name to a matching key: diacritics stripped,
// everything outside [A-Za-z0-9_] removed, lowercased.
//
// Examples:
//   - Normalize("Max Verstappen") -> "maxverstappen"
//   - Normalize("MÁX_VERSTAPPEN") -> "max_verstappen"
//   - Normalize("Pérez") -> "perez"
func Normalize(name string) string {
	stripped, _, err := transform.String(stripMarks, name)
	if err != nil {
		// Transform failures only occur on invalid UTF-8; fall back to the
		// raw input so the character filter below still applies.
		stripped = name
	}

	var b strings.Builder

	b.Grow(len(stripped))

	for _, r := range stripped {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}

	return b.String()
}
