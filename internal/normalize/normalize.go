// Package normalize canonicalizes raw paper text before any heuristic
// matching: Unicode composition, whitespace runs, and micrometre glyphs.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Micro is the canonical micro prefix (GREEK SMALL LETTER MU).
const Micro = "μ"

// glyphReplacer maps known micro-sign variants onto Micro. The mojibake forms
// come from UTF-8 text decoded as Latin-1 by PDF tooling.
var glyphReplacer = strings.NewReplacer(
	"Î¼", Micro, // Î¼
	"Âµ", Micro, // Âµ
	"µ", Micro, // MICRO SIGN
)

var (
	asciiMicronRe = regexp.MustCompile(`(\d)([ \t]?)um\b`)
	horizontalRe  = regexp.MustCompile(`[\t\f\v\p{Zs}]+`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
	thousandsRe   = regexp.MustCompile(`(\d),(\d{3})\b`)
)

// Thousands removes comma thousands separators so "1,500" reads as 1500.
// A comma followed by anything but exactly three digits is left alone.
func Thousands(s string) string {
	for {
		t := thousandsRe.ReplaceAllString(s, "${1}${2}")
		if t == s {
			return t
		}
		s = t
	}
}

// Units rewrites micro-sign variants to the canonical form. The ASCII
// digraph "um" is only treated as a unit when it directly follows a number,
// so words such as "aluminum" are left alone.
func Units(s string) string {
	if s == "" {
		return ""
	}
	s = glyphReplacer.Replace(s)
	return asciiMicronRe.ReplaceAllString(s, "${1}${2}"+Micro+"m")
}

// Text returns the canonical form of s. It is idempotent.
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = horizontalRe.ReplaceAllString(s, " ")
	s = Units(s)
	return blankRunRe.ReplaceAllString(s, "\n\n")
}
