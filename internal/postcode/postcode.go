// Package postcode provides UK postcode normalisation, grammar validation, and
// outward-code extraction used by the firm search handler.
//
// The validation pattern is the full UK postcode grammar published by Royal Mail:
// area letters (excluding Q, V, X in the first position), district digits with an
// optional subdistrict letter from a restricted alphabet, an optional space, and a
// unit of one digit plus two letters (excluding C, I, K, M, O, V). The literal
// "GIR 0AA" is special-cased. The space between outward and inward parts is
// optional, so both "SW1A 1AA" and "SW1A1AA" validate.
package postcode

import (
	"regexp"
	"strings"
)

// ukPostcodeRe matches the entire normalised string, anchored start-to-end.
var ukPostcodeRe = regexp.MustCompile(`(?i)^\s*(GIR\s?0AA|(?:[A-PR-UWYZ][0-9][0-9]?|[A-PR-UWYZ][A-HK-Y][0-9][0-9]?|[A-PR-UWYZ][0-9][A-HJKPSTUW]?|[A-PR-UWYZ][A-HK-Y][0-9][ABEHMNPRVWXY]?)\s?[0-9][ABD-HJLNP-UW-Z]{2})\s*$`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize returns the canonical form of a free-text postcode: uppercase, runs of
// whitespace collapsed to a single space, leading/trailing whitespace trimmed.
// It never fails; empty input yields an empty string. Normalize is idempotent.
func Normalize(s string) string {
	s = strings.ToUpper(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// IsValidUKPostcode reports whether s matches the UK postcode grammar. Callers
// should pass a Normalize'd string, although the pattern itself tolerates case
// and surrounding whitespace. Returns false rather than an error for any
// non-matching input; the HTTP handler decides how to surface that.
func IsValidUKPostcode(s string) bool {
	return ukPostcodeRe.MatchString(s)
}

// OutwardCode derives the outward code (postal district) from a postcode. The
// input is normalised first; if it contains a space the part before the first
// space is returned. Without a space the last 3 characters are assumed to be the
// inward part and stripped. That is a lossy heuristic rather than a formal
// parser of variable-length outward codes, kept deliberately because the
// upstream dataset and query side apply the same rule to both operands.
func OutwardCode(s string) string {
	s = Normalize(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	if len(s) > 3 {
		return s[:len(s)-3]
	}
	return s
}
