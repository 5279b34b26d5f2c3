// Package phone normalizes phone numbers into E.164 form.
//
// A Normalizer accepts international numbers (leading "+" or the "00"
// escape) as-is and interprets everything else as a national number for a
// default region, using an explicit DialingPlan supplied at construction.
// The plan is configuration, not hidden package state: tests and
// deployments extend it by passing their own map.
package phone

import (
	"strings"
	"unicode"

	dErrors "medicus/pkg/domain-errors"
)

// Region is an ISO 3166-1 alpha-2 country code, upper-cased.
type Region string

// RegionRule describes how national numbers for a region map to E.164.
type RegionRule struct {
	// DialingCode is the country calling code without "+" ("91", "1").
	DialingCode string
	// NationalLength is the typical subscriber-number digit count. Used to
	// detect input that already carries the dialing code, so it is not
	// prefixed twice.
	NationalLength int
}

// DialingPlan maps regions to their dialing rules.
type DialingPlan map[Region]RegionRule

// DefaultPlan returns the minimal seed plan. Callers extend the returned
// map before constructing a Normalizer; the Normalizer copies it.
func DefaultPlan() DialingPlan {
	return DialingPlan{
		"IN": {DialingCode: "91", NationalLength: 10},
		"US": {DialingCode: "1", NationalLength: 10},
	}
}

// E.164 allows up to 15 digits; anything under 8 is not a plausible
// subscriber number in any plan we accept.
const (
	minDigits = 8
	maxDigits = 15
)

// DefaultRegion is assumed when Normalize is called with an empty region.
const DefaultRegion Region = "IN"

// Normalizer converts raw phone input to canonical E.164 strings.
// Deterministic and side-effect free; safe for concurrent use.
type Normalizer struct {
	plan DialingPlan
}

// NewNormalizer builds a Normalizer over a copy of plan. A nil plan gets
// the default seed table.
func NewNormalizer(plan DialingPlan) *Normalizer {
	if plan == nil {
		plan = DefaultPlan()
	}
	copied := make(DialingPlan, len(plan))
	for region, rule := range plan {
		copied[Region(strings.ToUpper(string(region)))] = rule
	}
	return &Normalizer{plan: copied}
}

// Normalize converts raw to E.164 ("+" followed by 8-15 digits).
//
// Empty or all-whitespace input returns ("", nil): absence of a phone
// number is not a failure. Failures carry domain-error codes:
// CodeInvalidFormat for alphabetic or non-digit input, CodeInvalidLength
// for digit counts outside 8-15, CodeUnsupportedRegion for a region
// missing from the dialing plan.
func (n *Normalizer) Normalize(raw string, defaultRegion Region) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}

	if strings.ContainsFunc(trimmed, isAlpha) {
		return "", dErrors.Newf(dErrors.CodeInvalidFormat, "phone contains alphabetic characters: %q", raw)
	}

	// International escape: "+..." and "00..." are equivalent.
	if rest, ok := strings.CutPrefix(trimmed, "+"); ok {
		return n.international(rest, raw)
	}
	if rest, ok := strings.CutPrefix(trimmed, "00"); ok {
		return n.international(rest, raw)
	}

	digits := stripPunctuation(trimmed)
	// Single leading trunk zero is dropped; many plans prefix national
	// dialing with it.
	if len(digits) > 1 && digits[0] == '0' {
		digits = digits[1:]
	}
	if !digitsOnly(digits) {
		return "", dErrors.Newf(dErrors.CodeInvalidFormat, "invalid characters in phone: %q", raw)
	}

	region := defaultRegion
	if strings.TrimSpace(string(region)) == "" {
		region = DefaultRegion
	}
	rule, ok := n.plan[Region(strings.ToUpper(string(region)))]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeUnsupportedRegion, "unsupported default region: %q", defaultRegion)
	}

	// Prefix the dialing code unless the digits already read as
	// dialingCode + national number of the expected length.
	full := rule.DialingCode + digits
	if len(digits) == len(rule.DialingCode)+rule.NationalLength && strings.HasPrefix(digits, rule.DialingCode) {
		full = digits
	}

	if err := checkLength(full, raw); err != nil {
		return "", err
	}
	return "+" + full, nil
}

func (n *Normalizer) international(rest, original string) (string, error) {
	digits := stripPunctuation(rest)
	if !digitsOnly(digits) {
		return "", dErrors.Newf(dErrors.CodeInvalidFormat, "invalid characters in phone: %q", original)
	}
	if err := checkLength(digits, original); err != nil {
		return "", err
	}
	return "+" + digits, nil
}

func checkLength(digits, original string) error {
	if len(digits) < minDigits || len(digits) > maxDigits {
		return dErrors.Newf(dErrors.CodeInvalidLength, "phone number digits out of range (%d-%d): %q", minDigits, maxDigits, original)
	}
	return nil
}

func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '.', '(', ')':
			return -1
		}
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
