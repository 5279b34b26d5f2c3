// Package email normalizes and validates email addresses before they are
// stored or compared.
//
// The canonical form is trimmed and fully lower-cased (domain is
// case-insensitive per RFC; treating the local part the same keeps
// uniqueness checks simple). Validation is a conservative pattern that
// catches obvious input mistakes without attempting full RFC 5322.
package email

import (
	"regexp"
	"strings"

	dErrors "medicus/pkg/domain-errors"
)

// Conservative address shape: dot-separated RFC-safe local segments (no
// leading, trailing, or consecutive dots), "@", hyphen-safe domain labels,
// and a final TLD label of at least two letters.
var pattern = regexp.MustCompile(
	`^[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+` +
		`(?:\.[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+)*` +
		`@` +
		`[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?` +
		`(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)*` +
		`\.[a-z]{2,}$`)

// Normalize trims and lower-cases raw, validating the result.
//
// Empty or all-whitespace input returns ("", nil): a missing email is
// absence, not a failure. Invalid addresses fail with CodeInvalidFormat
// carrying the original input for diagnostics.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}

	candidate := strings.ToLower(trimmed)
	if !pattern.MatchString(candidate) {
		return "", dErrors.Newf(dErrors.CodeInvalidFormat, "invalid email format: %q", raw)
	}
	// No whitespace anywhere in the stored form.
	if strings.ContainsAny(candidate, " \t\n\r") {
		return "", dErrors.Newf(dErrors.CodeInvalidFormat, "invalid email (contains whitespace): %q", raw)
	}
	return candidate, nil
}
