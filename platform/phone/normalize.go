// Package phone provides phone number normalization helpers.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// defaultRegion is used when the input carries no international prefix.
const defaultRegion = "US"

// NormalizeE164 parses the input and returns it in E.164 format.
// Input that cannot be parsed as a phone number is returned trimmed but
// otherwise unchanged, so exact-match lookups still work on raw values.
func NormalizeE164(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return trimmed
	}

	return phonenumbers.Format(parsed, phonenumbers.E164)
}
