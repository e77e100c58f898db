// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// ErrInvalidNumber is returned when a number cannot be parsed or is not a valid number.
var ErrInvalidNumber = errors.New("invalid phone number format")

// ParseE164 parses input with a US default region and returns it in E.164 form.
// Unparseable numbers, and numbers whose length cannot belong to their region,
// return ErrInvalidNumber. Unassigned area codes such as 555 are accepted.
func ParseE164(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ErrInvalidNumber
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return "", ErrInvalidNumber
	}

	if !phonenumbers.IsPossibleNumber(number) {
		return "", ErrInvalidNumber
	}

	return phonenumbers.Format(number, phonenumbers.E164), nil
}

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	formatted, err := ParseE164(input)
	if err != nil {
		return strings.TrimSpace(input)
	}
	return formatted
}
