// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "FR"

// ErrInvalidNumber is returned for input that is not a dialable number in the region.
var ErrInvalidNumber = errors.New("invalid phone number")

// Normalizer formats numbers to E.164, reading national numbers in its region.
type Normalizer struct {
	region string
}

// NewNormalizer returns a normalizer for region, falling back to DefaultRegion.
func NewNormalizer(region string) *Normalizer {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultRegion
	}
	return &Normalizer{region: region}
}

// Region returns the region national numbers are read in.
func (n *Normalizer) Region() string {
	return n.region
}

// E164 formats input to E.164. Empty input yields an empty string.
func (n *Normalizer) E164(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", nil
	}

	number, err := phonenumbers.Parse(trimmed, n.region)
	if err != nil {
		return "", ErrInvalidNumber
	}
	if !phonenumbers.IsValidNumber(number) {
		return "", ErrInvalidNumber
	}

	return phonenumbers.Format(number, phonenumbers.E164), nil
}

// International formats an E.164 number for display, e.g. "+33 1 42 34 56 78".
// Input that cannot be parsed is returned unchanged.
func (n *Normalizer) International(e164 string) string {
	number, err := phonenumbers.Parse(e164, n.region)
	if err != nil {
		return e164
	}
	return phonenumbers.Format(number, phonenumbers.INTERNATIONAL)
}
