package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"medcrm_backend/platform/apperr"
)

// NumberLetter starts every quote number.
const NumberLetter = "Q"

const maxSequence = 9999

var numberPattern = regexp.MustCompile(`^Q\d{10}$`)

// NumberPrefix returns the Q{YYYY}{MM} prefix for the month containing t (UTC).
func NumberPrefix(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s%04d%02d", NumberLetter, t.Year(), int(t.Month()))
}

// NextNumber returns the number following latest within prefix. An empty
// latest starts the month at 0001.
func NextNumber(prefix, latest string) (string, error) {
	seq := 0
	if latest != "" {
		if !strings.HasPrefix(latest, prefix) || !IsValidNumber(latest) {
			return "", apperr.Internal(fmt.Sprintf("malformed quote number %q for prefix %s", latest, prefix))
		}
		n, err := strconv.Atoi(latest[len(prefix):])
		if err != nil {
			return "", apperr.Wrap(apperr.KindInternal, "parse quote sequence", err)
		}
		seq = n
	}
	if seq >= maxSequence {
		return "", apperr.Conflict("monthly quote sequence exhausted").WithCode(CodeQuoteSequenceExhausted)
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}

// IsValidNumber reports whether s has the Q{YYYY}{MM}{NNNN} shape.
func IsValidNumber(s string) bool {
	return numberPattern.MatchString(s)
}
