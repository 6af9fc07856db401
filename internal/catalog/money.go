package catalog

import (
	"fmt"
	"strings"
)

// Money is an amount in minor units (cents) with an ISO 4217 currency code.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CentsFromDecimal converts a decimal currency string ("9.50", "12.005") to
// minor units, rounding half-up on the third decimal place. Implemented on
// the digit string rather than float64 so "12.005" reliably rounds to 1201.
func CentsFromDecimal(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	// A bare sign or dot ("-", ".", "-.") has no digits at all.
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	for _, part := range []string{whole, frac} {
		for _, c := range part {
			if c < '0' || c > '9' {
				return 0, fmt.Errorf("invalid price %q", s)
			}
		}
	}

	// Pad the fraction to at least 3 digits: two for cents, one to round on.
	frac += strings.Repeat("0", max(0, 3-len(frac)))

	var cents int64
	for _, c := range whole {
		cents = cents*10 + int64(c-'0')
	}
	cents = cents*100 + int64(frac[0]-'0')*10 + int64(frac[1]-'0')
	if frac[2] >= '5' {
		cents++
	}

	if neg {
		cents = -cents
	}
	return cents, nil
}
