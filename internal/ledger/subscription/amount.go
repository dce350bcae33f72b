// internal/ledger/subscription/amount.go
package subscription

import (
	"fmt"
	"strings"
)

// minorUnitScale is the number of decimal places in the ledger's minor
// unit: one whole token is 1,000,000 minor units.
const minorUnitScale = 6

// MinorUnits converts a decimal amount string to minor units, truncating
// any precision beyond six decimal places. Parsing is exact; no floating
// point is involved.
func MinorUnits(amount string) (uint64, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}

	var units uint64
	for _, c := range intPart {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid amount %q", amount)
		}
		d := uint64(c - '0')
		if units > (^uint64(0)-d)/10 {
			return 0, fmt.Errorf("amount %q overflows", amount)
		}
		units = units*10 + d
	}

	// Truncate, never round, beyond the minor-unit scale.
	if len(fracPart) > minorUnitScale {
		fracPart = fracPart[:minorUnitScale]
	}
	var frac uint64
	for _, c := range fracPart {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid amount %q", amount)
		}
		frac = frac*10 + uint64(c-'0')
	}
	for i := len(fracPart); i < minorUnitScale; i++ {
		frac *= 10
	}

	scaled := units * 1_000_000
	if units != 0 && scaled/units != 1_000_000 {
		return 0, fmt.Errorf("amount %q overflows", amount)
	}
	return scaled + frac, nil
}
