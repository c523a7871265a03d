package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
)

// Cents is a monetary amount in minor units (1/100 of the base unit).
// All price arithmetic happens on this type; floating point is never
// used on a money path so displayed totals carry no binary rounding
// artifacts.
type Cents int64

// ErrInvalidAmount indicates a decimal string that cannot be represented
// exactly in minor units.
var ErrInvalidAmount = errors.New("domain: invalid money amount")

// ParseCents converts a decimal string such as "19.99" or "-3.5" into
// minor units. At most two fractional digits are accepted.
func ParseCents(value string) (Cents, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidAmount)
	}

	negative := false
	switch trimmed[0] {
	case '-':
		negative = true
		trimmed = trimmed[1:]
	case '+':
		trimmed = trimmed[1:]
	}
	if trimmed == "" || trimmed == "." {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}

	whole := trimmed
	frac := ""
	if idx := strings.IndexByte(trimmed, '.'); idx >= 0 {
		whole = trimmed[:idx]
		frac = trimmed[idx+1:]
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: %q has more than two fractional digits", ErrInvalidAmount, value)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}

	// ParseInt tolerates a leading sign, so digits must be checked first
	// or garbage like "5.-5" would slip through as "4.95".
	if !allDigits(whole) || !allDigits(frac) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	hundredths := int64(frac[0]-'0')*10 + int64(frac[1]-'0')
	if units > (math.MaxInt64-hundredths)/100 {
		return 0, fmt.Errorf("%w: %q exceeds the representable range", ErrInvalidAmount, value)
	}

	total := units*100 + hundredths
	if negative {
		total = -total
	}
	return Cents(total), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Add returns the exact sum of the two amounts.
func (c Cents) Add(other Cents) Cents {
	return c + other
}

// String renders the amount as a plain decimal with two fractional
// digits, e.g. 1999 -> "19.99" and -350 -> "-3.50".
func (c Cents) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// ValidCurrency reports whether code is a well-formed ISO 4217 currency
// code such as "USD".
func ValidCurrency(code string) bool {
	_, err := currency.ParseISO(strings.TrimSpace(code))
	return err == nil
}
