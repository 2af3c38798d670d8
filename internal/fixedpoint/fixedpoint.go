// Package fixedpoint converts between human decimal token amounts and exact
// integer minor-unit values at a fixed scale. All arithmetic is math/big; no
// floating point is involved at any step.
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Decimals is the fixed fractional scale: one token is 10^Decimals minor units.
const Decimals = 18

var scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

var (
	// ErrInvalidFormat rejects anything that is not plain unsigned decimal
	// digits with at most one interior dot. No signs, no exponents.
	ErrInvalidFormat = errors.New("invalid amount format")

	// ErrTooManyDecimals rejects amounts with more fractional digits than the
	// scale supports, rather than silently truncating.
	ErrTooManyDecimals = errors.New("too many decimal places")
)

// Scale returns a copy of 10^Decimals.
func Scale() *big.Int {
	return new(big.Int).Set(scale)
}

// ToMinorUnits converts a decimal string into exact minor units.
func ToMinorUnits(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrInvalidFormat)
	}

	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if intPart == "" || !isDigits(intPart) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	if hasDot {
		if fracPart == "" || !isDigits(fracPart) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
		}
		if len(fracPart) > Decimals {
			return nil, fmt.Errorf("%w: %q has %d, maximum is %d", ErrTooManyDecimals, s, len(fracPart), Decimals)
		}
	}

	whole, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	result := whole.Mul(whole, scale)

	if hasDot {
		padded := fracPart + strings.Repeat("0", Decimals-len(fracPart))
		frac, ok := new(big.Int).SetString(padded, 10)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
		}
		result.Add(result, frac)
	}

	return result, nil
}

// ToDecimalString renders minor units as a canonical decimal string: no
// leading zeros beyond a single "0", trailing fractional zeros stripped, and
// no decimal point when the fractional part is zero.
func ToDecimalString(v *big.Int) string {
	if v == nil {
		return "0"
	}

	abs := new(big.Int).Abs(v)
	whole, rem := new(big.Int).QuoRem(abs, scale, new(big.Int))

	sign := ""
	if v.Sign() < 0 {
		sign = "-"
	}

	if rem.Sign() == 0 {
		return sign + whole.String()
	}

	frac := rem.String()
	frac = strings.Repeat("0", Decimals-len(frac)) + frac
	frac = strings.TrimRight(frac, "0")
	return sign + whole.String() + "." + frac
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
