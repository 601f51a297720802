// Package num converts raw on-chain integers into exact human-decimal values.
package num

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// DivisionPrecision is the number of fractional digits kept by SafeDiv.
const DivisionPrecision int32 = 30

var (
	Zero = decimal.Zero
	One  = decimal.NewFromInt(1)
	Two  = decimal.NewFromInt(2)

	// Half multiplies exactly where Div would round.
	Half = decimal.New(5, -1)

	// Exp18 is the fixed-point scale used by fee rates.
	Exp18 = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// ExponentToDecimal returns 10^decimals.
func ExponentToDecimal(decimals int32) decimal.Decimal {
	return decimal.New(1, decimals)
}

// ConvertTokenToDecimal shifts a raw token amount by its decimal exponent.
// The result is exact: no rounding takes place.
func ConvertTokenToDecimal(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}

// SafeDiv divides a by b, returning zero when b is zero.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return Zero
	}
	return a.DivRound(b, DivisionPrecision)
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if b.GreaterThan(a) {
		return b
	}
	return a
}
