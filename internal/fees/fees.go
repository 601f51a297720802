// Package fees reconstructs the extra liquidity-provider fee hidden in a swap.
//
// The pool's constant-exchange formula predicts an output from the balances and
// the factory fee. When the pool pays out less than predicted, the difference
// stays with liquidity providers.
package fees

import (
	"errors"
	"math/big"

	"github.com/emiswap/indexer/internal/num"
)

var ErrNegativeInput = errors.New("fee inputs must not be negative")

// Input holds raw integer amounts as emitted by the pool.
type Input struct {
	SrcBalance *big.Int
	DstBalance *big.Int
	Amount     *big.Int
	Fee        *big.Int // scaled by 1e18
	Actual     *big.Int
}

type Result struct {
	Taxed       *big.Int
	Theoretical *big.Int
	Extra       *big.Int
}

// TaxedAmount returns amount - amount*fee/1e18 with truncating division.
func TaxedAmount(amount, fee *big.Int) *big.Int {
	cut := new(big.Int).Mul(amount, fee)
	cut.Quo(cut, num.Exp18)
	return cut.Sub(amount, cut)
}

// TheoreticalOutput returns taxed*dst/(src+taxed). It is zero when the
// denominator is zero.
func TheoreticalOutput(srcBalance, dstBalance, amount, fee *big.Int) (*big.Int, error) {
	for _, v := range []*big.Int{srcBalance, dstBalance, amount, fee} {
		if v == nil || v.Sign() < 0 {
			return nil, ErrNegativeInput
		}
	}
	taxed := TaxedAmount(amount, fee)
	den := new(big.Int).Add(srcBalance, taxed)
	if den.Sign() == 0 {
		return new(big.Int), nil
	}
	out := new(big.Int).Mul(taxed, dstBalance)
	return out.Quo(out, den), nil
}

// ExtraFee returns theoretical - actual, floored at zero.
func ExtraFee(theoretical, actual *big.Int) *big.Int {
	d := new(big.Int).Sub(theoretical, actual)
	if d.Sign() < 0 {
		return new(big.Int)
	}
	return d
}

// Reconstruct runs the full computation.
func Reconstruct(in Input) (Result, error) {
	theoretical, err := TheoreticalOutput(in.SrcBalance, in.DstBalance, in.Amount, in.Fee)
	if err != nil {
		return Result{}, err
	}
	actual := in.Actual
	if actual == nil {
		actual = new(big.Int)
	}
	return Result{
		Taxed:       TaxedAmount(in.Amount, in.Fee),
		Theoretical: theoretical,
		Extra:       ExtraFee(theoretical, actual),
	}, nil
}
