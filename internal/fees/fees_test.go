package fees

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconstructWithDefaultFee(t *testing.T) {
	in := Input{
		SrcBalance: big.NewInt(1_000_000),
		DstBalance: big.NewInt(1_000_000),
		Amount:     big.NewInt(10_000),
		Fee:        big.NewInt(3e15),
	}

	wantTheoretical := new(big.Int).Quo(big.NewInt(9970*1_000_000), big.NewInt(1_009_970))

	tests := []struct {
		name   string
		actual int64
		extra  int64
	}{
		{"actual below formula", 9800, wantTheoretical.Int64() - 9800},
		{"actual equals formula", wantTheoretical.Int64(), 0},
		{"actual above formula", wantTheoretical.Int64() + 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in.Actual = big.NewInt(tt.actual)
			res, err := Reconstruct(in)
			require.NoError(t, err)

			assert.Equal(t, int64(9970), res.Taxed.Int64())
			assert.Equal(t, int64(9871), res.Theoretical.Int64())
			assert.Equal(t, 0, wantTheoretical.Cmp(res.Theoretical))
			assert.Equal(t, tt.extra, res.Extra.Int64())
		})
	}
}

func TestTaxedAmountTruncates(t *testing.T) {
	// 999 * 3e15 / 1e18 = 2.997, truncated to 2
	assert.Equal(t, int64(997), TaxedAmount(big.NewInt(999), big.NewInt(3e15)).Int64())
	assert.Equal(t, int64(999), TaxedAmount(big.NewInt(999), big.NewInt(0)).Int64())
}

func TestTheoreticalOutputEmptyPool(t *testing.T) {
	out, err := TheoreticalOutput(big.NewInt(0), big.NewInt(100), big.NewInt(0), big.NewInt(3e15))
	require.NoError(t, err)
	assert.Equal(t, 0, out.Sign())
}

func TestTheoreticalOutputRejectsNegative(t *testing.T) {
	_, err := TheoreticalOutput(big.NewInt(-1), big.NewInt(100), big.NewInt(10), big.NewInt(3e15))
	assert.ErrorIs(t, err, ErrNegativeInput)

	_, err = TheoreticalOutput(nil, big.NewInt(100), big.NewInt(10), big.NewInt(3e15))
	assert.ErrorIs(t, err, ErrNegativeInput)
}

func TestExtraFeeDoesNotAliasInputs(t *testing.T) {
	theoretical := big.NewInt(10)
	actual := big.NewInt(4)
	extra := ExtraFee(theoretical, actual)
	extra.SetInt64(0)
	assert.Equal(t, int64(10), theoretical.Int64())
	assert.Equal(t, int64(4), actual.Int64())
}
