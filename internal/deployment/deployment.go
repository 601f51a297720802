package deployment

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Deployment is the frozen configuration shared by every engine component.
// All addresses are lowercase.
type Deployment struct {
	name       string
	network    string
	startBlock uint64

	factory        string
	referenceAsset string
	anchorPair     string
	stablePairs    []string

	whitelist map[string]struct{}
	usdStable map[string]struct{}

	minimumUSDThreshold       decimal.Decimal
	minimumLiquidityPositions int
	bootstrapLiquidity        *big.Int
	defaultFee                *big.Int

	native *NativeToken
}

func (d *Deployment) Name() string           { return d.name }
func (d *Deployment) Network() string        { return d.network }
func (d *Deployment) StartBlock() uint64     { return d.startBlock }
func (d *Deployment) Factory() string        { return d.factory }
func (d *Deployment) ReferenceAsset() string { return d.referenceAsset }

// AnchorPair is the high-liquidity pool used when no nearer price exists.
func (d *Deployment) AnchorPair() string { return d.anchorPair }

// StablePairs are the reference/stablecoin pools averaged into the USD price.
func (d *Deployment) StablePairs() []string {
	out := make([]string, len(d.stablePairs))
	copy(out, d.stablePairs)
	return out
}

// IsWhitelisted reports whether a token's amounts count toward tracked figures.
func (d *Deployment) IsWhitelisted(token string) bool {
	_, ok := d.whitelist[token]
	return ok
}

// IsUSDStable reports whether a token is treated as worth one USD.
func (d *Deployment) IsUSDStable(token string) bool {
	_, ok := d.usdStable[token]
	return ok
}

func (d *Deployment) MinimumUSDThreshold() decimal.Decimal { return d.minimumUSDThreshold }
func (d *Deployment) MinimumLiquidityPositions() int        { return d.minimumLiquidityPositions }

// BootstrapLiquidity is the raw LP amount permanently locked on a pool's first deposit.
func (d *Deployment) BootstrapLiquidity() *big.Int { return new(big.Int).Set(d.bootstrapLiquidity) }

// DefaultFee is the 18-decimal fee rate used when the factory cannot be read.
func (d *Deployment) DefaultFee() *big.Int { return new(big.Int).Set(d.defaultFee) }

// Native returns the native coin configuration, if any.
func (d *Deployment) Native() (NativeToken, bool) {
	if d.native == nil {
		return NativeToken{}, false
	}
	return *d.native, true
}

// IsNative reports whether addr stands for the native coin.
func (d *Deployment) IsNative(addr string) bool {
	return d.native != nil && d.native.Address == addr
}
