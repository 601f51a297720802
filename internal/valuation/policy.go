// Package valuation decides which USD figures are trusted.
//
// Amounts only count toward tracked volume and liquidity when at least one
// side is a whitelisted token. Thin pools with few liquidity providers must
// also clear a minimum USD reserve before their volume is trusted.
package valuation

import (
	"github.com/shopspring/decimal"

	"github.com/emiswap/indexer/internal/deployment"
	"github.com/emiswap/indexer/internal/entity"
	"github.com/emiswap/indexer/internal/num"
)

// Leg is one side of a pool movement.
type Leg struct {
	Amount decimal.Decimal
	Token  *entity.Token
}

type Policy struct {
	d *deployment.Deployment
}

func New(d *deployment.Deployment) *Policy {
	return &Policy{d: d}
}

func (p *Policy) priceUSD(t *entity.Token, ethPrice decimal.Decimal) decimal.Decimal {
	return t.DerivedETH.Mul(ethPrice)
}

// TrackedVolumeUSD values a swap through whitelisted legs. Both whitelisted
// gives the average of the two legs, one gives that leg alone.
func (p *Policy) TrackedVolumeUSD(a0, a1 Leg, pair *entity.Pair, ethPrice decimal.Decimal) decimal.Decimal {
	price0 := p.priceUSD(a0.Token, ethPrice)
	price1 := p.priceUSD(a1.Token, ethPrice)
	w0 := p.d.IsWhitelisted(a0.Token.ID)
	w1 := p.d.IsWhitelisted(a1.Token.ID)

	if pair != nil && len(pair.LiquidityPositions) < p.d.MinimumLiquidityPositions() {
		threshold := p.d.MinimumUSDThreshold()
		reserve0USD := pair.Reserve0.Mul(price0)
		reserve1USD := pair.Reserve1.Mul(price1)
		switch {
		case w0 && w1:
			if reserve0USD.Add(reserve1USD).LessThan(threshold) {
				return num.Zero
			}
		case w0:
			if reserve0USD.Mul(num.Two).LessThan(threshold) {
				return num.Zero
			}
		case w1:
			if reserve1USD.Mul(num.Two).LessThan(threshold) {
				return num.Zero
			}
		}
	}

	switch {
	case w0 && w1:
		return a0.Amount.Mul(price0).Add(a1.Amount.Mul(price1)).Mul(num.Half)
	case w0:
		return a0.Amount.Mul(price0)
	case w1:
		return a1.Amount.Mul(price1)
	}
	return num.Zero
}

// TrackedLiquidityUSD values reserves through whitelisted legs: the sum when
// both are whitelisted, double the whitelisted leg otherwise.
func (p *Policy) TrackedLiquidityUSD(a0, a1 Leg, ethPrice decimal.Decimal) decimal.Decimal {
	w0 := p.d.IsWhitelisted(a0.Token.ID)
	w1 := p.d.IsWhitelisted(a1.Token.ID)

	switch {
	case w0 && w1:
		return a0.Amount.Mul(p.priceUSD(a0.Token, ethPrice)).Add(a1.Amount.Mul(p.priceUSD(a1.Token, ethPrice)))
	case w0:
		return a0.Amount.Mul(p.priceUSD(a0.Token, ethPrice)).Mul(num.Two)
	case w1:
		return a1.Amount.Mul(p.priceUSD(a1.Token, ethPrice)).Mul(num.Two)
	}
	return num.Zero
}

// TrackedVolumeUSDStable treats USD-stable amounts as dollars. It is used
// while the reference asset has no USD price yet.
func (p *Policy) TrackedVolumeUSDStable(a0, a1 Leg) decimal.Decimal {
	s0 := p.d.IsUSDStable(a0.Token.ID)
	s1 := p.d.IsUSDStable(a1.Token.ID)

	switch {
	case s0 && s1:
		return a0.Amount.Add(a1.Amount).Mul(num.Half)
	case s0:
		return a0.Amount
	case s1:
		return a1.Amount
	}
	return num.Zero
}

// TrackedLiquidityUSDStable is the stable-only counterpart of TrackedLiquidityUSD.
func (p *Policy) TrackedLiquidityUSDStable(a0, a1 Leg) decimal.Decimal {
	s0 := p.d.IsUSDStable(a0.Token.ID)
	s1 := p.d.IsUSDStable(a1.Token.ID)

	switch {
	case s0 && s1:
		return a0.Amount.Add(a1.Amount)
	case s0:
		return a0.Amount.Mul(num.Two)
	case s1:
		return a1.Amount.Mul(num.Two)
	}
	return num.Zero
}
