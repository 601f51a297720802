// Package pricing derives token prices in the network's reference asset and
// the reference asset's USD price.
package pricing

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/emiswap/indexer/internal/chain"
	"github.com/emiswap/indexer/internal/deployment"
	"github.com/emiswap/indexer/internal/entity"
	"github.com/emiswap/indexer/internal/num"
	"github.com/emiswap/indexer/internal/store"
)

// MaxDepth bounds the search: a token is priced through at most one
// intermediate pool before falling back to the anchor pool.
const MaxDepth = 1

type Engine struct {
	d *deployment.Deployment
}

func New(d *deployment.Deployment) *Engine {
	return &Engine{d: d}
}

// ReferencePrice returns the price of token in the reference asset.
func (e *Engine) ReferencePrice(tx *store.Tx, view chain.Accessor, token *entity.Token) (decimal.Decimal, error) {
	return e.DeriveReferencePrice(tx, view, token, 0)
}

// DeriveReferencePrice prices token at the given search depth. A direct pool
// against the reference asset wins. Past MaxDepth the anchor pool's quote is
// returned. Otherwise the deepest pool by tracked reference reserve prices
// the token through its other token, even when that price is zero.
func (e *Engine) DeriveReferencePrice(tx *store.Tx, view chain.Accessor, token *entity.Token, depth int) (decimal.Decimal, error) {
	ref := e.d.ReferenceAsset()
	if token.ID == ref {
		return num.One, nil
	}

	poolID, ok, err := view.PoolFor(token.ID, ref)
	if err != nil && !errors.Is(err, chain.ErrUnavailable) {
		return num.Zero, err
	}
	if ok {
		pair, found, err := tx.FindPair(poolID)
		if err != nil {
			return num.Zero, err
		}
		if found {
			return pair.QuoteFor(token.ID), nil
		}
	}

	if depth >= MaxDepth {
		return e.AnchorQuote(tx)
	}

	candidates, err := e.candidates(tx, token)
	if err != nil {
		return num.Zero, err
	}
	for _, pair := range candidates {
		other, err := tx.GetToken(pair.Other(token.ID))
		if err != nil {
			return num.Zero, err
		}
		otherPrice, err := e.DeriveReferencePrice(tx, view, other, depth+1)
		if err != nil {
			return num.Zero, err
		}
		return pair.QuoteFor(token.ID).Mul(otherPrice), nil
	}
	return num.Zero, nil
}

// candidates returns the token's pools by descending tracked reserve, ties
// broken by id.
func (e *Engine) candidates(tx *store.Tx, token *entity.Token) ([]*entity.Pair, error) {
	pairs := make([]*entity.Pair, 0, len(token.AllPairs))
	for _, id := range token.AllPairs {
		p, err := tx.GetPair(id)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if c := pairs[i].TrackedReserveETH.Cmp(pairs[j].TrackedReserveETH); c != 0 {
			return c > 0
		}
		return pairs[i].ID < pairs[j].ID
	})
	return pairs, nil
}

// AnchorQuote returns the anchor pool's reference quote, or zero before the
// anchor pool is indexed.
func (e *Engine) AnchorQuote(tx *store.Tx) (decimal.Decimal, error) {
	pair, ok, err := tx.FindPair(e.d.AnchorPair())
	if err != nil || !ok {
		return num.Zero, err
	}
	return quote(pair), nil
}

// quote returns the larger side price, which is the reference asset's price
// in the stable token for reference/stable pools.
func quote(p *entity.Pair) decimal.Decimal {
	return num.Max(p.Token0Price, p.Token1Price)
}

// ReferencePriceUSD averages the configured stable pools' quotes weighted by
// each pool's reserve0.
func (e *Engine) ReferencePriceUSD(tx *store.Tx) (decimal.Decimal, error) {
	var pairs []*entity.Pair
	for _, id := range e.d.StablePairs() {
		p, ok, err := tx.FindPair(id)
		if err != nil {
			return num.Zero, err
		}
		if ok {
			pairs = append(pairs, p)
		}
	}

	switch len(pairs) {
	case 0:
		return num.Zero, nil
	case 1:
		return quote(pairs[0]), nil
	}

	total := num.Zero
	for _, p := range pairs {
		total = total.Add(p.Reserve0)
	}
	if total.IsZero() {
		return num.Zero, nil
	}

	price := num.Zero
	for _, p := range pairs {
		price = price.Add(quote(p).Mul(num.SafeDiv(p.Reserve0, total)))
	}
	return price, nil
}

// USDPerToken returns one for USD-stable tokens and the reference-derived
// USD price otherwise.
func (e *Engine) USDPerToken(token *entity.Token, ethPrice decimal.Decimal) decimal.Decimal {
	if e.d.IsUSDStable(token.ID) {
		return num.One
	}
	return token.DerivedETH.Mul(ethPrice)
}
