package emiswap

import (
	"github.com/emiswap/indexer/internal/chain"
	"github.com/emiswap/indexer/internal/entity"
	"github.com/emiswap/indexer/internal/num"
	"github.com/emiswap/indexer/internal/rollup"
	"github.com/emiswap/indexer/internal/store"
	"github.com/emiswap/indexer/internal/valuation"
)

// resync writes freshly read reserves into the pool and recomputes every
// price and liquidity figure that depends on them. The pool's previous
// tracked liquidity is taken out of the factory totals before the new value
// is added back, so repeated syncs never double count.
func (e *Engine) resync(tx *store.Tx, view chain.Accessor, pair *entity.Pair, r reserves) error {
	token0, err := tx.GetToken(pair.Token0)
	if err != nil {
		return err
	}
	token1, err := tx.GetToken(pair.Token1)
	if err != nil {
		return err
	}
	factory, err := tx.GetFactory(e.d.Factory())
	if err != nil {
		return err
	}
	bundle, err := tx.GetBundle(entity.BundleID)
	if err != nil {
		return err
	}

	factory.TotalLiquidityETH = factory.TotalLiquidityETH.Sub(pair.TrackedReserveETH)
	factory.TotalLiquidityUSD = factory.TotalLiquidityUSD.Sub(pair.TrackedReserveUSD)

	pair.Reserve0 = num.ConvertTokenToDecimal(r.raw0, token0.Decimals)
	pair.Reserve1 = num.ConvertTokenToDecimal(r.raw1, token1.Decimals)
	pair.Token0Price = num.SafeDiv(pair.Reserve0, pair.Reserve1)
	pair.Token1Price = num.SafeDiv(pair.Reserve1, pair.Reserve0)
	tx.Save(pair)

	if bundle.EthPrice, err = e.pricing.ReferencePriceUSD(tx); err != nil {
		return err
	}
	tx.Save(bundle)
	ethPrice := bundle.EthPrice

	if token0.DerivedETH, err = e.pricing.ReferencePrice(tx, view, token0); err != nil {
		return err
	}
	if token1.DerivedETH, err = e.pricing.ReferencePrice(tx, view, token1); err != nil {
		return err
	}
	token0.DerivedUSD = e.pricing.USDPerToken(token0, ethPrice)
	token1.DerivedUSD = e.pricing.USDPerToken(token1, ethPrice)
	tx.Save(token0)
	tx.Save(token1)

	leg0 := valuation.Leg{Amount: pair.Reserve0, Token: token0}
	leg1 := valuation.Leg{Amount: pair.Reserve1, Token: token1}
	trackedUSD := e.liquidityUSD(leg0, leg1, ethPrice)
	trackedETH := num.SafeDiv(trackedUSD, ethPrice)

	pair.TrackedReserveETH = trackedETH
	pair.TrackedReserveUSD = trackedUSD
	pair.ReserveETH = pair.Reserve0.Mul(token0.DerivedETH).Add(pair.Reserve1.Mul(token1.DerivedETH))
	if trackedUSD.IsZero() {
		pair.ReserveUSD = pair.ReserveETH.Mul(ethPrice)
	} else {
		pair.ReserveUSD = trackedUSD
	}

	factory.TotalLiquidityETH = factory.TotalLiquidityETH.Add(trackedETH)
	factory.TotalLiquidityUSD = factory.TotalLiquidityUSD.Add(trackedUSD)
	tx.Save(factory)
	return nil
}

// snapshot rolls the post-sync state into the day and hour buckets.
func (e *Engine) snapshot(tx *store.Tx, pair *entity.Pair, timestamp uint64) (*rollup.Buckets, error) {
	token0, err := tx.GetToken(pair.Token0)
	if err != nil {
		return nil, err
	}
	token1, err := tx.GetToken(pair.Token1)
	if err != nil {
		return nil, err
	}
	factory, err := tx.GetFactory(e.d.Factory())
	if err != nil {
		return nil, err
	}
	bundle, err := tx.GetBundle(entity.BundleID)
	if err != nil {
		return nil, err
	}
	return e.rollup.Update(tx, rollup.Snapshot{
		Timestamp: int64(timestamp),
		Factory:   factory,
		Pair:      pair,
		Token0:    token0,
		Token1:    token1,
		EthPrice:  bundle.EthPrice,
	})
}
