package emiswap

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/emiswap/indexer/internal/chain"
	"github.com/emiswap/indexer/internal/entity"
	"github.com/emiswap/indexer/internal/fees"
	"github.com/emiswap/indexer/internal/num"
	"github.com/emiswap/indexer/internal/rollup"
	"github.com/emiswap/indexer/internal/store"
	"github.com/emiswap/indexer/internal/valuation"
)

// OnSwap records one swap, its volume and the extra fee the pool kept.
func (e *Engine) OnSwap(tx *store.Tx, view chain.Accessor, ev SwapOccurred) error {
	pair, err := tx.GetPair(ev.Address)
	if err != nil {
		return err
	}
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
	ethPrice := bundle.EthPrice

	srcIsToken0 := ev.Src == token0.ID
	srcToken, dstToken := token1, token0
	if srcIsToken0 {
		srcToken, dstToken = token0, token1
	}
	amountSrc := num.ConvertTokenToDecimal(ev.Amount, srcToken.Decimals)
	amountDest := num.ConvertTokenToDecimal(ev.Result, dstToken.Decimals)
	amount0, amount1 := amountDest, amountSrc
	if srcIsToken0 {
		amount0, amount1 = amountSrc, amountDest
	}

	leg0 := valuation.Leg{Amount: amount0, Token: token0}
	leg1 := valuation.Leg{Amount: amount1, Token: token1}

	var derivedUSD, trackedUSD, trackedETH decimal.Decimal
	if ethPrice.IsZero() {
		derivedUSD = e.policy.TrackedLiquidityUSDStable(leg0, leg1)
		trackedUSD = e.policy.TrackedVolumeUSDStable(leg0, leg1)
		trackedETH = num.Zero
	} else {
		derivedETH := token0.DerivedETH.Mul(amount0).Add(token1.DerivedETH.Mul(amount1)).Mul(num.Half)
		derivedUSD = derivedETH.Mul(ethPrice)
		trackedUSD = e.policy.TrackedVolumeUSD(leg0, leg1, pair, ethPrice)
		trackedETH = num.SafeDiv(trackedUSD, ethPrice)
	}
	volumeUSD := trackedUSD
	if volumeUSD.IsZero() {
		volumeUSD = derivedUSD
	}

	srcToken.TotalLiquidity = srcToken.TotalLiquidity.Add(amountSrc)
	srcToken.TradeVolume = srcToken.TradeVolume.Add(amountSrc)
	dstToken.TotalLiquidity = dstToken.TotalLiquidity.Sub(amountDest)
	dstToken.TradeVolume = dstToken.TradeVolume.Add(amountDest)
	for _, t := range []*entity.Token{token0, token1} {
		t.TradeVolumeUSD = t.TradeVolumeUSD.Add(volumeUSD)
		t.TxCount++
		tx.Save(t)
	}

	pair.VolumeUSD = pair.VolumeUSD.Add(volumeUSD)
	pair.VolumeToken0 = pair.VolumeToken0.Add(amount0)
	pair.VolumeToken1 = pair.VolumeToken1.Add(amount1)
	pair.TxCount++

	factory.TotalVolumeUSD = factory.TotalVolumeUSD.Add(trackedUSD)
	factory.TotalVolumeETH = factory.TotalVolumeETH.Add(trackedETH)
	factory.TxCount++
	tx.Save(factory)

	extra, err := e.extraFee(view, ev, dstToken.Decimals)
	if err != nil {
		return err
	}

	txn, err := e.ensureTransaction(tx, ev.Meta)
	if err != nil {
		return err
	}
	swap := &entity.Swap{
		ID:          txn.NextSwapID(),
		Transaction: txn.ID,
		Timestamp:   txn.Timestamp,
		Pair:        pair.ID,
		Sender:      ev.TxFrom,
		Src:         ev.Src,
		Dest:        ev.Dst,
		SrcAmount:   amountSrc,
		DestAmount:  amountDest,
		Amount0:     amount0,
		Amount1:     amount1,
		Referral:    ev.Referral,
		AmountUSD:   volumeUSD,
		LogIndex:    ev.LogIndex,
	}
	if srcIsToken0 {
		pair.LPExtraFeeInToken1 = pair.LPExtraFeeInToken1.Add(extra)
		swap.LPExtraFeeInToken1 = extra
	} else {
		pair.LPExtraFeeInToken0 = pair.LPExtraFeeInToken0.Add(extra)
		swap.LPExtraFeeInToken0 = extra
	}
	tx.Save(pair)

	if ev.Referral != entity.ZeroAddress {
		if err := e.applyReferral(tx, view, txn, pair, swap); err != nil {
			return err
		}
	}
	txn.Swaps = append(txn.Swaps, swap.ID)
	tx.Save(swap)

	user, err := e.ensureUser(tx, ev.TxFrom)
	if err != nil {
		return err
	}
	user.USDSwapped = user.USDSwapped.Add(swap.AmountUSD)
	tx.Save(user)

	r, err := e.readReserves(view, pair)
	if err != nil {
		return err
	}
	if err := e.resync(tx, view, pair, r); err != nil {
		return err
	}
	buckets, err := e.snapshot(tx, pair, ev.Timestamp)
	if err != nil {
		return err
	}
	e.rollup.AddSwapVolume(buckets, rollup.SwapVolume{
		Amount0:          amount0,
		Amount1:          amount1,
		TrackedAmountUSD: trackedUSD,
		TrackedAmountETH: trackedETH,
	})
	return nil
}

// extraFee reconstructs the pool's extra LP fee in destination token units.
func (e *Engine) extraFee(view chain.Accessor, ev SwapOccurred, dstDecimals int32) (decimal.Decimal, error) {
	fee, err := view.FeeRate()
	switch {
	case errors.Is(err, chain.ErrUnavailable):
		e.logger.Warn().Err(err).Str("tx", ev.TxHash).Msg("Fee rate unavailable, using default")
		fee = e.d.DefaultFee()
	case err != nil:
		return num.Zero, fmt.Errorf("failed to read fee rate: %w", err)
	}
	res, err := fees.Reconstruct(fees.Input{
		SrcBalance: ev.SrcBalance,
		DstBalance: ev.DstBalance,
		Amount:     ev.Amount,
		Fee:        fee,
		Actual:     ev.Result,
	})
	if err != nil {
		return num.Zero, fmt.Errorf("failed to reconstruct fee: %w", err)
	}
	if res.Extra.Sign() == 0 {
		return num.Zero, nil
	}
	return num.ConvertTokenToDecimal(res.Extra, dstDecimals), nil
}

// applyReferral refreshes the referrer's position. A swap in a transaction
// whose latest Mint is an unsettled mint of the same pool with no deposit
// amounts is treated as a fee payout: the minted liquidity becomes the
// referral reward, the swap's own USD value is cleared and the Mint is
// settled so no later deposit claims it.
func (e *Engine) applyReferral(tx *store.Tx, view chain.Accessor, txn *entity.Transaction, pair *entity.Pair, swap *entity.Swap) error {
	supply, err := view.TotalSupply(pair.ID)
	if err != nil {
		return fmt.Errorf("failed to read LP supply: %w", err)
	}
	if err := e.updatePosition(tx, view, pair, swap.Referral, supply); err != nil {
		return err
	}

	id, ok := txn.LastMintID()
	if !ok {
		return nil
	}
	mint, err := tx.GetMint(id)
	if err != nil {
		return err
	}
	if mint.Pair != pair.ID || mint.Settled || !mint.HasZeroAmounts() {
		return nil
	}
	swap.ReferralReward = mint.Liquidity
	swap.AmountUSD = num.Zero
	mint.Settled = true
	tx.Save(mint)
	return nil
}
