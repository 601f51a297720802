package emiswap

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/emiswap/indexer/internal/chain"
	"github.com/emiswap/indexer/internal/entity"
	"github.com/emiswap/indexer/internal/num"
	"github.com/emiswap/indexer/internal/store"
	"github.com/emiswap/indexer/internal/valuation"
)

// delta is a reserve movement valued in USD.
type delta struct {
	amount0, amount1 decimal.Decimal
	amountUSD        decimal.Decimal
}

// OnDepositConfirmed settles the transaction's oldest unsettled Mint of the
// pool with the reserve increase since the last sync.
func (e *Engine) OnDepositConfirmed(tx *store.Tx, view chain.Accessor, ev DepositConfirmed) error {
	txn, err := tx.GetTransaction(ev.TxHash)
	if err != nil {
		return err
	}
	mint, err := e.oldestUnsettledMint(tx, txn, ev.Address)
	if err != nil {
		return err
	}

	d, err := e.applyLiquidity(tx, view, ev.Meta, 1)
	if err != nil {
		return err
	}

	mint.Sender = ev.TxFrom
	mint.Amount0 = d.amount0
	mint.Amount1 = d.amount1
	mint.AmountUSD = d.amountUSD
	mint.LogIndex = ev.LogIndex
	mint.Settled = true
	tx.Save(mint)
	return nil
}

// OnWithdrawalConfirmed settles the transaction's oldest unsettled Burn of
// the pool with the reserve decrease since the last sync.
func (e *Engine) OnWithdrawalConfirmed(tx *store.Tx, view chain.Accessor, ev WithdrawalConfirmed) error {
	txn, err := tx.GetTransaction(ev.TxHash)
	if err != nil {
		return err
	}
	burn, err := e.oldestUnsettledBurn(tx, txn, ev.Address)
	if err != nil {
		return err
	}

	d, err := e.applyLiquidity(tx, view, ev.Meta, -1)
	if err != nil {
		return err
	}

	burn.Sender = ev.TxFrom
	burn.Amount0 = d.amount0
	burn.Amount1 = d.amount1
	burn.AmountUSD = d.amountUSD
	burn.LogIndex = ev.LogIndex
	burn.Settled = true
	tx.Save(burn)
	return nil
}

// applyLiquidity measures the reserve change of a deposit (sign 1) or a
// withdrawal (sign -1), updates token and counter state, then resyncs the
// pool and its buckets. Amounts are returned positive for either direction.
func (e *Engine) applyLiquidity(tx *store.Tx, view chain.Accessor, m Meta, sign int) (delta, error) {
	pair, err := tx.GetPair(m.Address)
	if err != nil {
		return delta{}, err
	}
	token0, err := tx.GetToken(pair.Token0)
	if err != nil {
		return delta{}, err
	}
	token1, err := tx.GetToken(pair.Token1)
	if err != nil {
		return delta{}, err
	}
	factory, err := tx.GetFactory(e.d.Factory())
	if err != nil {
		return delta{}, err
	}
	bundle, err := tx.GetBundle(entity.BundleID)
	if err != nil {
		return delta{}, err
	}

	r, err := e.readReserves(view, pair)
	if err != nil {
		return delta{}, err
	}
	amount0 := num.ConvertTokenToDecimal(r.raw0, token0.Decimals).Sub(pair.Reserve0)
	amount1 := num.ConvertTokenToDecimal(r.raw1, token1.Decimals).Sub(pair.Reserve1)
	if sign < 0 {
		amount0 = amount0.Neg()
		amount1 = amount1.Neg()
		token0.TotalLiquidity = token0.TotalLiquidity.Sub(amount0)
		token1.TotalLiquidity = token1.TotalLiquidity.Sub(amount1)
	} else {
		token0.TotalLiquidity = token0.TotalLiquidity.Add(amount0)
		token1.TotalLiquidity = token1.TotalLiquidity.Add(amount1)
	}

	token0.TxCount++
	token1.TxCount++
	pair.TxCount++
	factory.TxCount++

	amountUSD := e.liquidityUSD(
		valuation.Leg{Amount: amount0, Token: token0},
		valuation.Leg{Amount: amount1, Token: token1},
		bundle.EthPrice,
	)

	tx.Save(token0)
	tx.Save(token1)
	tx.Save(pair)
	tx.Save(factory)

	if err := e.resync(tx, view, pair, r); err != nil {
		return delta{}, err
	}
	if _, err := e.snapshot(tx, pair, m.Timestamp); err != nil {
		return delta{}, err
	}
	return delta{amount0: amount0, amount1: amount1, amountUSD: amountUSD}, nil
}

// oldestUnsettledMint returns the first Mint of the pool in the transaction
// that no deposit or referral payout has settled yet.
func (e *Engine) oldestUnsettledMint(tx *store.Tx, txn *entity.Transaction, pairID string) (*entity.Mint, error) {
	for _, id := range txn.Mints {
		m, err := tx.GetMint(id)
		if err != nil {
			return nil, err
		}
		if m.Pair == pairID && !m.Settled {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: no unsettled mint of pair %s in transaction %s", store.ErrOrderingViolation, pairID, txn.ID)
}

func (e *Engine) oldestUnsettledBurn(tx *store.Tx, txn *entity.Transaction, pairID string) (*entity.Burn, error) {
	for _, id := range txn.Burns {
		b, err := tx.GetBurn(id)
		if err != nil {
			return nil, err
		}
		if b.Pair == pairID && !b.Settled {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: no unsettled burn of pair %s in transaction %s", store.ErrOrderingViolation, pairID, txn.ID)
}
