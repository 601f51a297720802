package emiswap

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/emiswap/indexer/internal/chain"
	"github.com/emiswap/indexer/internal/entity"
	"github.com/emiswap/indexer/internal/num"
	"github.com/emiswap/indexer/internal/store"
)

// isBootstrapLock reports the pool's permanent minimum-liquidity mint.
func (e *Engine) isBootstrapLock(pair *entity.Pair, ev TransferLike) bool {
	return ev.From == entity.ZeroAddress &&
		ev.To == pair.ID &&
		ev.Value != nil &&
		ev.Value.Cmp(e.d.BootstrapLiquidity()) == 0
}

// OnTransferLike classifies an LP token transfer as a mint, a pending burn or
// a burn and refreshes the positions of both parties.
func (e *Engine) OnTransferLike(tx *store.Tx, view chain.Accessor, ev TransferLike) error {
	pair, err := tx.GetPair(ev.Address)
	if err != nil {
		return err
	}
	if e.isBootstrapLock(pair, ev) {
		return nil
	}

	if _, err := e.ensureUser(tx, ev.From); err != nil {
		return err
	}
	if _, err := e.ensureUser(tx, ev.To); err != nil {
		return err
	}

	totalSupply, err := view.TotalSupply(pair.ID)
	if err != nil {
		return fmt.Errorf("failed to read LP supply: %w", err)
	}

	value := num.ConvertTokenToDecimal(ev.Value, lpDecimals)
	txn, err := e.ensureTransaction(tx, ev.Meta)
	if err != nil {
		return err
	}

	if ev.From == entity.ZeroAddress && ev.To != pair.ID {
		pair.TotalSupply = pair.TotalSupply.Add(value)
		mint := &entity.Mint{
			ID:          txn.NextMintID(),
			Transaction: txn.ID,
			Timestamp:   txn.Timestamp,
			Pair:        pair.ID,
			To:          ev.To,
			Sender:      ev.TxFrom,
			Liquidity:   value,
		}
		txn.Mints = append(txn.Mints, mint.ID)
		tx.Save(mint)
	}

	// LP tokens sent to the pool ahead of a withdrawal
	if ev.To == pair.ID {
		burn := &entity.Burn{
			ID:          txn.NextBurnID(),
			Transaction: txn.ID,
			Timestamp:   txn.Timestamp,
			Pair:        pair.ID,
			To:          ev.To,
			Sender:      ev.TxFrom,
			Liquidity:   value,
			State:       entity.BurnPending,
		}
		txn.Burns = append(txn.Burns, burn.ID)
		tx.Save(burn)
	}

	if ev.To == entity.ZeroAddress {
		pair.TotalSupply = pair.TotalSupply.Sub(value)
		if err := e.burn(tx, txn, pair, ev, value); err != nil {
			return err
		}
	}
	tx.Save(pair)

	if ev.From != entity.ZeroAddress && ev.From != pair.ID {
		if err := e.updatePosition(tx, view, pair, ev.From, totalSupply); err != nil {
			return err
		}
	}
	if ev.To != entity.ZeroAddress && ev.To != pair.ID {
		if err := e.updatePosition(tx, view, pair, ev.To, totalSupply); err != nil {
			return err
		}
	}
	return nil
}

// burn completes the transaction's pending burn or opens a completed one.
func (e *Engine) burn(tx *store.Tx, txn *entity.Transaction, pair *entity.Pair, ev TransferLike, value decimal.Decimal) error {
	if id, ok := txn.LastBurnID(); ok {
		last, err := tx.GetBurn(id)
		if err != nil {
			return err
		}
		if last.NeedsComplete() && last.Pair == pair.ID {
			if err := last.Complete(value, ev.To); err != nil {
				return err
			}
			last.Sender = ev.TxFrom
			tx.Save(last)
			return nil
		}
	}

	b := &entity.Burn{
		ID:          txn.NextBurnID(),
		Transaction: txn.ID,
		Timestamp:   txn.Timestamp,
		Pair:        pair.ID,
		To:          ev.To,
		Sender:      ev.TxFrom,
		Liquidity:   value,
		State:       entity.BurnCompleted,
	}
	txn.Burns = append(txn.Burns, b.ID)
	tx.Save(b)
	return nil
}
