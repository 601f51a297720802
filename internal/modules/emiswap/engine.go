// Package emiswap applies decoded EmiSwap events to the entity store.
//
// Events arrive one at a time in chain order. Each handler runs inside a
// single store.Tx, so an event either lands completely or not at all. Liquidity
// actions are split across several logs of one transaction: LP token
// transfers open Mint and Burn records and the pool's Deposited and Withdrawn
// events later fill in their amounts.
package emiswap

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/emiswap/indexer/internal/chain"
	"github.com/emiswap/indexer/internal/deployment"
	"github.com/emiswap/indexer/internal/entity"
	"github.com/emiswap/indexer/internal/num"
	"github.com/emiswap/indexer/internal/pricing"
	"github.com/emiswap/indexer/internal/rollup"
	"github.com/emiswap/indexer/internal/store"
	"github.com/emiswap/indexer/internal/valuation"
)

// lpDecimals is the decimal exponent of every pool's LP token.
const lpDecimals = 18

const unknownMetadata = "unknown"

// EventError reports a failure to apply one event.
type EventError struct {
	Event    string
	TxHash   string
	LogIndex uint
	Err      error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("failed to apply %s in tx %s log %d: %v", e.Event, e.TxHash, e.LogIndex, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

type Engine struct {
	d       *deployment.Deployment
	logger  zerolog.Logger
	pricing *pricing.Engine
	policy  *valuation.Policy
	rollup  *rollup.Aggregator
}

func New(d *deployment.Deployment, logger zerolog.Logger) *Engine {
	return &Engine{
		d:       d,
		logger:  logger.With().Str("component", "emiswap").Logger(),
		pricing: pricing.New(d),
		policy:  valuation.New(d),
		rollup:  rollup.New(),
	}
}

// Deployment returns the configuration the engine was built with.
func (e *Engine) Deployment() *deployment.Deployment { return e.d }

// Handle applies one decoded event.
func (e *Engine) Handle(tx *store.Tx, view chain.Accessor, ev Event) error {
	m := ev.Header()
	e.logger.Debug().
		Str("event", ev.Name()).
		Str("pair", m.Address).
		Str("tx", m.TxHash).
		Uint64("block", m.BlockNumber).
		Uint("log_index", m.LogIndex).
		Msg("Applying event")

	var err error
	switch v := ev.(type) {
	case PoolCreated:
		err = e.OnPoolCreated(tx, view, v)
	case TransferLike:
		err = e.OnTransferLike(tx, view, v)
	case DepositConfirmed:
		err = e.OnDepositConfirmed(tx, view, v)
	case WithdrawalConfirmed:
		err = e.OnWithdrawalConfirmed(tx, view, v)
	case SwapOccurred:
		err = e.OnSwap(tx, view, v)
	default:
		err = fmt.Errorf("unsupported event type %T", ev)
	}
	if err != nil {
		return &EventError{Event: ev.Name(), TxHash: m.TxHash, LogIndex: m.LogIndex, Err: err}
	}
	return nil
}

// OnPoolCreated registers a new pool and its tokens.
func (e *Engine) OnPoolCreated(tx *store.Tx, view chain.Accessor, ev PoolCreated) error {
	pairID := entity.NormalizeAddress(ev.Pair)
	if _, ok, err := tx.FindPair(pairID); err != nil {
		return err
	} else if ok {
		e.logger.Warn().Str("pair", pairID).Msg("Pool already registered")
		return nil
	}

	factory, err := e.ensureFactory(tx)
	if err != nil {
		return err
	}
	if _, err := e.ensureBundle(tx); err != nil {
		return err
	}

	token0, err := e.ensureToken(tx, view, entity.NormalizeAddress(ev.Token0))
	if err != nil {
		return err
	}
	token1, err := e.ensureToken(tx, view, entity.NormalizeAddress(ev.Token1))
	if err != nil {
		return err
	}

	pair := &entity.Pair{
		ID:                   pairID,
		Token0:               token0.ID,
		Token1:               token1.ID,
		CreatedAtTimestamp:   ev.Timestamp,
		CreatedAtBlockNumber: ev.BlockNumber,
	}
	token0.AddPair(pairID)
	token1.AddPair(pairID)
	factory.PairCount++

	tx.Save(pair)
	tx.Save(token0)
	tx.Save(token1)
	tx.Save(factory)

	e.logger.Info().
		Str("pair", pairID).
		Str("token0", token0.Symbol).
		Str("token1", token1.Symbol).
		Uint64("block", ev.BlockNumber).
		Msg("Pool created")
	return nil
}

func (e *Engine) ensureFactory(tx *store.Tx) (*entity.Factory, error) {
	f, ok, err := tx.FindFactory(e.d.Factory())
	if err != nil {
		return nil, err
	}
	if !ok {
		f = &entity.Factory{ID: e.d.Factory()}
		tx.Save(f)
	}
	return f, nil
}

func (e *Engine) ensureBundle(tx *store.Tx) (*entity.Bundle, error) {
	b, ok, err := tx.FindBundle(entity.BundleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		b = &entity.Bundle{ID: entity.BundleID}
		tx.Save(b)
	}
	return b, nil
}

func (e *Engine) ensureToken(tx *store.Tx, view chain.Accessor, addr string) (*entity.Token, error) {
	t, ok, err := tx.FindToken(addr)
	if err != nil || ok {
		return t, err
	}

	t = &entity.Token{ID: addr}
	if native, ok := e.d.Native(); ok && native.Address == addr {
		t.Symbol = native.Symbol
		t.Name = native.Name
		t.Decimals = native.Decimals
		return t, nil
	}

	if t.Symbol, err = e.metadata(view.Symbol, addr); err != nil {
		return nil, err
	}
	if t.Name, err = e.metadata(view.Name, addr); err != nil {
		return nil, err
	}
	t.Decimals, err = view.Decimals(addr)
	switch {
	case errors.Is(err, chain.ErrUnavailable):
		e.logger.Warn().Err(err).Str("token", addr).Msg("Decimals unavailable, assuming 18")
		t.Decimals = 18
	case err != nil:
		return nil, err
	}
	return t, nil
}

func (e *Engine) metadata(read func(string) (string, error), addr string) (string, error) {
	v, err := read(addr)
	if errors.Is(err, chain.ErrUnavailable) {
		e.logger.Debug().Err(err).Str("token", addr).Msg("Token metadata unavailable")
		return unknownMetadata, nil
	}
	return v, err
}

func (e *Engine) ensureUser(tx *store.Tx, addr string) (*entity.User, error) {
	u, ok, err := tx.FindUser(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		u = &entity.User{ID: addr}
		tx.Save(u)
	}
	return u, nil
}

func (e *Engine) ensureTransaction(tx *store.Tx, m Meta) (*entity.Transaction, error) {
	t, ok, err := tx.FindTransaction(m.TxHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		t = &entity.Transaction{
			ID:          m.TxHash,
			BlockNumber: m.BlockNumber,
			Timestamp:   m.Timestamp,
			Mints:       []string{},
			Burns:       []string{},
			Swaps:       []string{},
		}
	}
	tx.Save(t)
	return t, nil
}

// updatePosition refreshes a holder's LP balance and pool share.
func (e *Engine) updatePosition(tx *store.Tx, view chain.Accessor, pair *entity.Pair, holder string, totalSupply *big.Int) error {
	id := entity.PositionID(pair.ID, holder)
	pos, ok, err := tx.FindLiquidityPosition(id)
	if err != nil {
		return err
	}
	if !ok {
		pos = &entity.LiquidityPosition{ID: id, Pair: pair.ID, User: holder}
		pair.AddPosition(id)
		tx.Save(pair)
	}

	balance, err := view.BalanceOf(pair.ID, holder)
	if err != nil {
		return fmt.Errorf("failed to read LP balance of %s: %w", holder, err)
	}
	pos.LiquidityTokenBalance = num.ConvertTokenToDecimal(balance, lpDecimals)
	pos.PoolOwnership = num.SafeDiv(pos.LiquidityTokenBalance, num.ConvertTokenToDecimal(totalSupply, lpDecimals))
	tx.Save(pos)
	return nil
}

type reserves struct {
	raw0, raw1 *big.Int
}

// readReserves reads the pool's live token balances. A native-coin side is
// read from the configured balance contract.
func (e *Engine) readReserves(view chain.Accessor, pair *entity.Pair) (reserves, error) {
	r0, err := e.poolBalance(view, pair.ID, pair.Token0)
	if err != nil {
		return reserves{}, err
	}
	r1, err := e.poolBalance(view, pair.ID, pair.Token1)
	if err != nil {
		return reserves{}, err
	}
	return reserves{raw0: r0, raw1: r1}, nil
}

func (e *Engine) poolBalance(view chain.Accessor, pool, token string) (*big.Int, error) {
	source := token
	if native, ok := e.d.Native(); ok && native.Address == token {
		source = native.BalanceContract
	}
	b, err := view.BalanceOf(source, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to read reserve of %s: %w", token, err)
	}
	return b, nil
}

// liquidityUSD values a reserve movement, falling back to stable-only
// valuation while the reference asset has no USD price.
func (e *Engine) liquidityUSD(a0, a1 valuation.Leg, ethPrice decimal.Decimal) decimal.Decimal {
	if ethPrice.IsZero() {
		return e.policy.TrackedLiquidityUSDStable(a0, a1)
	}
	return e.policy.TrackedLiquidityUSD(a0, a1, ethPrice)
}
