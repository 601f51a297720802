package emiswap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiswap/indexer/internal/chain"
	"github.com/emiswap/indexer/internal/chain/chaintest"
	"github.com/emiswap/indexer/internal/deployment"
	"github.com/emiswap/indexer/internal/entity"
	"github.com/emiswap/indexer/internal/store"
)

const (
	factoryAddr = "0x945316f2964ef5c6c84921b435a528dd1790e93a"
	wkcs        = "0x4446fc4eb47f2f6586f9faab68b3498f86c07521"
	usdt        = "0x0039f574ee5cc39bdd162e9a88e3eb1f111baf48"
	pool        = "0xaca93dc131fd962e82b09aa7a66d193b8ccbb860"
	alice       = "0x1111111111111111111111111111111111111111"
	bob         = "0x2222222222222222222222222222222222222222"
	zero        = entity.ZeroAddress

	txCreate = "0xa000000000000000000000000000000000000000000000000000000000000001"
	txMint   = "0xa000000000000000000000000000000000000000000000000000000000000002"
	txSwap   = "0xa000000000000000000000000000000000000000000000000000000000000003"
	txBurn   = "0xa000000000000000000000000000000000000000000000000000000000000004"
	txZap    = "0xa000000000000000000000000000000000000000000000000000000000000005"

	otherPool = "0xbbbb000000000000000000000000000000000001"
)

var errTimeout = fmt.Errorf("eth_call: %w", context.DeadlineExceeded)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// wei returns n * 10^18.
func wei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type harness struct {
	t       *testing.T
	backend *store.MemoryBackend
	chain   *chaintest.Static
	engine  *Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	m := deployment.Manifest{
		Name:           "test",
		Factory:        factoryAddr,
		ReferenceAsset: wkcs,
		AnchorPair:     pool,
		StablePairs:    []string{pool},
		Whitelist:      []string{wkcs, usdt},
		USDStable:      []string{usdt},
	}
	dep, err := m.Build()
	require.NoError(t, err)

	c := chaintest.New()
	c.SetToken(wkcs, "WKCS", "Wrapped KCS", 18)
	c.SetToken(usdt, "USDT", "Tether USD", 18)
	c.SetPool(wkcs, usdt, pool)

	return &harness{
		t:       t,
		backend: store.NewMemoryBackend(),
		chain:   c,
		engine:  New(dep, zerolog.Nop()),
	}
}

func (h *harness) apply(ev Event) error {
	tx := store.Begin(context.Background(), h.backend)
	if err := h.engine.Handle(tx, h.chain, ev); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

func (h *harness) mustApply(ev Event) {
	h.t.Helper()
	require.NoError(h.t, h.apply(ev))
}

func (h *harness) view() *store.Tx {
	return store.Begin(context.Background(), h.backend)
}

func meta(txHash string, block uint64, logIndex uint, address string) Meta {
	return Meta{
		BlockNumber: block,
		Timestamp:   1_620_000_000 + block*3,
		TxHash:      txHash,
		TxFrom:      alice,
		LogIndex:    logIndex,
		Address:     address,
	}
}

func (h *harness) createPool() {
	h.mustApply(PoolCreated{Meta: meta(txCreate, 1, 0, factoryAddr), Pair: pool, Token0: wkcs, Token1: usdt})
}

// addLiquidity mints 10 LP to alice against 100 WKCS and 1000 USDT.
func (h *harness) addLiquidity() {
	h.createPool()
	h.chain.SetTotalSupply(pool, wei(10))
	h.chain.SetBalance(pool, alice, wei(10))
	h.mustApply(TransferLike{Meta: meta(txMint, 2, 0, pool), From: zero, To: pool, Value: big.NewInt(1000)})
	h.mustApply(TransferLike{Meta: meta(txMint, 2, 1, pool), From: zero, To: alice, Value: wei(10)})

	h.chain.SetBalance(wkcs, pool, wei(100))
	h.chain.SetBalance(usdt, pool, wei(1000))
	h.mustApply(DepositConfirmed{Meta: meta(txMint, 2, 3, pool), Account: alice, Amount: wei(10)})
}

func (h *harness) swap(txHash string, referral string) {
	h.chain.SetBalance(wkcs, pool, wei(101))
	h.chain.SetBalance(usdt, pool, wei(991))
	h.mustApply(SwapOccurred{
		Meta:        meta(txHash, 3, 5, pool),
		Account:     alice,
		Src:         wkcs,
		Dst:         usdt,
		Amount:      wei(1),
		Result:      wei(9),
		SrcBalance:  wei(100),
		DstBalance:  wei(1000),
		TotalSupply: wei(10),
		Referral:    referral,
	})
}

func TestPoolCreated(t *testing.T) {
	h := newHarness(t)
	h.createPool()

	tx := h.view()
	pair, err := tx.GetPair(pool)
	require.NoError(t, err)
	assert.Equal(t, wkcs, pair.Token0)
	assert.Equal(t, usdt, pair.Token1)
	assert.Equal(t, uint64(1), pair.CreatedAtBlockNumber)

	factory, err := tx.GetFactory(factoryAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(1), factory.PairCount)

	token, err := tx.GetToken(usdt)
	require.NoError(t, err)
	assert.Equal(t, "USDT", token.Symbol)
	assert.Equal(t, int32(18), token.Decimals)
	assert.Equal(t, []string{pool}, token.AllPairs)

	_, err = tx.GetBundle(entity.BundleID)
	require.NoError(t, err)
}

func TestPoolCreatedWithUnreadableToken(t *testing.T) {
	h := newHarness(t)
	odd := "0x3333333333333333333333333333333333333333"
	other := "0x4444444444444444444444444444444444444444"
	h.mustApply(PoolCreated{Meta: meta(txCreate, 1, 0, factoryAddr), Pair: other, Token0: odd, Token1: wkcs})

	token, err := h.view().GetToken(odd)
	require.NoError(t, err)
	assert.Equal(t, "unknown", token.Symbol)
	assert.Equal(t, "unknown", token.Name)
	assert.Equal(t, int32(18), token.Decimals)
}

func TestBootstrapLockIgnored(t *testing.T) {
	h := newHarness(t)
	h.createPool()
	before := h.backend.Digest()

	h.mustApply(TransferLike{Meta: meta(txMint, 2, 0, pool), From: zero, To: pool, Value: big.NewInt(1000)})

	assert.Equal(t, before, h.backend.Digest())
	assert.Zero(t, h.chain.Calls("totalSupply"))
	_, ok, err := h.view().FindTransaction(txMint)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDepositSettlesMint(t *testing.T) {
	h := newHarness(t)
	h.addLiquidity()

	tx := h.view()
	txn, err := tx.GetTransaction(txMint)
	require.NoError(t, err)
	require.Len(t, txn.Mints, 1)
	assert.Empty(t, txn.Burns)

	mint, err := tx.GetMint(txn.Mints[0])
	require.NoError(t, err)
	assert.True(t, mint.Settled)
	assert.Equal(t, alice, mint.To)
	assert.Equal(t, uint(3), mint.LogIndex)
	assert.True(t, d("10").Equal(mint.Liquidity))
	assert.True(t, d("100").Equal(mint.Amount0))
	assert.True(t, d("1000").Equal(mint.Amount1))
	// valued before the first price exists: stable leg doubled
	assert.True(t, d("2000").Equal(mint.AmountUSD), "got %s", mint.AmountUSD)

	pair, err := tx.GetPair(pool)
	require.NoError(t, err)
	assert.True(t, d("10").Equal(pair.TotalSupply))
	assert.True(t, d("0.1").Equal(pair.Token0Price))
	assert.True(t, d("10").Equal(pair.Token1Price))
	assert.True(t, d("200").Equal(pair.ReserveETH))
	assert.True(t, d("2000").Equal(pair.ReserveUSD))
	assert.True(t, d("200").Equal(pair.TrackedReserveETH))
	assert.Equal(t, int64(1), pair.TxCount)
	assert.Len(t, pair.LiquidityPositions, 1)

	bundle, err := tx.GetBundle(entity.BundleID)
	require.NoError(t, err)
	assert.True(t, d("10").Equal(bundle.EthPrice))

	stable, err := tx.GetToken(usdt)
	require.NoError(t, err)
	assert.True(t, d("0.1").Equal(stable.DerivedETH))
	assert.True(t, d("1").Equal(stable.DerivedUSD))
	assert.True(t, d("1000").Equal(stable.TotalLiquidity))

	factory, err := tx.GetFactory(factoryAddr)
	require.NoError(t, err)
	assert.True(t, d("2000").Equal(factory.TotalLiquidityUSD))
	assert.True(t, d("200").Equal(factory.TotalLiquidityETH))

	pos, err := tx.GetLiquidityPosition(entity.PositionID(pool, alice))
	require.NoError(t, err)
	assert.True(t, d("1").Equal(pos.PoolOwnership))
}

func TestRepeatedSyncDoesNotDoubleCount(t *testing.T) {
	h := newHarness(t)
	h.addLiquidity()

	// second deposit with no reserve change
	h.chain.SetBalance(pool, bob, wei(1))
	h.mustApply(TransferLike{Meta: meta(txBurn, 4, 0, pool), From: zero, To: bob, Value: wei(1)})
	h.mustApply(DepositConfirmed{Meta: meta(txBurn, 4, 1, pool), Account: bob, Amount: wei(1)})

	factory, err := h.view().GetFactory(factoryAddr)
	require.NoError(t, err)
	assert.True(t, d("2000").Equal(factory.TotalLiquidityUSD), "got %s", factory.TotalLiquidityUSD)
}

func TestDepositsSettleInOrder(t *testing.T) {
	h := newHarness(t)
	h.createPool()
	h.chain.SetTotalSupply(pool, wei(3))
	h.chain.SetBalance(pool, alice, wei(1))
	h.chain.SetBalance(pool, bob, wei(2))

	h.mustApply(TransferLike{Meta: meta(txMint, 2, 0, pool), From: zero, To: alice, Value: wei(1)})
	h.mustApply(TransferLike{Meta: meta(txMint, 2, 1, pool), From: zero, To: bob, Value: wei(2)})

	h.chain.SetBalance(wkcs, pool, wei(100))
	h.chain.SetBalance(usdt, pool, wei(1000))
	h.mustApply(DepositConfirmed{Meta: meta(txMint, 2, 2, pool), Account: alice, Amount: wei(1)})

	h.chain.SetBalance(wkcs, pool, wei(150))
	h.chain.SetBalance(usdt, pool, wei(1500))
	h.mustApply(DepositConfirmed{Meta: meta(txMint, 2, 3, pool), Account: bob, Amount: wei(2)})

	tx := h.view()
	first, err := tx.GetMint(entity.ChildID(txMint, 0))
	require.NoError(t, err)
	second, err := tx.GetMint(entity.ChildID(txMint, 1))
	require.NoError(t, err)

	assert.Equal(t, bob, second.To)
	assert.True(t, first.Settled)
	assert.True(t, second.Settled)
	assert.True(t, d("100").Equal(first.Amount0))
	assert.True(t, d("50").Equal(second.Amount0))
	assert.True(t, d("500").Equal(second.Amount1))

	// a third confirmation has nothing left to settle
	err = h.apply(DepositConfirmed{Meta: meta(txMint, 2, 4, pool), Account: bob, Amount: wei(2)})
	assert.ErrorIs(t, err, store.ErrOrderingViolation)
}

func TestBurnTwoPhase(t *testing.T) {
	h := newHarness(t)
	h.addLiquidity()

	h.chain.SetBalance(pool, alice, wei(6))
	h.mustApply(TransferLike{Meta: meta(txBurn, 4, 0, pool), From: alice, To: pool, Value: wei(4)})
	h.chain.SetTotalSupply(pool, wei(7))
	h.mustApply(TransferLike{Meta: meta(txBurn, 4, 1, pool), From: pool, To: zero, Value: wei(3)})

	tx := h.view()
	txn, err := tx.GetTransaction(txBurn)
	require.NoError(t, err)
	require.Len(t, txn.Burns, 1)

	burn, err := tx.GetBurn(txn.Burns[0])
	require.NoError(t, err)
	assert.False(t, burn.NeedsComplete())
	assert.Equal(t, entity.BurnCompleted, burn.State)
	assert.True(t, d("3").Equal(burn.Liquidity))
	assert.Equal(t, zero, burn.To)
	assert.False(t, burn.Settled)

	pair, err := tx.GetPair(pool)
	require.NoError(t, err)
	assert.True(t, d("7").Equal(pair.TotalSupply))

	pos, err := tx.GetLiquidityPosition(entity.PositionID(pool, alice))
	require.NoError(t, err)
	assert.True(t, d("6").Equal(pos.LiquidityTokenBalance))
}

func TestWithdrawalSettlesBurn(t *testing.T) {
	h := newHarness(t)
	h.addLiquidity()

	h.chain.SetBalance(pool, alice, wei(6))
	h.mustApply(TransferLike{Meta: meta(txBurn, 4, 0, pool), From: alice, To: pool, Value: wei(4)})
	h.chain.SetTotalSupply(pool, wei(6))
	h.mustApply(TransferLike{Meta: meta(txBurn, 4, 1, pool), From: pool, To: zero, Value: wei(4)})

	h.chain.SetBalance(wkcs, pool, wei(60))
	h.chain.SetBalance(usdt, pool, wei(600))
	h.mustApply(WithdrawalConfirmed{Meta: meta(txBurn, 4, 2, pool), Account: alice, Amount: wei(4)})

	tx := h.view()
	burn, err := tx.GetBurn(entity.ChildID(txBurn, 0))
	require.NoError(t, err)
	assert.True(t, burn.Settled)
	assert.True(t, d("40").Equal(burn.Amount0))
	assert.True(t, d("400").Equal(burn.Amount1))
	assert.True(t, d("800").Equal(burn.AmountUSD), "got %s", burn.AmountUSD)

	token, err := tx.GetToken(wkcs)
	require.NoError(t, err)
	assert.True(t, d("60").Equal(token.TotalLiquidity))
	assert.Equal(t, int64(2), token.TxCount)

	factory, err := tx.GetFactory(factoryAddr)
	require.NoError(t, err)
	assert.True(t, d("1200").Equal(factory.TotalLiquidityUSD), "got %s", factory.TotalLiquidityUSD)
}

func TestSwap(t *testing.T) {
	h := newHarness(t)
	h.addLiquidity()
	h.swap(txSwap, zero)

	tx := h.view()
	swap, err := tx.GetSwap(entity.ChildID(txSwap, 0))
	require.NoError(t, err)
	assert.Equal(t, wkcs, swap.Src)
	assert.Equal(t, usdt, swap.Dest)
	assert.True(t, d("1").Equal(swap.Amount0))
	assert.True(t, d("9").Equal(swap.Amount1))
	// thin pool: tracked volume is gated, derived value is used
	assert.True(t, d("9.5").Equal(swap.AmountUSD), "got %s", swap.AmountUSD)
	assert.True(t, d("0.871580343970612988").Equal(swap.LPExtraFeeInToken1), "got %s", swap.LPExtraFeeInToken1)
	assert.True(t, swap.LPExtraFeeInToken0.IsZero())
	assert.True(t, swap.ReferralReward.IsZero())

	pair, err := tx.GetPair(pool)
	require.NoError(t, err)
	assert.True(t, d("9.5").Equal(pair.VolumeUSD))
	assert.True(t, d("0.871580343970612988").Equal(pair.LPExtraFeeInToken1))
	assert.True(t, d("101").Equal(pair.Reserve0))
	assert.True(t, d("991").Equal(pair.Reserve1))

	factory, err := tx.GetFactory(factoryAddr)
	require.NoError(t, err)
	assert.True(t, factory.TotalVolumeUSD.IsZero())
	assert.Equal(t, int64(2), factory.TxCount)

	src, err := tx.GetToken(wkcs)
	require.NoError(t, err)
	assert.True(t, d("101").Equal(src.TotalLiquidity))
	dst, err := tx.GetToken(usdt)
	require.NoError(t, err)
	assert.True(t, d("991").Equal(dst.TotalLiquidity))
	assert.True(t, d("9").Equal(dst.TradeVolume))

	user, err := tx.GetUser(alice)
	require.NoError(t, err)
	assert.True(t, d("9.5").Equal(user.USDSwapped))

	day, err := tx.GetPairDayData(entity.BucketID(pool, 1_620_000_009/86400))
	require.NoError(t, err)
	assert.True(t, d("1").Equal(day.DailyVolumeToken0))
	assert.Equal(t, int64(2), day.DailyTxns)
}

func TestSwapUsesDefaultFeeWhenUnavailable(t *testing.T) {
	h := newHarness(t)
	h.addLiquidity()
	h.chain.FailFee()
	h.swap(txSwap, zero)

	swap, err := h.view().GetSwap(entity.ChildID(txSwap, 0))
	require.NoError(t, err)
	assert.True(t, d("0.871580343970612988").Equal(swap.LPExtraFeeInToken1))
	assert.Equal(t, 1, h.chain.Calls("fee"))
}

func TestReferralFeeMint(t *testing.T) {
	h := newHarness(t)
	h.addLiquidity()

	h.chain.SetTotalSupply(pool, wei(11))
	h.chain.SetBalance(pool, bob, wei(1))
	h.mustApply(TransferLike{Meta: meta(txSwap, 3, 4, pool), From: zero, To: bob, Value: wei(1)})
	h.swap(txSwap, bob)

	tx := h.view()
	swap, err := tx.GetSwap(entity.ChildID(txSwap, 0))
	require.NoError(t, err)
	assert.True(t, d("1").Equal(swap.ReferralReward))
	assert.True(t, swap.AmountUSD.IsZero())

	pos, err := tx.GetLiquidityPosition(entity.PositionID(pool, bob))
	require.NoError(t, err)
	assert.True(t, d("1").Equal(pos.LiquidityTokenBalance))

	// pool volume still counts the trade
	pair, err := tx.GetPair(pool)
	require.NoError(t, err)
	assert.True(t, d("9.5").Equal(pair.VolumeUSD))

	mint, err := tx.GetMint(entity.ChildID(txSwap, 0))
	require.NoError(t, err)
	assert.True(t, mint.Settled)
}

func TestZapSettlesDepositMint(t *testing.T) {
	h := newHarness(t)
	h.addLiquidity()

	// referral fee mint, then the swap that pays it
	h.chain.SetTotalSupply(pool, wei(11))
	h.chain.SetBalance(pool, bob, wei(1))
	h.mustApply(TransferLike{Meta: meta(txZap, 3, 4, pool), From: zero, To: bob, Value: wei(1)})
	h.swap(txZap, bob)

	// deposit of the swapped funds in the same transaction
	h.chain.SetTotalSupply(pool, wei(21))
	h.chain.SetBalance(pool, alice, wei(20))
	h.mustApply(TransferLike{Meta: meta(txZap, 3, 6, pool), From: zero, To: alice, Value: wei(10)})
	h.chain.SetBalance(wkcs, pool, wei(201))
	h.chain.SetBalance(usdt, pool, wei(1991))
	h.mustApply(DepositConfirmed{Meta: meta(txZap, 3, 7, pool), Account: alice, Amount: wei(10)})

	tx := h.view()
	txn, err := tx.GetTransaction(txZap)
	require.NoError(t, err)
	require.Len(t, txn.Mints, 2)

	referral, err := tx.GetMint(txn.Mints[0])
	require.NoError(t, err)
	assert.Equal(t, bob, referral.To)
	assert.True(t, referral.Settled)
	assert.True(t, referral.Amount0.IsZero(), "got %s", referral.Amount0)
	assert.True(t, referral.Amount1.IsZero(), "got %s", referral.Amount1)

	deposit, err := tx.GetMint(txn.Mints[1])
	require.NoError(t, err)
	assert.Equal(t, alice, deposit.To)
	assert.True(t, deposit.Settled)
	assert.True(t, d("10").Equal(deposit.Liquidity))
	assert.True(t, d("100").Equal(deposit.Amount0), "got %s", deposit.Amount0)
	assert.True(t, d("1000").Equal(deposit.Amount1), "got %s", deposit.Amount1)

	swap, err := tx.GetSwap(entity.ChildID(txZap, 0))
	require.NoError(t, err)
	assert.True(t, d("1").Equal(swap.ReferralReward))
}

func TestDepositDoesNotSettleOtherPoolMint(t *testing.T) {
	h := newHarness(t)
	h.addLiquidity()
	h.mustApply(PoolCreated{Meta: meta(txCreate, 2, 9, factoryAddr), Pair: otherPool, Token0: wkcs, Token1: usdt})

	h.chain.SetTotalSupply(pool, wei(11))
	h.chain.SetBalance(pool, bob, wei(1))
	h.mustApply(TransferLike{Meta: meta(txZap, 3, 0, pool), From: zero, To: bob, Value: wei(1)})

	err := h.apply(DepositConfirmed{Meta: meta(txZap, 3, 1, otherPool), Account: bob, Amount: wei(1)})
	assert.ErrorIs(t, err, store.ErrOrderingViolation)

	mint, err := h.view().GetMint(entity.ChildID(txZap, 0))
	require.NoError(t, err)
	assert.False(t, mint.Settled)
}

func TestTransportFailureFailsEvent(t *testing.T) {
	h := newHarness(t)
	h.chain.FailWith("decimals", errTimeout)
	before := h.backend.Digest()

	err := h.apply(PoolCreated{Meta: meta(txCreate, 1, 0, factoryAddr), Pair: pool, Token0: wkcs, Token1: usdt})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, chain.ErrUnavailable)
	assert.Equal(t, before, h.backend.Digest(), "no fallback metadata is stored")

	// the retry reads the real decimals
	h.chain.FailWith("decimals", nil)
	h.createPool()
	token, err := h.view().GetToken(usdt)
	require.NoError(t, err)
	assert.Equal(t, int32(18), token.Decimals)
	assert.Equal(t, "USDT", token.Symbol)
}

func TestSwapFeeTransportFailureFailsEvent(t *testing.T) {
	h := newHarness(t)
	h.addLiquidity()
	h.chain.FailWith("fee", errTimeout)

	h.chain.SetBalance(wkcs, pool, wei(101))
	h.chain.SetBalance(usdt, pool, wei(991))
	err := h.apply(SwapOccurred{
		Meta:        meta(txSwap, 3, 5, pool),
		Account:     alice,
		Src:         wkcs,
		Dst:         usdt,
		Amount:      wei(1),
		Result:      wei(9),
		SrcBalance:  wei(100),
		DstBalance:  wei(1000),
		TotalSupply: wei(10),
		Referral:    zero,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, ok, err := h.view().FindSwap(entity.ChildID(txSwap, 0))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnavailableReserveFailsEvent(t *testing.T) {
	h := newHarness(t)
	h.createPool()
	h.chain.SetTotalSupply(pool, wei(10))
	h.chain.SetBalance(pool, alice, wei(10))
	h.mustApply(TransferLike{Meta: meta(txMint, 2, 1, pool), From: zero, To: alice, Value: wei(10)})
	before := h.backend.Digest()

	err := h.apply(DepositConfirmed{Meta: meta(txMint, 2, 3, pool), Account: alice, Amount: wei(10)})
	require.Error(t, err)
	assert.ErrorIs(t, err, chain.ErrUnavailable)

	var ee *EventError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "Deposited", ee.Event)
	assert.Equal(t, txMint, ee.TxHash)
	assert.Equal(t, before, h.backend.Digest())
}

func TestOrderingViolations(t *testing.T) {
	h := newHarness(t)
	h.createPool()

	err := h.apply(DepositConfirmed{Meta: meta(txMint, 2, 0, pool), Account: alice, Amount: wei(1)})
	assert.ErrorIs(t, err, store.ErrOrderingViolation)

	err = h.apply(TransferLike{Meta: meta(txMint, 2, 0, bob), From: zero, To: alice, Value: wei(1)})
	assert.ErrorIs(t, err, store.ErrOrderingViolation)
}

func TestReplayIsDeterministic(t *testing.T) {
	run := func() string {
		h := newHarness(t)
		h.addLiquidity()
		h.swap(txSwap, zero)
		h.chain.SetBalance(pool, alice, wei(6))
		h.mustApply(TransferLike{Meta: meta(txBurn, 4, 0, pool), From: alice, To: pool, Value: wei(4)})
		h.mustApply(TransferLike{Meta: meta(txBurn, 4, 1, pool), From: pool, To: zero, Value: wei(4)})
		h.chain.SetBalance(wkcs, pool, wei(60))
		h.chain.SetBalance(usdt, pool, wei(600))
		h.mustApply(WithdrawalConfirmed{Meta: meta(txBurn, 4, 2, pool), Account: alice, Amount: wei(4)})
		return h.backend.Digest()
	}

	first := run()
	assert.NotEmpty(t, first)
	assert.Equal(t, first, run())
}
