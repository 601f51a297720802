package entity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Transaction groups the mints, burns and swaps of one chain transaction.
type Transaction struct {
	ID          string   `json:"id"`
	BlockNumber uint64   `json:"blockNumber"`
	Timestamp   uint64   `json:"timestamp"`
	Mints       []string `json:"mints"`
	Burns       []string `json:"burns"`
	Swaps       []string `json:"swaps"`
}

func (t *Transaction) Kind() Kind       { return KindTransaction }
func (t *Transaction) EntityID() string { return t.ID }

// NextMintID returns the id the next appended Mint will take.
func (t *Transaction) NextMintID() string { return ChildID(t.ID, len(t.Mints)) }

// NextBurnID returns the id the next appended Burn will take.
func (t *Transaction) NextBurnID() string { return ChildID(t.ID, len(t.Burns)) }

// NextSwapID returns the id the next appended Swap will take.
func (t *Transaction) NextSwapID() string { return ChildID(t.ID, len(t.Swaps)) }

// LastBurnID returns the id of the most recent Burn, if any.
func (t *Transaction) LastBurnID() (string, bool) {
	if len(t.Burns) == 0 {
		return "", false
	}
	return t.Burns[len(t.Burns)-1], true
}

// LastMintID returns the id of the most recent Mint, if any.
func (t *Transaction) LastMintID() (string, bool) {
	if len(t.Mints) == 0 {
		return "", false
	}
	return t.Mints[len(t.Mints)-1], true
}

type Mint struct {
	ID          string          `json:"id"`
	Transaction string          `json:"transaction"`
	Timestamp   uint64          `json:"timestamp"`
	Pair        string          `json:"pair"`
	To          string          `json:"to"`
	Sender      string          `json:"sender"`
	Liquidity   decimal.Decimal `json:"liquidity"`
	Amount0     decimal.Decimal `json:"amount0"`
	Amount1     decimal.Decimal `json:"amount1"`
	AmountUSD   decimal.Decimal `json:"amountUSD"`
	LogIndex    uint            `json:"logIndex"`
	Settled     bool            `json:"settled"`
}

func (m *Mint) Kind() Kind       { return KindMint }
func (m *Mint) EntityID() string { return m.ID }

// HasZeroAmounts reports whether no deposit amounts were written.
func (m *Mint) HasZeroAmounts() bool {
	return m.Amount0.IsZero() && m.Amount1.IsZero()
}

// BurnState is the lifecycle state of a logical burn.
type BurnState string

const (
	// BurnPending marks a burn whose LP tokens were sent to the pool but not yet destroyed.
	BurnPending BurnState = "pending"
	// BurnCompleted marks a burn whose LP tokens were destroyed.
	BurnCompleted BurnState = "completed"
)

// ErrBurnAlreadyCompleted is returned when completing a burn twice.
var ErrBurnAlreadyCompleted = errors.New("burn already completed")

type Burn struct {
	ID          string          `json:"id"`
	Transaction string          `json:"transaction"`
	Timestamp   uint64          `json:"timestamp"`
	Pair        string          `json:"pair"`
	To          string          `json:"to"`
	Sender      string          `json:"sender"`
	Liquidity   decimal.Decimal `json:"liquidity"`
	Amount0     decimal.Decimal `json:"amount0"`
	Amount1     decimal.Decimal `json:"amount1"`
	AmountUSD   decimal.Decimal `json:"amountUSD"`
	LogIndex    uint            `json:"logIndex"`
	State       BurnState       `json:"state"`
	Settled     bool            `json:"settled"`
}

func (b *Burn) Kind() Kind       { return KindBurn }
func (b *Burn) EntityID() string { return b.ID }

// NeedsComplete reports whether the burn is still pending.
func (b *Burn) NeedsComplete() bool { return b.State == BurnPending }

// Complete moves a pending burn to completed, overwriting its liquidity.
func (b *Burn) Complete(liquidity decimal.Decimal, to string) error {
	if b.State != BurnPending {
		return fmt.Errorf("%w: %s", ErrBurnAlreadyCompleted, b.ID)
	}
	b.State = BurnCompleted
	b.Liquidity = liquidity
	b.To = to
	return nil
}

type Swap struct {
	ID                 string          `json:"id"`
	Transaction        string          `json:"transaction"`
	Timestamp          uint64          `json:"timestamp"`
	Pair               string          `json:"pair"`
	Sender             string          `json:"sender"`
	Src                string          `json:"src"`
	Dest               string          `json:"dest"`
	SrcAmount          decimal.Decimal `json:"srcAmount"`
	DestAmount         decimal.Decimal `json:"destAmount"`
	Amount0            decimal.Decimal `json:"amount0"`
	Amount1            decimal.Decimal `json:"amount1"`
	Referral           string          `json:"referral"`
	ReferralReward     decimal.Decimal `json:"referralReward"`
	AmountUSD          decimal.Decimal `json:"amountUSD"`
	LPExtraFeeInToken0 decimal.Decimal `json:"lpExtraFeeInToken0"`
	LPExtraFeeInToken1 decimal.Decimal `json:"lpExtraFeeInToken1"`
	LogIndex           uint            `json:"logIndex"`
}

func (s *Swap) Kind() Kind       { return KindSwap }
func (s *Swap) EntityID() string { return s.ID }
