package emiswap

import (
	"math/big"
)

// Meta is the chain context every decoded event carries. Addresses and
// hashes are lowercase hex.
type Meta struct {
	BlockNumber uint64
	Timestamp   uint64
	TxHash      string
	TxFrom      string
	LogIndex    uint
	Address     string
}

func (m Meta) Header() Meta { return m }

// Event is one decoded log, applied by Engine.Handle.
type Event interface {
	Header() Meta
	Name() string
}

// PoolCreated is the factory's Deployed event.
type PoolCreated struct {
	Meta
	Pair   string
	Token0 string
	Token1 string
}

func (PoolCreated) Name() string { return "Deployed" }

// TransferLike is an LP token transfer on a pool.
type TransferLike struct {
	Meta
	From  string
	To    string
	Value *big.Int
}

func (TransferLike) Name() string { return "Transfer" }

type DepositConfirmed struct {
	Meta
	Account string
	Amount  *big.Int
}

func (DepositConfirmed) Name() string { return "Deposited" }

type WithdrawalConfirmed struct {
	Meta
	Account string
	Amount  *big.Int
}

func (WithdrawalConfirmed) Name() string { return "Withdrawn" }

// SwapOccurred is a pool's Swapped event. Balances are the pool's raw
// balances before the trade.
type SwapOccurred struct {
	Meta
	Account     string
	Src         string
	Dst         string
	Amount      *big.Int
	Result      *big.Int
	SrcBalance  *big.Int
	DstBalance  *big.Int
	TotalSupply *big.Int
	Referral    string
}

func (SwapOccurred) Name() string { return "Swapped" }
