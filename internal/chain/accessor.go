// Package chain provides read-only access to contract state at a fixed block.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
)

// ErrUnavailable is returned when a contract read reverted or returned no
// usable value. Transport failures are returned as other errors. Callers
// choose between a fallback and failing the event.
var ErrUnavailable = errors.New("chain read unavailable")

// Accessor answers contract reads against the state of one block.
type Accessor interface {
	BalanceOf(token, holder string) (*big.Int, error)
	TotalSupply(token string) (*big.Int, error)
	Symbol(token string) (string, error)
	Name(token string) (string, error)
	Decimals(token string) (int32, error)
	// PoolFor returns the registered pool for a token pair, or false if none.
	PoolFor(tokenA, tokenB string) (string, bool, error)
	// FeeRate returns the factory swap fee scaled by 1e18.
	FeeRate() (*big.Int, error)
}

// Reader pins an Accessor to a block.
type Reader interface {
	At(ctx context.Context, blockNumber uint64) Accessor
}

func unavailable(method, target string, err error) error {
	return fmt.Errorf("%w: %s(%s): %v", ErrUnavailable, method, target, err)
}
