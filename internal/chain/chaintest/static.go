// Package chaintest provides a scripted chain accessor for tests.
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/emiswap/indexer/internal/chain"
)

type tokenMeta struct {
	symbol   string
	name     string
	decimals int32
}

// Static is an in-memory chain.Accessor whose state tests set directly.
// Unset reads return chain.ErrUnavailable.
type Static struct {
	mu        sync.Mutex
	balances  map[string]*big.Int
	supplies  map[string]*big.Int
	meta      map[string]tokenMeta
	pools     map[string]string
	fee       *big.Int
	calls     map[string]int
	failFee   bool
	faults    map[string]error
	blockSeen []uint64
}

var (
	_ chain.Accessor = (*Static)(nil)
	_ chain.Reader   = (*Static)(nil)
)

func New() *Static {
	return &Static{
		balances: make(map[string]*big.Int),
		supplies: make(map[string]*big.Int),
		meta:     make(map[string]tokenMeta),
		pools:    make(map[string]string),
		fee:      big.NewInt(3e15),
		calls:    make(map[string]int),
		faults:   make(map[string]error),
	}
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "/" + b
}

// At records the block and returns the same accessor.
func (s *Static) At(_ context.Context, blockNumber uint64) chain.Accessor {
	s.mu.Lock()
	s.blockSeen = append(s.blockSeen, blockNumber)
	s.mu.Unlock()
	return s
}

// Blocks returns the blocks passed to At, in order.
func (s *Static) Blocks() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.blockSeen...)
}

func (s *Static) SetToken(addr, symbol, name string, decimals int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[addr] = tokenMeta{symbol: symbol, name: name, decimals: decimals}
}

func (s *Static) SetBalance(token, holder string, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[token+"@"+holder] = new(big.Int).Set(amount)
}

// ClearBalance makes balanceOf(token, holder) unavailable.
func (s *Static) ClearBalance(token, holder string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.balances, token+"@"+holder)
}

func (s *Static) SetTotalSupply(token string, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supplies[token] = new(big.Int).Set(amount)
}

func (s *Static) SetPool(tokenA, tokenB, pool string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[pairKey(tokenA, tokenB)] = pool
}

func (s *Static) SetFee(fee *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fee = new(big.Int).Set(fee)
	s.failFee = false
}

// FailFee makes FeeRate unavailable.
func (s *Static) FailFee() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFee = true
}

// FailWith makes every call of method return err until it is cleared with a
// nil err. Method names are the ones Calls counts.
func (s *Static) FailWith(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, method)
		return
	}
	s.faults[method] = err
}

// Calls returns how many times a method was invoked.
func (s *Static) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *Static) missing(method, target string) error {
	return fmt.Errorf("%w: %s(%s) not scripted", chain.ErrUnavailable, method, target)
}

func (s *Static) BalanceOf(token, holder string) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["balanceOf"]++
	if err := s.faults["balanceOf"]; err != nil {
		return nil, err
	}
	b, ok := s.balances[token+"@"+holder]
	if !ok {
		return nil, s.missing("balanceOf", token+","+holder)
	}
	return new(big.Int).Set(b), nil
}

func (s *Static) TotalSupply(token string) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["totalSupply"]++
	if err := s.faults["totalSupply"]; err != nil {
		return nil, err
	}
	v, ok := s.supplies[token]
	if !ok {
		return nil, s.missing("totalSupply", token)
	}
	return new(big.Int).Set(v), nil
}

func (s *Static) Symbol(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["symbol"]++
	if err := s.faults["symbol"]; err != nil {
		return "", err
	}
	m, ok := s.meta[token]
	if !ok || m.symbol == "" {
		return "", s.missing("symbol", token)
	}
	return m.symbol, nil
}

func (s *Static) Name(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["name"]++
	if err := s.faults["name"]; err != nil {
		return "", err
	}
	m, ok := s.meta[token]
	if !ok || m.name == "" {
		return "", s.missing("name", token)
	}
	return m.name, nil
}

func (s *Static) Decimals(token string) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["decimals"]++
	if err := s.faults["decimals"]; err != nil {
		return 0, err
	}
	m, ok := s.meta[token]
	if !ok {
		return 0, s.missing("decimals", token)
	}
	return m.decimals, nil
}

func (s *Static) PoolFor(tokenA, tokenB string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["pools"]++
	if err := s.faults["pools"]; err != nil {
		return "", false, err
	}
	p, ok := s.pools[pairKey(tokenA, tokenB)]
	return p, ok, nil
}

func (s *Static) FeeRate() (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["fee"]++
	if err := s.faults["fee"]; err != nil {
		return nil, err
	}
	if s.failFee {
		return nil, s.missing("fee", "factory")
	}
	return new(big.Int).Set(s.fee), nil
}
