package chain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/emiswap/indexer/internal/rpc"
)

const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

// Some tokens return bytes32 for symbol and name.
const erc20BytesABIJSON = `[
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"bytes32"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"bytes32"}],"type":"function"}
]`

const factoryABIJSON = `[
	{"constant":true,"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"name":"pools","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"fee","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

var (
	erc20ABI      = mustABI(erc20ABIJSON)
	erc20BytesABI = mustABI(erc20BytesABIJSON)
	factoryABI    = mustABI(factoryABIJSON)

	// Returned by broken tokens in place of a bytes32 symbol.
	nullBytes32 = common.LeftPadBytes([]byte{1}, 32)
)

func mustABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI: %v", err))
	}
	return parsed
}

// Caller executes eth_call at a block. *rpc.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, to common.Address, data []byte, blockNumber uint64) ([]byte, error)
}

// ContractReader reads ERC20 and factory state over JSON-RPC.
type ContractReader struct {
	caller  Caller
	factory common.Address
}

var _ Reader = (*ContractReader)(nil)

func NewContractReader(caller Caller, factory string) *ContractReader {
	return &ContractReader{caller: caller, factory: common.HexToAddress(factory)}
}

func (r *ContractReader) At(ctx context.Context, blockNumber uint64) Accessor {
	return &blockView{ctx: ctx, block: blockNumber, r: r}
}

type blockView struct {
	ctx   context.Context
	block uint64
	r     *ContractReader
}

func (v *blockView) call(contract abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	out, err := v.r.caller.CallContract(v.ctx, to, data, v.block)
	if err != nil {
		// only a revert is an answer from the chain; anything else is retried
		if rpc.IsRevert(err) {
			return nil, unavailable(method, to.Hex(), err)
		}
		return nil, fmt.Errorf("failed to call %s(%s) at block %d: %w", method, to.Hex(), v.block, err)
	}
	if len(out) == 0 {
		return nil, unavailable(method, to.Hex(), errors.New("empty return data"))
	}
	values, err := contract.Unpack(method, out)
	if err != nil || len(values) == 0 {
		return nil, unavailable(method, to.Hex(), fmt.Errorf("failed to unpack: %v", err))
	}
	return values, nil
}

func (v *blockView) uint256(contract abi.ABI, to common.Address, method string, args ...interface{}) (*big.Int, error) {
	values, err := v.call(contract, to, method, args...)
	if err != nil {
		return nil, err
	}
	n, ok := values[0].(*big.Int)
	if !ok {
		return nil, unavailable(method, to.Hex(), fmt.Errorf("unexpected type %T", values[0]))
	}
	return n, nil
}

func (v *blockView) BalanceOf(token, holder string) (*big.Int, error) {
	return v.uint256(erc20ABI, common.HexToAddress(token), "balanceOf", common.HexToAddress(holder))
}

func (v *blockView) TotalSupply(token string) (*big.Int, error) {
	return v.uint256(erc20ABI, common.HexToAddress(token), "totalSupply")
}

func (v *blockView) Symbol(token string) (string, error) {
	return v.text(token, "symbol")
}

func (v *blockView) Name(token string) (string, error) {
	return v.text(token, "name")
}

// text reads a string getter, falling back to the bytes32 form.
func (v *blockView) text(token, method string) (string, error) {
	to := common.HexToAddress(token)
	values, err := v.call(erc20ABI, to, method)
	switch {
	case err == nil:
		if s, ok := values[0].(string); ok {
			return s, nil
		}
	case !errors.Is(err, ErrUnavailable):
		return "", err
	}

	values, err = v.call(erc20BytesABI, to, method)
	if err != nil {
		return "", err
	}
	raw, ok := values[0].([32]byte)
	if !ok || bytes.Equal(raw[:], nullBytes32) {
		return "", unavailable(method, to.Hex(), errors.New("no usable value"))
	}
	return string(bytes.TrimRight(raw[:], "\x00")), nil
}

func (v *blockView) Decimals(token string) (int32, error) {
	to := common.HexToAddress(token)
	values, err := v.call(erc20ABI, to, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := values[0].(uint8)
	if !ok {
		return 0, unavailable("decimals", to.Hex(), fmt.Errorf("unexpected type %T", values[0]))
	}
	return int32(d), nil
}

func (v *blockView) PoolFor(tokenA, tokenB string) (string, bool, error) {
	values, err := v.call(factoryABI, v.r.factory, "pools", common.HexToAddress(tokenA), common.HexToAddress(tokenB))
	if err != nil {
		return "", false, err
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return "", false, unavailable("pools", v.r.factory.Hex(), fmt.Errorf("unexpected type %T", values[0]))
	}
	if addr == (common.Address{}) {
		return "", false, nil
	}
	return strings.ToLower(addr.Hex()), true, nil
}

func (v *blockView) FeeRate() (*big.Int, error) {
	return v.uint256(factoryABI, v.r.factory, "fee")
}
