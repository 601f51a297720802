package emiswap

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addrTopic(a string) common.Hash {
	return common.BytesToHash(common.HexToAddress(a).Bytes())
}

func packData(t *testing.T, raw, event string, values ...interface{}) []byte {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(raw))
	require.NoError(t, err)
	data, err := parsed.Events[event].Inputs.NonIndexed().Pack(values...)
	require.NoError(t, err)
	return data
}

func TestDecodeDeployed(t *testing.T) {
	dec, err := NewDecoder()
	require.NoError(t, err)
	topic, ok := dec.Topic("Deployed")
	require.True(t, ok)

	log := types.Log{
		Address:     common.HexToAddress(factoryAddr),
		Topics:      []common.Hash{topic, addrTopic(pool), addrTopic(wkcs), addrTopic(usdt)},
		BlockNumber: 42,
		TxHash:      common.HexToHash(txCreate),
		Index:       7,
	}
	ev, err := dec.Decode(log, 1000, "0xABCDEFabcdefABCDEFabcdefABCDEFabcdefABCD")
	require.NoError(t, err)

	created, ok := ev.(PoolCreated)
	require.True(t, ok)
	assert.Equal(t, pool, created.Pair)
	assert.Equal(t, wkcs, created.Token0)
	assert.Equal(t, usdt, created.Token1)
	assert.Equal(t, uint64(42), created.BlockNumber)
	assert.Equal(t, uint64(1000), created.Timestamp)
	assert.Equal(t, uint(7), created.LogIndex)
	assert.Equal(t, factoryAddr, created.Address)
	assert.Equal(t, txCreate, created.TxHash)
	assert.Equal(t, "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd", created.TxFrom)
}

func TestDecodeSwapped(t *testing.T) {
	dec, err := NewDecoder()
	require.NoError(t, err)
	topic, _ := dec.Topic("Swapped")

	data := packData(t, PairABI, "Swapped",
		wei(1), wei(9), wei(100), wei(1000), wei(10), common.HexToAddress(bob))
	log := types.Log{
		Address: common.HexToAddress(pool),
		Topics:  []common.Hash{topic, addrTopic(alice), addrTopic(wkcs), addrTopic(usdt)},
		Data:    data,
		TxHash:  common.HexToHash(txSwap),
	}
	ev, err := dec.Decode(log, 0, alice)
	require.NoError(t, err)

	swap, ok := ev.(SwapOccurred)
	require.True(t, ok)
	assert.Equal(t, alice, swap.Account)
	assert.Equal(t, wkcs, swap.Src)
	assert.Equal(t, usdt, swap.Dst)
	assert.Equal(t, 0, wei(1).Cmp(swap.Amount))
	assert.Equal(t, 0, wei(9).Cmp(swap.Result))
	assert.Equal(t, 0, wei(100).Cmp(swap.SrcBalance))
	assert.Equal(t, 0, wei(1000).Cmp(swap.DstBalance))
	assert.Equal(t, 0, wei(10).Cmp(swap.TotalSupply))
	assert.Equal(t, bob, swap.Referral)
	assert.Equal(t, pool, swap.Address)
}

func TestDecodeTransferAndDeposit(t *testing.T) {
	dec, err := NewDecoder()
	require.NoError(t, err)

	transfer, _ := dec.Topic("Transfer")
	ev, err := dec.Decode(types.Log{
		Address: common.HexToAddress(pool),
		Topics:  []common.Hash{transfer, addrTopic(zero), addrTopic(alice)},
		Data:    packData(t, PairABI, "Transfer", big.NewInt(1000)),
	}, 0, alice)
	require.NoError(t, err)
	tr := ev.(TransferLike)
	assert.Equal(t, zero, tr.From)
	assert.Equal(t, alice, tr.To)
	assert.Equal(t, int64(1000), tr.Value.Int64())

	deposited, _ := dec.Topic("Deposited")
	ev, err = dec.Decode(types.Log{
		Address: common.HexToAddress(pool),
		Topics:  []common.Hash{deposited, addrTopic(alice)},
		Data:    packData(t, PairABI, "Deposited", wei(5)),
	}, 0, alice)
	require.NoError(t, err)
	assert.Equal(t, "Deposited", ev.Name())
	assert.Equal(t, 0, wei(5).Cmp(ev.(DepositConfirmed).Amount))
}

func TestDecodeErrors(t *testing.T) {
	dec, err := NewDecoder()
	require.NoError(t, err)

	_, err = dec.Decode(types.Log{}, 0, alice)
	assert.ErrorAs(t, err, &ErrInvalidEvent{})

	_, err = dec.Decode(types.Log{Topics: []common.Hash{common.HexToHash("0x01")}}, 0, alice)
	assert.ErrorAs(t, err, &ErrUnknownEvent{})

	transfer, _ := dec.Topic("Transfer")
	_, err = dec.Decode(types.Log{Topics: []common.Hash{transfer, addrTopic(alice)}}, 0, alice)
	assert.ErrorAs(t, err, &ErrInvalidEvent{})

	_, err = dec.Decode(types.Log{
		Topics: []common.Hash{transfer, addrTopic(alice), addrTopic(bob)},
		Data:   []byte{0x01},
	}, 0, alice)
	assert.ErrorAs(t, err, &ErrEventParsing{})
}

func TestTopicsAreStable(t *testing.T) {
	dec, err := NewDecoder()
	require.NoError(t, err)

	topics := dec.Topics()
	require.Len(t, topics, 5)
	for i, name := range []string{"Deployed", "Transfer", "Deposited", "Withdrawn", "Swapped"} {
		h, ok := dec.Topic(name)
		require.True(t, ok)
		assert.Equal(t, h, topics[i], name)
	}
}
