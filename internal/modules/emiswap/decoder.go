package emiswap

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Decoder turns raw logs into typed events.
type Decoder struct {
	events map[common.Hash]abi.Event
	topics []common.Hash
}

// NewDecoder parses the factory and pool ABIs.
func NewDecoder() (*Decoder, error) {
	d := &Decoder{events: make(map[common.Hash]abi.Event)}
	for name, raw := range map[string]string{"factory": FactoryABI, "pair": PairABI} {
		parsed, err := abi.JSON(strings.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s ABI: %w", name, err)
		}
		for _, ev := range parsed.Events {
			d.events[ev.ID] = ev
		}
	}
	// fixed order so log filters are stable
	for _, ev := range []string{"Deployed", "Transfer", "Deposited", "Withdrawn", "Swapped"} {
		for id, e := range d.events {
			if e.Name == ev {
				d.topics = append(d.topics, id)
			}
		}
	}
	return d, nil
}

// Topics returns the topic0 hashes of every event the decoder understands.
func (d *Decoder) Topics() []common.Hash {
	out := make([]common.Hash, len(d.topics))
	copy(out, d.topics)
	return out
}

// Topic returns the topic0 hash of the named event.
func (d *Decoder) Topic(name string) (common.Hash, bool) {
	for id, e := range d.events {
		if e.Name == name {
			return id, true
		}
	}
	return common.Hash{}, false
}

// Decode decodes a log. The block timestamp and transaction origin are not
// part of the log and are supplied by the caller.
func (d *Decoder) Decode(log types.Log, timestamp uint64, txFrom string) (Event, error) {
	if len(log.Topics) == 0 {
		return nil, ErrInvalidEvent{Reason: "no topics in log"}
	}
	ev, ok := d.events[log.Topics[0]]
	if !ok {
		return nil, ErrUnknownEvent{Topic: log.Topics[0].Hex()}
	}

	args := make(map[string]interface{})
	var indexed abi.Arguments
	for _, in := range ev.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}
	if len(log.Topics)-1 != len(indexed) {
		return nil, ErrInvalidEvent{Reason: fmt.Sprintf("%s expects %d indexed topics, got %d", ev.Name, len(indexed), len(log.Topics)-1)}
	}
	if err := abi.ParseTopicsIntoMap(args, indexed, log.Topics[1:]); err != nil {
		return nil, ErrEventParsing{Event: ev.Name, Err: err}
	}
	if err := ev.Inputs.NonIndexed().UnpackIntoMap(args, log.Data); err != nil {
		return nil, ErrEventParsing{Event: ev.Name, Err: err}
	}

	meta := Meta{
		BlockNumber: log.BlockNumber,
		Timestamp:   timestamp,
		TxHash:      strings.ToLower(log.TxHash.Hex()),
		TxFrom:      strings.ToLower(txFrom),
		LogIndex:    log.Index,
		Address:     hexAddr(log.Address),
	}
	a := argReader{event: ev.Name, args: args}

	var out Event
	switch ev.Name {
	case "Deployed":
		out = PoolCreated{Meta: meta, Pair: a.address("pair"), Token0: a.address("token1"), Token1: a.address("token2")}
	case "Transfer":
		out = TransferLike{Meta: meta, From: a.address("from"), To: a.address("to"), Value: a.bigInt("value")}
	case "Deposited":
		out = DepositConfirmed{Meta: meta, Account: a.address("account"), Amount: a.bigInt("amount")}
	case "Withdrawn":
		out = WithdrawalConfirmed{Meta: meta, Account: a.address("account"), Amount: a.bigInt("amount")}
	case "Swapped":
		out = SwapOccurred{
			Meta:        meta,
			Account:     a.address("account"),
			Src:         a.address("src"),
			Dst:         a.address("dst"),
			Amount:      a.bigInt("amount"),
			Result:      a.bigInt("result"),
			SrcBalance:  a.bigInt("srcBalance"),
			DstBalance:  a.bigInt("dstBalance"),
			TotalSupply: a.bigInt("totalSupply"),
			Referral:    a.address("referral"),
		}
	default:
		return nil, ErrUnknownEvent{Topic: log.Topics[0].Hex()}
	}
	if a.err != nil {
		return nil, a.err
	}
	return out, nil
}

func hexAddr(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// argReader extracts typed arguments, keeping the first failure.
type argReader struct {
	event string
	args  map[string]interface{}
	err   error
}

func (r *argReader) address(name string) string {
	v, ok := r.args[name].(common.Address)
	if !ok {
		r.fail(name)
		return ""
	}
	return hexAddr(v)
}

func (r *argReader) bigInt(name string) *big.Int {
	v, ok := r.args[name].(*big.Int)
	if !ok {
		r.fail(name)
		return new(big.Int)
	}
	return v
}

func (r *argReader) fail(name string) {
	if r.err == nil {
		r.err = ErrEventParsing{Event: r.event, Err: fmt.Errorf("missing or mistyped argument %q", name)}
	}
}

type ErrInvalidEvent struct {
	Reason string
}

func (e ErrInvalidEvent) Error() string {
	return "invalid event: " + e.Reason
}

type ErrUnknownEvent struct {
	Topic string
}

func (e ErrUnknownEvent) Error() string {
	return "unknown event topic: " + e.Topic
}

type ErrEventParsing struct {
	Event string
	Err   error
}

func (e ErrEventParsing) Error() string {
	return "failed to parse event " + e.Event + ": " + e.Err.Error()
}

func (e ErrEventParsing) Unwrap() error { return e.Err }
