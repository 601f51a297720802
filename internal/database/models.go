package database

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// EventLog is an archived raw log together with the block and transaction
// context the engine needs to decode it.
type EventLog struct {
	BlockNumber     uint64   `db:"block_number"`
	BlockHash       string   `db:"block_hash"`
	BlockTimestamp  uint64   `db:"block_timestamp"`
	TransactionHash string   `db:"transaction_hash"`
	TransactionFrom string   `db:"transaction_from"`
	LogIndex        uint     `db:"log_index"`
	Address         string   `db:"address"`
	Topics          []string `db:"topics"` // stored as JSONB
	Data            string   `db:"data"`
}

// ModuleState is a module's sync checkpoint.
type ModuleState struct {
	ModuleName         string `db:"module_name"`
	LastProcessedBlock uint64 `db:"last_processed_block"`
}

// NewEventLog converts a fetched log.
func NewEventLog(log types.Log, timestamp uint64, txFrom string) EventLog {
	topics := make([]string, len(log.Topics))
	for i, t := range log.Topics {
		topics[i] = HashToString(t)
	}
	return EventLog{
		BlockNumber:     log.BlockNumber,
		BlockHash:       HashToString(log.BlockHash),
		BlockTimestamp:  timestamp,
		TransactionHash: HashToString(log.TxHash),
		TransactionFrom: strings.ToLower(txFrom),
		LogIndex:        log.Index,
		Address:         AddressToString(log.Address),
		Topics:          topics,
		Data:            hexutil.Encode(log.Data),
	}
}

// Log rebuilds the go-ethereum log.
func (e EventLog) Log() (types.Log, error) {
	data, err := hexutil.Decode(e.Data)
	if err != nil {
		return types.Log{}, fmt.Errorf("invalid data in log %d/%d: %w", e.BlockNumber, e.LogIndex, err)
	}
	topics := make([]common.Hash, len(e.Topics))
	for i, t := range e.Topics {
		topics[i] = common.HexToHash(t)
	}
	return types.Log{
		Address:     common.HexToAddress(e.Address),
		Topics:      topics,
		Data:        data,
		BlockNumber: e.BlockNumber,
		BlockHash:   common.HexToHash(e.BlockHash),
		TxHash:      common.HexToHash(e.TransactionHash),
		Index:       e.LogIndex,
	}, nil
}

// HashToString returns the lower-case hex form of a hash.
func HashToString(hash common.Hash) string {
	return strings.ToLower(hash.Hex())
}

// AddressToString returns the lower-case hex form of an address.
func AddressToString(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
