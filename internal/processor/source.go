package processor

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/emiswap/indexer/internal/rpc"
)

// Source supplies raw chain data to the indexer.
type Source interface {
	LatestBlock(ctx context.Context) (uint64, error)
	Logs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockTime(ctx context.Context, number uint64) (uint64, error)
	TxSender(ctx context.Context, hash common.Hash) (string, error)
}

// RPCSource reads from a JSON-RPC node.
type RPCSource struct {
	client *rpc.Client
}

var _ Source = (*RPCSource)(nil)

func NewRPCSource(client *rpc.Client) *RPCSource {
	return &RPCSource{client: client}
}

func (s *RPCSource) LatestBlock(ctx context.Context) (uint64, error) {
	return s.client.GetLatestBlockNumber(ctx)
}

func (s *RPCSource) Logs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return s.client.GetLogs(ctx, q)
}

func (s *RPCSource) BlockTime(ctx context.Context, number uint64) (uint64, error) {
	return s.client.GetBlockTime(ctx, number)
}

func (s *RPCSource) TxSender(ctx context.Context, hash common.Hash) (string, error) {
	from, err := s.client.GetTransactionSender(ctx, hash)
	if err != nil {
		return "", err
	}
	return strings.ToLower(from.Hex()), nil
}
