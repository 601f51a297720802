package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Observer receives the latency of every RPC method call.
type Observer func(method string, d time.Duration, err error)

// Options configures a Client
type Options struct {
	Endpoint           string
	ChainID            int64
	RequestTimeout     time.Duration
	MaxConcurrentCalls int64
	Observer           Observer
}

// Client wraps an Ethereum client for EVM JSON-RPC interactions
type Client struct {
	client   *ethclient.Client
	raw      *rpc.Client
	endpoint string
	chainID  *big.Int
	timeout  time.Duration
	sem      *semaphore.Weighted
	observe  Observer
	logger   zerolog.Logger
}

// NewClient creates a new RPC client
func NewClient(opts Options, logger zerolog.Logger) (*Client, error) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.MaxConcurrentCalls <= 0 {
		opts.MaxConcurrentCalls = 8
	}

	httpClient := &http.Client{
		Timeout: opts.RequestTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        int(opts.MaxConcurrentCalls),
			MaxIdleConnsPerHost: int(opts.MaxConcurrentCalls),
			IdleConnTimeout:     90 * time.Second,
		},
	}

	rpcClient, err := rpc.DialHTTPWithClient(opts.Endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	client := ethclient.NewClient(rpcClient)

	ctx, cancel := context.WithTimeout(context.Background(), opts.RequestTimeout)
	defer cancel()

	networkID, err := client.ChainID(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to verify chain ID, continuing anyway")
		networkID = big.NewInt(opts.ChainID)
	} else if opts.ChainID != 0 && networkID.Int64() != opts.ChainID {
		client.Close()
		return nil, fmt.Errorf("chain ID mismatch: expected %d, got %d", opts.ChainID, networkID.Int64())
	}

	logger.Info().
		Str("endpoint", opts.Endpoint).
		Int64("chain_id", networkID.Int64()).
		Msg("Connected to RPC endpoint")

	observe := opts.Observer
	if observe == nil {
		observe = func(string, time.Duration, error) {}
	}

	return &Client{
		client:   client,
		raw:      rpcClient,
		endpoint: opts.Endpoint,
		chainID:  networkID,
		timeout:  opts.RequestTimeout,
		sem:      semaphore.NewWeighted(opts.MaxConcurrentCalls),
		observe:  observe,
		logger:   logger.With().Str("component", "rpc").Logger(),
	}, nil
}

// Close closes the RPC client connection
func (c *Client) Close() {
	c.client.Close()
	c.logger.Info().Msg("RPC client connection closed")
}

// ChainID returns the chain id reported by the endpoint.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// call bounds the number of in-flight requests and applies the request
// timeout when the caller did not set a deadline.
func (c *Client) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	c.observe(method, time.Since(start), err)
	return err
}

// GetLatestBlockNumber returns the latest block number
func (c *Client) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	var number uint64
	err := c.call(ctx, "eth_blockNumber", func(ctx context.Context) error {
		var err error
		number, err = c.client.BlockNumber(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block number: %w", err)
	}
	return number, nil
}

// GetBlockTime returns the timestamp of a block header
func (c *Client) GetBlockTime(ctx context.Context, number uint64) (uint64, error) {
	var header *types.Header
	err := c.call(ctx, "eth_getBlockByNumber", func(ctx context.Context) error {
		var err error
		header, err = c.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get block %d: %w", number, err)
	}
	return header.Time, nil
}

// GetTransactionSender returns the origin address of a transaction as
// reported by the node, which avoids signature recovery for every tx type.
func (c *Client) GetTransactionSender(ctx context.Context, txHash common.Hash) (common.Address, error) {
	var tx struct {
		From common.Address `json:"from"`
	}
	err := c.call(ctx, "eth_getTransactionByHash", func(ctx context.Context) error {
		return c.raw.CallContext(ctx, &tx, "eth_getTransactionByHash", txHash)
	})
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to get transaction %s: %w", txHash.Hex(), err)
	}
	return tx.From, nil
}

// GetLogs fetches logs matching the given filter query
func (c *Client) GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := c.call(ctx, "eth_getLogs", func(ctx context.Context) error {
		var err error
		logs, err = c.client.FilterLogs(ctx, query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	return logs, nil
}

// CallContract executes a read-only call against the state at blockNumber
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte, blockNumber uint64) ([]byte, error) {
	var out []byte
	err := c.call(ctx, "eth_call", func(ctx context.Context) error {
		var err error
		out, err = c.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, new(big.Int).SetUint64(blockNumber))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetEndpoint returns the RPC endpoint URL
func (c *Client) GetEndpoint() string {
	return c.endpoint
}

// IsConnected checks if the client is connected to the RPC endpoint
func (c *Client) IsConnected(ctx context.Context) bool {
	_, err := c.GetLatestBlockNumber(ctx)
	return err == nil
}

// IsRevert reports whether an eth_call error is an execution revert rather
// than a transport failure.
func IsRevert(err error) bool {
	if err == nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var de rpc.DataError
	if errors.As(err, &de) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "revert") || strings.Contains(msg, "invalid opcode")
}
