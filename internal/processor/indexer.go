package processor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/emiswap/indexer/internal/database"
	"github.com/emiswap/indexer/internal/entity"
	"github.com/emiswap/indexer/internal/metrics"
)

const (
	// maxAddressesPerQuery bounds the address list of one eth_getLogs call.
	maxAddressesPerQuery = 500
	prefetchConcurrency  = 8
)

// Checkpoints returns the last committed block of a module.
type Checkpoints interface {
	LastProcessedBlock(ctx context.Context, module string) (uint64, error)
}

// EntityLister lists stored entity ids of a kind.
type EntityLister interface {
	IDs(ctx context.Context, kind entity.Kind) ([]string, error)
}

type IndexerOptions struct {
	StartBlock    uint64
	BatchSize     uint64
	Confirmations uint64
}

// Status is a point-in-time view of sync progress.
type Status struct {
	NextBlock uint64
	ChainHead uint64
	Pairs     int
}

// Indexer follows the chain from the last checkpoint and feeds the
// dispatcher one block at a time.
type Indexer struct {
	source      Source
	dispatcher  *Dispatcher
	checkpoints Checkpoints
	pairs       EntityLister
	opts        IndexerOptions
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	mu     sync.Mutex
	ready  bool
	next   uint64
	head   uint64
	topics []common.Hash
}

func NewIndexer(source Source, dispatcher *Dispatcher, checkpoints Checkpoints, pairs EntityLister, opts IndexerOptions, m *metrics.Metrics, logger zerolog.Logger) *Indexer {
	if opts.BatchSize == 0 {
		opts.BatchSize = 1
	}
	if m == nil {
		m = metrics.New()
	}
	return &Indexer{
		source:      source,
		dispatcher:  dispatcher,
		checkpoints: checkpoints,
		pairs:       pairs,
		opts:        opts,
		metrics:     m,
		logger:      logger.With().Str("component", "indexer").Logger(),
		topics:      poolTopics(dispatcher),
	}
}

func poolTopics(d *Dispatcher) []common.Hash {
	var out []common.Hash
	for _, t := range d.decoder.Topics() {
		if t != d.deployed {
			out = append(out, t)
		}
	}
	return out
}

// init resolves where to resume and restores the tracked pool set.
func (i *Indexer) init(ctx context.Context) error {
	if i.ready {
		return nil
	}

	last, err := i.checkpoints.LastProcessedBlock(ctx, ModuleName)
	switch {
	case errors.Is(err, database.ErrNotFound):
		i.next = i.opts.StartBlock
		i.logger.Info().Uint64("block", i.next).Msg("Starting from configured block")
	case err != nil:
		return fmt.Errorf("failed to load checkpoint: %w", err)
	default:
		i.next = last + 1
		i.logger.Info().Uint64("block", i.next).Msg("Resuming from checkpoint")
	}

	if i.pairs != nil {
		ids, err := i.pairs.IDs(ctx, entity.KindPair)
		if err != nil {
			return fmt.Errorf("failed to load indexed pairs: %w", err)
		}
		i.dispatcher.Track(ids...)
	}

	i.ready = true
	return nil
}

// SyncOnce processes at most one batch of confirmed blocks. It reports
// whether the indexer has caught up with the confirmed head.
func (i *Indexer) SyncOnce(ctx context.Context) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.init(ctx); err != nil {
		return false, err
	}

	head, err := i.source.LatestBlock(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get latest block number: %w", err)
	}
	i.head = head
	i.metrics.ChainHead.Set(float64(head))

	if head < i.opts.Confirmations {
		return true, nil
	}
	target := head - i.opts.Confirmations
	if i.next > target {
		return true, nil
	}

	from := i.next
	to := from + i.opts.BatchSize - 1
	if to > target {
		to = target
	}

	start := time.Now()
	blocks, err := i.fetch(ctx, from, to)
	if err != nil {
		return false, err
	}

	for _, b := range blocks {
		if err := i.dispatcher.ApplyBlock(ctx, b); err != nil {
			return false, fmt.Errorf("block %d: %w", b.Number, err)
		}
		i.next = b.Number + 1
	}
	if i.next <= to {
		if err := i.dispatcher.Checkpoint(ctx, to); err != nil {
			return false, fmt.Errorf("failed to checkpoint block %d: %w", to, err)
		}
		i.next = to + 1
	}

	i.logger.Info().
		Uint64("from", from).
		Uint64("to", to).
		Int("blocks", len(blocks)).
		Uint64("lag", target-to).
		Dur("duration", time.Since(start)).
		Msg("Range processed")

	return to == target, nil
}

// CatchUp runs SyncOnce until the confirmed head is reached.
func (i *Indexer) CatchUp(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := i.SyncOnce(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Status reports progress as of the last SyncOnce.
func (i *Indexer) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return Status{NextBlock: i.next, ChainHead: i.head, Pairs: len(i.dispatcher.pairs)}
}

// fetch collects factory and pool logs for a range, ordered by block and
// log index, with block timestamps and transaction senders resolved.
func (i *Indexer) fetch(ctx context.Context, from, to uint64) ([]Block, error) {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
	}

	factoryQuery := q
	factoryQuery.Addresses = []common.Address{i.dispatcher.Factory()}
	factoryQuery.Topics = [][]common.Hash{{i.dispatcher.DeployedTopic()}}
	logs, err := i.source.Logs(ctx, factoryQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to get factory logs: %w", err)
	}

	pools := make(map[string]struct{})
	for _, p := range i.dispatcher.Pairs() {
		pools[p] = struct{}{}
	}
	for _, l := range logs {
		if len(l.Topics) > 1 {
			pools[strings.ToLower(common.BytesToAddress(l.Topics[1].Bytes()).Hex())] = struct{}{}
		}
	}

	addrs := make([]common.Address, 0, len(pools))
	for p := range pools {
		addrs = append(addrs, common.HexToAddress(p))
	}
	sort.Slice(addrs, func(a, b int) bool { return addrs[a].Cmp(addrs[b]) < 0 })

	for start := 0; start < len(addrs); start += maxAddressesPerQuery {
		end := start + maxAddressesPerQuery
		if end > len(addrs) {
			end = len(addrs)
		}
		poolQuery := q
		poolQuery.Addresses = addrs[start:end]
		poolQuery.Topics = [][]common.Hash{i.topics}
		poolLogs, err := i.source.Logs(ctx, poolQuery)
		if err != nil {
			return nil, fmt.Errorf("failed to get pool logs: %w", err)
		}
		logs = append(logs, poolLogs...)
	}

	kept := logs[:0]
	for _, l := range logs {
		if !l.Removed {
			kept = append(kept, l)
		}
	}
	logs = kept
	sort.SliceStable(logs, func(a, b int) bool {
		if logs[a].BlockNumber != logs[b].BlockNumber {
			return logs[a].BlockNumber < logs[b].BlockNumber
		}
		return logs[a].Index < logs[b].Index
	})

	return i.resolve(ctx, logs)
}

// resolve looks up timestamps and senders concurrently and groups the logs
// by block.
func (i *Indexer) resolve(ctx context.Context, logs []types.Log) ([]Block, error) {
	var (
		mu      sync.Mutex
		times   = make(map[uint64]uint64)
		senders = make(map[common.Hash]string)
		numbers []uint64
		hashes  []common.Hash
	)
	for _, l := range logs {
		if _, ok := times[l.BlockNumber]; !ok {
			times[l.BlockNumber] = 0
			numbers = append(numbers, l.BlockNumber)
		}
		if _, ok := senders[l.TxHash]; !ok {
			senders[l.TxHash] = ""
			hashes = append(hashes, l.TxHash)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchConcurrency)
	for _, number := range numbers {
		g.Go(func() error {
			ts, err := i.source.BlockTime(gctx, number)
			if err != nil {
				return fmt.Errorf("failed to get timestamp of block %d: %w", number, err)
			}
			mu.Lock()
			times[number] = ts
			mu.Unlock()
			return nil
		})
	}
	for _, hash := range hashes {
		g.Go(func() error {
			from, err := i.source.TxSender(gctx, hash)
			if err != nil {
				return fmt.Errorf("failed to get sender of %s: %w", hash.Hex(), err)
			}
			mu.Lock()
			senders[hash] = from
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var blocks []Block
	for _, l := range logs {
		if len(blocks) == 0 || blocks[len(blocks)-1].Number != l.BlockNumber {
			blocks = append(blocks, Block{Number: l.BlockNumber})
		}
		b := &blocks[len(blocks)-1]
		b.Entries = append(b.Entries, Entry{Log: l, Timestamp: times[l.BlockNumber], TxFrom: senders[l.TxHash]})
	}
	return blocks, nil
}
