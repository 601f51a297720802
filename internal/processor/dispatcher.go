package processor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/emiswap/indexer/internal/chain"
	"github.com/emiswap/indexer/internal/database"
	"github.com/emiswap/indexer/internal/entity"
	"github.com/emiswap/indexer/internal/metrics"
	"github.com/emiswap/indexer/internal/modules/emiswap"
	"github.com/emiswap/indexer/internal/store"
)

// ModuleName is the checkpoint key of the EmiSwap module.
const ModuleName = "emiswap"

// Entry is a log with the block and transaction context it is decoded with.
type Entry struct {
	Log       types.Log
	Timestamp uint64
	TxFrom    string
}

// Block is the ordered set of logs of one block.
type Block struct {
	Number  uint64
	Entries []Entry
}

// Sink persists a processed block.
type Sink interface {
	CommitBlock(ctx context.Context, c database.BlockCommit) error
}

// BlockObserver is told which pairs changed in a committed block.
type BlockObserver func(block uint64, pairs []string)

type DispatcherOptions struct {
	Engine     *emiswap.Engine
	Decoder    *emiswap.Decoder
	Reader     chain.Reader
	Base       store.Backend
	Sink       Sink
	Metrics    *metrics.Metrics
	ArchiveLog bool
}

// Dispatcher applies logs to the engine one at a time in chain order. Each
// event runs in its own store.Tx over an overlay. The overlay is flushed to
// the sink once per block together with the block's checkpoint.
type Dispatcher struct {
	engine    *emiswap.Engine
	decoder   *emiswap.Decoder
	reader    chain.Reader
	overlay   *store.Overlay
	sink      Sink
	metrics   *metrics.Metrics
	archive   bool
	factory   common.Address
	deployed  common.Hash
	pairs     map[string]struct{}
	observers []BlockObserver
	logger    zerolog.Logger
}

func NewDispatcher(opts DispatcherOptions, logger zerolog.Logger) (*Dispatcher, error) {
	deployed, ok := opts.Decoder.Topic("Deployed")
	if !ok {
		return nil, fmt.Errorf("decoder has no Deployed event")
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Dispatcher{
		engine:   opts.Engine,
		decoder:  opts.Decoder,
		reader:   opts.Reader,
		overlay:  store.NewOverlay(opts.Base),
		sink:     opts.Sink,
		metrics:  m,
		archive:  opts.ArchiveLog,
		factory:  common.HexToAddress(opts.Engine.Deployment().Factory()),
		deployed: deployed,
		pairs:    make(map[string]struct{}),
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}, nil
}

// OnBlockCommitted registers an observer.
func (d *Dispatcher) OnBlockCommitted(fn BlockObserver) {
	d.observers = append(d.observers, fn)
}

// Track adds already indexed pools to the set whose events are applied.
func (d *Dispatcher) Track(pairs ...string) {
	for _, p := range pairs {
		d.pairs[entity.NormalizeAddress(p)] = struct{}{}
	}
}

// Pairs returns the tracked pool addresses, sorted.
func (d *Dispatcher) Pairs() []string {
	out := make([]string, 0, len(d.pairs))
	for p := range d.pairs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Factory returns the factory address.
func (d *Dispatcher) Factory() common.Address { return d.factory }

// DeployedTopic returns the factory's pool creation topic.
func (d *Dispatcher) DeployedTopic() common.Hash { return d.deployed }

// accepts reports whether a log comes from the factory's pool creation
// event or from a tracked pool.
func (d *Dispatcher) accepts(log types.Log) bool {
	if len(log.Topics) == 0 || log.Removed {
		return false
	}
	if log.Topics[0] == d.deployed {
		return log.Address == d.factory
	}
	_, ok := d.pairs[entity.NormalizeAddress(log.Address.Hex())]
	return ok
}

// ApplyBlock applies the block's logs and commits the result with the
// block's checkpoint. On error nothing of the block is kept.
func (d *Dispatcher) ApplyBlock(ctx context.Context, b Block) error {
	start := time.Now()
	view := d.reader.At(ctx, b.Number)
	changed := make(map[string]struct{})
	var (
		created  []string
		archived []database.EventLog
	)

	fail := func(err error) error {
		d.overlay.Reset()
		for _, p := range created {
			delete(d.pairs, p)
		}
		d.metrics.FatalErrors.WithLabelValues(classify(err)).Inc()
		return err
	}

	for _, e := range b.Entries {
		if !d.accepts(e.Log) {
			d.metrics.EventsSkipped.WithLabelValues("untracked").Inc()
			continue
		}
		ev, err := d.decoder.Decode(e.Log, e.Timestamp, e.TxFrom)
		if err != nil {
			var unknown emiswap.ErrUnknownEvent
			if errors.As(err, &unknown) {
				d.metrics.EventsSkipped.WithLabelValues("unknown").Inc()
				continue
			}
			return fail(fmt.Errorf("failed to decode log %d in block %d: %w", e.Log.Index, b.Number, err))
		}

		tx := store.Begin(ctx, d.overlay)
		if err := d.engine.Handle(tx, view, ev); err != nil {
			tx.Discard()
			return fail(err)
		}
		for _, id := range tx.Dirty(entity.KindPair) {
			changed[id] = struct{}{}
		}
		if err := tx.Commit(); err != nil {
			return fail(fmt.Errorf("failed to stage event: %w", err))
		}

		if pc, ok := ev.(emiswap.PoolCreated); ok {
			if _, known := d.pairs[pc.Pair]; !known {
				d.pairs[pc.Pair] = struct{}{}
				created = append(created, pc.Pair)
			}
		}
		d.metrics.EventsApplied.WithLabelValues(ev.Name()).Inc()
		if d.archive {
			archived = append(archived, database.NewEventLog(e.Log, e.Timestamp, e.TxFrom))
		}
	}

	records := d.overlay.Drain()
	if err := d.sink.CommitBlock(ctx, database.BlockCommit{
		Module:  ModuleName,
		Block:   b.Number,
		Records: records,
		Logs:    archived,
	}); err != nil {
		return fail(err)
	}

	d.metrics.EntitiesWritten.Add(float64(len(records)))
	d.metrics.LastProcessedBlock.Set(float64(b.Number))
	d.metrics.BlockDuration.Observe(time.Since(start).Seconds())

	if len(changed) > 0 {
		ids := make([]string, 0, len(changed))
		for id := range changed {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, fn := range d.observers {
			fn(b.Number, ids)
		}
	}

	d.logger.Debug().
		Uint64("block", b.Number).
		Int("logs", len(b.Entries)).
		Int("entities", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Block applied")
	return nil
}

// Checkpoint records a block range without matching logs as processed.
func (d *Dispatcher) Checkpoint(ctx context.Context, block uint64) error {
	if err := d.sink.CommitBlock(ctx, database.BlockCommit{Module: ModuleName, Block: block}); err != nil {
		return err
	}
	d.metrics.LastProcessedBlock.Set(float64(block))
	return nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, store.ErrOrderingViolation):
		return "ordering_violation"
	case errors.Is(err, chain.ErrUnavailable):
		return "chain_unavailable"
	}
	var parsing emiswap.ErrEventParsing
	var invalid emiswap.ErrInvalidEvent
	if errors.As(err, &parsing) || errors.As(err, &invalid) {
		return "decode"
	}
	return "other"
}

// IsFatal reports errors that retrying the block cannot fix.
func IsFatal(err error) bool {
	switch classify(err) {
	case "ordering_violation", "decode":
		return true
	}
	return false
}

// MemorySink commits blocks straight into a backend, ignoring logs and
// checkpoints. It is used for replay.
type MemorySink struct {
	Backend store.Backend
}

func (s MemorySink) CommitBlock(ctx context.Context, c database.BlockCommit) error {
	if len(c.Records) == 0 {
		return nil
	}
	return s.Backend.Commit(ctx, c.Records)
}
