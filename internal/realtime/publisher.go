package realtime

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/centrifugal/gocent/v3"
	"github.com/rs/zerolog"

	"github.com/emiswap/indexer/internal/entity"
	"github.com/emiswap/indexer/internal/store"
)

const (
	pairChannelPrefix = "dex.pair."
	pairsChannel      = "dex.pairs"
	flushInterval     = 250 * time.Millisecond
)

// Client is the part of the Centrifugo HTTP API the publisher uses.
type Client interface {
	Publish(ctx context.Context, channel string, data []byte, opts ...gocent.PublishOption) (gocent.PublishResult, error)
}

// Publisher pushes the committed state of changed pairs to Centrifugo.
// Updates are coalesced per pair and flushed on a short ticker.
type Publisher struct {
	gc      Client
	backend store.Backend
	logger  zerolog.Logger

	mu           sync.Mutex
	pending      map[string]struct{}
	currentBlock uint64

	flushCh chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type PublishConfig struct {
	APIURL string
	APIKey string
}

func NewClient(cfg PublishConfig) *gocent.Client {
	return gocent.New(gocent.Config{
		Addr: cfg.APIURL,
		Key:  cfg.APIKey,
	})
}

// NewPublisher starts the flusher. backend is read after commit, so it must
// be the durable store and not a block overlay.
func NewPublisher(gc Client, backend store.Backend, logger zerolog.Logger) *Publisher {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Publisher{
		gc:      gc,
		backend: backend,
		logger:  logger.With().Str("component", "realtime-publisher").Logger(),
		pending: make(map[string]struct{}),
		flushCh: make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}

	p.wg.Add(1)
	go p.run()
	return p
}

func (p *Publisher) run() {
	defer p.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.flush(p.ctx)
		case <-p.flushCh:
			p.flush(p.ctx)
		}
	}
}

// BlockCommitted enqueues the pairs changed by a committed block. It
// matches processor.BlockObserver.
func (p *Publisher) BlockCommitted(block uint64, pairs []string) {
	p.mu.Lock()
	if block > p.currentBlock {
		p.currentBlock = block
	}
	for _, id := range pairs {
		p.pending[strings.ToLower(id)] = struct{}{}
	}
	p.mu.Unlock()

	select {
	case p.flushCh <- struct{}{}:
	default:
	}
}

// Flush publishes pending updates now.
func (p *Publisher) Flush(ctx context.Context) {
	p.flush(ctx)
}

func (p *Publisher) flush(ctx context.Context) {
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		return
	}
	ids := make([]string, 0, len(p.pending))
	for id := range p.pending {
		ids = append(ids, id)
	}
	block := p.currentBlock
	p.pending = make(map[string]struct{})
	p.mu.Unlock()

	sort.Strings(ids)
	ts := time.Now().UTC().Unix()
	items := make([]json.RawMessage, 0, len(ids))

	for _, id := range ids {
		data, ok, err := p.backend.Load(ctx, entity.KindPair, id)
		if err != nil {
			p.logger.Error().Err(err).Str("pair", id).Msg("Failed to load pair")
			continue
		}
		if !ok {
			continue
		}

		payload, err := json.Marshal(map[string]any{
			"type":         "pair.update",
			"block_number": block,
			"ts":           ts,
			"pair":         json.RawMessage(data),
		})
		if err != nil {
			p.logger.Warn().Err(err).Msg("Failed to marshal pair payload")
			continue
		}

		channel := pairChannelPrefix + id
		if _, err := p.gc.Publish(ctx, channel, payload); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn().Err(err).Str("channel", channel).Msg("Failed to publish pair update")
			continue
		}
		items = append(items, data)
	}

	if len(items) == 0 {
		return
	}

	batch, err := json.Marshal(map[string]any{
		"type":         "pair.batch",
		"block_number": block,
		"ts":           ts,
		"items":        items,
	})
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to marshal batch payload")
		return
	}
	if _, err := p.gc.Publish(ctx, pairsChannel, batch); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to publish batch update")
		return
	}
	p.logger.Debug().Int("count", len(items)).Uint64("block", block).Msg("Published pair updates")
}

// Close stops the flusher and publishes what is still pending.
func (p *Publisher) Close() error {
	p.cancel()
	p.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.flush(ctx)
	p.logger.Info().Msg("Publisher closed")
	return nil
}
