package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/centrifugal/gocent/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiswap/indexer/internal/entity"
	"github.com/emiswap/indexer/internal/store"
)

const pool = "0xaca93dc131fd962e82b09aa7a66d193b8ccbb860"

type published struct {
	channel string
	data    []byte
}

type fakeClient struct {
	mu   sync.Mutex
	msgs []published
	fail map[string]bool
}

func (c *fakeClient) Publish(_ context.Context, channel string, data []byte, _ ...gocent.PublishOption) (gocent.PublishResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail[channel] {
		return gocent.PublishResult{}, errors.New("unavailable")
	}
	c.msgs = append(c.msgs, published{channel: channel, data: data})
	return gocent.PublishResult{}, nil
}

func (c *fakeClient) messages() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.msgs...)
}

func seedPair(t *testing.T, backend *store.MemoryBackend, id string) {
	t.Helper()
	tx := store.Begin(context.Background(), backend)
	tx.Save(&entity.Pair{ID: id, Token0: "0x01", Token1: "0x02"})
	require.NoError(t, tx.Commit())
}

func TestPublisherPublishesCommittedPairs(t *testing.T) {
	backend := store.NewMemoryBackend()
	seedPair(t, backend, pool)
	client := &fakeClient{}

	p := NewPublisher(client, backend, zerolog.Nop())
	p.BlockCommitted(7, []string{"0xACA93DC131FD962E82B09AA7A66D193B8CCBB860", "0xdeadbeef00000000000000000000000000000000"})
	require.NoError(t, p.Close())

	msgs := client.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "dex.pair."+pool, msgs[0].channel)
	assert.Equal(t, "dex.pairs", msgs[1].channel)

	var update struct {
		Type        string      `json:"type"`
		BlockNumber uint64      `json:"block_number"`
		Pair        entity.Pair `json:"pair"`
	}
	require.NoError(t, json.Unmarshal(msgs[0].data, &update))
	assert.Equal(t, "pair.update", update.Type)
	assert.Equal(t, uint64(7), update.BlockNumber)
	assert.Equal(t, pool, update.Pair.ID)

	var batch struct {
		Type  string            `json:"type"`
		Items []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(msgs[1].data, &batch))
	assert.Equal(t, "pair.batch", batch.Type)
	assert.Len(t, batch.Items, 1)
}

func TestPublisherCoalescesUpdates(t *testing.T) {
	backend := store.NewMemoryBackend()
	seedPair(t, backend, pool)
	client := &fakeClient{}
	p := NewPublisher(client, backend, zerolog.Nop())

	p.BlockCommitted(4, []string{pool})
	p.BlockCommitted(2, []string{pool})
	require.NoError(t, p.Close())

	var updates int
	for _, m := range client.messages() {
		if m.channel == "dex.pair."+pool {
			updates++
			assert.Contains(t, string(m.data), `"block_number":4`)
		}
	}
	assert.GreaterOrEqual(t, updates, 1)
	assert.LessOrEqual(t, updates, 2)
}

func TestPublisherSkipsBatchWhenNothingPublished(t *testing.T) {
	backend := store.NewMemoryBackend()
	seedPair(t, backend, pool)
	client := &fakeClient{fail: map[string]bool{"dex.pair." + pool: true}}

	p := NewPublisher(client, backend, zerolog.Nop())
	p.BlockCommitted(1, []string{pool})
	require.NoError(t, p.Close())

	assert.Empty(t, client.messages())
}
