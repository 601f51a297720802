package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"

	"github.com/emiswap/indexer/internal/entity"
)

// MemoryBackend keeps canonical records in memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[key][]byte
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[key][]byte)}
}

func (m *MemoryBackend) Load(_ context.Context, kind entity.Kind, id string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.records[key{kind, id}]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

func (m *MemoryBackend) Commit(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		data := make([]byte, len(r.Data))
		copy(data, r.Data)
		m.records[key{r.Kind, r.ID}] = data
	}
	return nil
}

// Len returns the number of stored records.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Snapshot returns every record in (kind, id) order.
func (m *MemoryBackend) Snapshot() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]key, 0, len(m.records))
	for k := range m.records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })

	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, Record{Kind: k.kind, ID: k.id, Data: m.records[k]})
	}
	return out
}

// Digest hashes the full snapshot. Two stores holding byte-identical state
// produce the same digest.
func (m *MemoryBackend) Digest() string {
	return Digest(m.Snapshot())
}

// Digest hashes records in the order given.
func Digest(records []Record) string {
	h := sha256.New()
	for _, r := range records {
		h.Write([]byte(r.Kind))
		h.Write([]byte{0})
		h.Write([]byte(r.ID))
		h.Write([]byte{0})
		h.Write(r.Data)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
