package store

import (
	"context"
	"sort"

	"github.com/emiswap/indexer/internal/entity"
)

// Overlay buffers committed records in front of a base backend. Reads see
// buffered writes first. Drain hands the buffered records to the caller so a
// whole block can be persisted in one storage transaction.
type Overlay struct {
	base    Backend
	pending map[key][]byte
}

var _ Backend = (*Overlay)(nil)

func NewOverlay(base Backend) *Overlay {
	return &Overlay{base: base, pending: make(map[key][]byte)}
}

func (o *Overlay) Load(ctx context.Context, kind entity.Kind, id string) ([]byte, bool, error) {
	if data, ok := o.pending[key{kind, id}]; ok {
		return data, true, nil
	}
	return o.base.Load(ctx, kind, id)
}

func (o *Overlay) Commit(_ context.Context, records []Record) error {
	for _, r := range records {
		o.pending[key{r.Kind, r.ID}] = r.Data
	}
	return nil
}

// Pending returns the number of buffered records.
func (o *Overlay) Pending() int {
	return len(o.pending)
}

// Drain returns the buffered records in (kind, id) order and clears the buffer.
func (o *Overlay) Drain() []Record {
	keys := make([]key, 0, len(o.pending))
	for k := range o.pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })

	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, Record{Kind: k.kind, ID: k.id, Data: o.pending[k]})
	}
	o.pending = make(map[key][]byte)
	return out
}

// Reset drops buffered records without writing them.
func (o *Overlay) Reset() {
	o.pending = make(map[key][]byte)
}
