// Package store is the entity store facade used by the engine.
//
// A Tx is a unit of work scoped to one event. It keeps an identity map so that
// every load of the same entity returns the same instance, buffers writes, and
// flushes them atomically to a Backend on Commit.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/emiswap/indexer/internal/entity"
)

var (
	// ErrNotFound is returned by backends for absent entities.
	ErrNotFound = errors.New("entity not found")

	// ErrOrderingViolation marks a lookup of an entity that the event stream
	// guarantees to exist but is absent.
	ErrOrderingViolation = errors.New("event ordering violation")

	// ErrClosed is returned when a Tx is used after Commit.
	ErrClosed = errors.New("store transaction closed")
)

// MissingEntityError reports a required entity that could not be found.
type MissingEntityError struct {
	Kind entity.Kind
	ID   string
}

func (e *MissingEntityError) Error() string {
	return fmt.Sprintf("required %s %q not found", e.Kind, e.ID)
}

func (e *MissingEntityError) Unwrap() error {
	return ErrOrderingViolation
}

// Record is the canonical persisted form of an entity.
type Record struct {
	Kind entity.Kind
	ID   string
	Data []byte
}

// Backend persists canonical entity records.
type Backend interface {
	// Load returns the encoded entity, or false if it does not exist.
	Load(ctx context.Context, kind entity.Kind, id string) ([]byte, bool, error)

	// Commit writes all records atomically.
	Commit(ctx context.Context, records []Record) error
}

type key struct {
	kind entity.Kind
	id   string
}

func less(a, b key) bool {
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	return a.id < b.id
}

// Tx is a per-event unit of work.
type Tx struct {
	ctx     context.Context
	backend Backend
	loaded  map[key]entity.Entity
	dirty   map[key]struct{}
	closed  bool
}

// Begin opens a unit of work over backend.
func Begin(ctx context.Context, backend Backend) *Tx {
	return &Tx{
		ctx:     ctx,
		backend: backend,
		loaded:  make(map[key]entity.Entity),
		dirty:   make(map[key]struct{}),
	}
}

// ptr constrains P to a pointer to T that is an entity.
type ptr[T any] interface {
	*T
	entity.Entity
}

func find[T any, P ptr[T]](tx *Tx, kind entity.Kind, id string) (P, bool, error) {
	if tx.closed {
		return nil, false, ErrClosed
	}

	k := key{kind, id}
	if e, ok := tx.loaded[k]; ok {
		v, ok := e.(P)
		if !ok {
			return nil, false, fmt.Errorf("identity map holds %T for %s %q", e, kind, id)
		}
		return v, true, nil
	}

	data, ok, err := tx.backend.Load(tx.ctx, kind, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s %q: %w", kind, id, err)
	}
	if !ok {
		return nil, false, nil
	}

	v := P(new(T))
	if err := json.Unmarshal(data, v); err != nil {
		return nil, false, fmt.Errorf("failed to decode %s %q: %w", kind, id, err)
	}
	tx.loaded[k] = v
	return v, true, nil
}

func get[T any, P ptr[T]](tx *Tx, kind entity.Kind, id string) (P, error) {
	v, ok, err := find[T, P](tx, kind, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &MissingEntityError{Kind: kind, ID: id}
	}
	return v, nil
}

// Save marks an entity as written in this unit of work.
func (tx *Tx) Save(e entity.Entity) {
	k := key{e.Kind(), e.EntityID()}
	tx.loaded[k] = e
	tx.dirty[k] = struct{}{}
}

// Dirty returns the ids of written entities of the given kind, sorted.
func (tx *Tx) Dirty(kind entity.Kind) []string {
	var ids []string
	for k := range tx.dirty {
		if k.kind == kind {
			ids = append(ids, k.id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Records encodes every written entity in (kind, id) order.
func (tx *Tx) Records() ([]Record, error) {
	keys := make([]key, 0, len(tx.dirty))
	for k := range tx.dirty {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })

	records := make([]Record, 0, len(keys))
	for _, k := range keys {
		data, err := json.Marshal(tx.loaded[k])
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s %q: %w", k.kind, k.id, err)
		}
		records = append(records, Record{Kind: k.kind, ID: k.id, Data: data})
	}
	return records, nil
}

// Commit flushes all writes to the backend and closes the unit of work.
func (tx *Tx) Commit() error {
	if tx.closed {
		return ErrClosed
	}
	records, err := tx.Records()
	if err != nil {
		return err
	}
	tx.closed = true
	if len(records) == 0 {
		return nil
	}
	return tx.backend.Commit(tx.ctx, records)
}

// Discard closes the unit of work without writing.
func (tx *Tx) Discard() {
	tx.closed = true
}
