package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/emiswap/indexer/internal/entity"
	"github.com/emiswap/indexer/internal/store"
)

const upsertEntity = `
	INSERT INTO entities (kind, id, data, block, updated_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (kind, id) DO UPDATE SET
		data = EXCLUDED.data,
		block = EXCLUDED.block,
		updated_at = EXCLUDED.updated_at`

// EntityStore is the Postgres store.Backend.
type EntityStore struct {
	db *Database
}

var _ store.Backend = (*EntityStore)(nil)

func NewEntityStore(db *Database) *EntityStore {
	return &EntityStore{db: db}
}

func (s *EntityStore) Load(ctx context.Context, kind entity.Kind, id string) ([]byte, bool, error) {
	var data []byte
	err := s.db.pool.QueryRow(ctx,
		`SELECT data FROM entities WHERE kind = $1 AND id = $2`, string(kind), id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s %q: %w", kind, id, err)
	}
	return data, true, nil
}

// Commit writes records outside of any block.
func (s *EntityStore) Commit(ctx context.Context, records []store.Record) error {
	return s.db.Transaction(ctx, func(tx pgx.Tx) error {
		return writeEntities(ctx, tx, records, 0)
	})
}

// Count returns the number of stored entities of a kind.
func (s *EntityStore) Count(ctx context.Context, kind entity.Kind) (int, error) {
	var n int
	if err := s.db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM entities WHERE kind = $1`, string(kind),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", kind, err)
	}
	return n, nil
}

// IDs lists the ids of all stored entities of a kind.
func (s *EntityStore) IDs(ctx context.Context, kind entity.Kind) ([]string, error) {
	rows, err := s.db.pool.Query(ctx, `SELECT id FROM entities WHERE kind = $1 ORDER BY id`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s ids: %w", kind, err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func writeEntities(ctx context.Context, tx pgx.Tx, records []store.Record, block uint64) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(upsertEntity, string(r.Kind), r.ID, r.Data, block)
	}

	br := tx.SendBatch(ctx, batch)
	for _, r := range records {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to write %s %q: %w", r.Kind, r.ID, err)
		}
	}
	return br.Close()
}
