package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// LastProcessedBlock returns a module's checkpoint, or ErrNotFound before
// its first committed block.
func (db *Database) LastProcessedBlock(ctx context.Context, module string) (uint64, error) {
	var block int64
	err := db.pool.QueryRow(ctx,
		`SELECT last_processed_block FROM module_state WHERE module_name = $1`, module,
	).Scan(&block)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get last processed block: %w", err)
	}
	return uint64(block), nil
}

// ModuleStates lists all checkpoints.
func (db *Database) ModuleStates(ctx context.Context) ([]ModuleState, error) {
	rows, err := db.pool.Query(ctx, `SELECT module_name, last_processed_block FROM module_state ORDER BY module_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list module state: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[ModuleState])
}

func saveCheckpoint(ctx context.Context, tx pgx.Tx, module string, block uint64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO module_state (module_name, last_processed_block, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (module_name) DO UPDATE SET
			last_processed_block = EXCLUDED.last_processed_block,
			updated_at = EXCLUDED.updated_at`,
		module, int64(block))
	if err != nil {
		return fmt.Errorf("failed to save checkpoint for %s: %w", module, err)
	}
	return nil
}
