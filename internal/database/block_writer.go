package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/emiswap/indexer/internal/store"
)

// BlockCommit is everything one processed block persists.
type BlockCommit struct {
	Module  string
	Block   uint64
	Records []store.Record
	Logs    []EventLog
}

// BlockWriter persists a block's entity writes, its archived logs and the
// module checkpoint in a single transaction, so a crash either keeps the
// whole block or none of it.
type BlockWriter struct {
	db     *Database
	logger zerolog.Logger
}

func NewBlockWriter(db *Database, logger zerolog.Logger) *BlockWriter {
	return &BlockWriter{
		db:     db,
		logger: logger.With().Str("component", "block_writer").Logger(),
	}
}

func (w *BlockWriter) CommitBlock(ctx context.Context, c BlockCommit) error {
	start := time.Now()
	err := w.db.Transaction(ctx, func(tx pgx.Tx) error {
		if err := writeEntities(ctx, tx, c.Records, c.Block); err != nil {
			return err
		}
		if err := copyEventLogs(ctx, tx, c.Logs); err != nil {
			return err
		}
		return saveCheckpoint(ctx, tx, c.Module, c.Block)
	})
	if err != nil {
		return fmt.Errorf("failed to commit block %d: %w", c.Block, err)
	}

	w.logger.Debug().
		Uint64("block", c.Block).
		Int("entities", len(c.Records)).
		Int("logs", len(c.Logs)).
		Dur("elapsed", time.Since(start)).
		Msg("Block committed")
	return nil
}

// copyEventLogs stages logs with COPY and merges them, skipping logs that
// were archived by an earlier run.
func copyEventLogs(ctx context.Context, tx pgx.Tx, logs []EventLog) error {
	if len(logs) == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, `
		CREATE TEMP TABLE IF NOT EXISTS temp_event_logs (
			LIKE event_logs INCLUDING DEFAULTS
		) ON COMMIT DROP`); err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}

	columns := []string{
		"block_number", "block_hash", "block_timestamp", "transaction_hash",
		"transaction_from", "log_index", "address", "topics", "data",
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"temp_event_logs"}, columns, &eventLogSource{logs: logs, idx: -1}); err != nil {
		return fmt.Errorf("failed to copy event logs: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO event_logs (`+strings.Join(columns, ", ")+`)
		SELECT `+strings.Join(columns, ", ")+` FROM temp_event_logs
		ON CONFLICT (block_number, log_index) DO NOTHING`); err != nil {
		return fmt.Errorf("failed to merge event logs: %w", err)
	}
	return nil
}

// eventLogSource implements pgx.CopyFromSource.
type eventLogSource struct {
	logs []EventLog
	idx  int
}

func (s *eventLogSource) Next() bool {
	s.idx++
	return s.idx < len(s.logs)
}

func (s *eventLogSource) Values() ([]interface{}, error) {
	l := s.logs[s.idx]
	return []interface{}{
		int64(l.BlockNumber),
		l.BlockHash,
		int64(l.BlockTimestamp),
		l.TransactionHash,
		l.TransactionFrom,
		int32(l.LogIndex),
		l.Address,
		l.Topics,
		l.Data,
	}, nil
}

func (s *eventLogSource) Err() error { return nil }
