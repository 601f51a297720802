package database

import (
	"context"
	"fmt"
)

// EventLogPageSize bounds the rows read per query while streaming.
const EventLogPageSize = 5000

// StreamEventLogs calls fn for every archived log with from <= block <= to,
// in (block_number, log_index) order.
func (db *Database) StreamEventLogs(ctx context.Context, from, to uint64, fn func(EventLog) error) error {
	cursorBlock, cursorIndex := int64(from), int32(-1)
	for {
		rows, err := db.pool.Query(ctx, `
			SELECT block_number, block_hash, block_timestamp, transaction_hash,
			       transaction_from, log_index, address, topics, data
			FROM event_logs
			WHERE (block_number, log_index) > ($1, $2) AND block_number <= $3
			ORDER BY block_number, log_index
			LIMIT $4`,
			cursorBlock, cursorIndex, int64(to), EventLogPageSize)
		if err != nil {
			return fmt.Errorf("failed to query event logs: %w", err)
		}

		var page []EventLog
		for rows.Next() {
			var (
				l         EventLog
				block, ts int64
				logIndex  int32
			)
			if err := rows.Scan(&block, &l.BlockHash, &ts, &l.TransactionHash,
				&l.TransactionFrom, &logIndex, &l.Address, &l.Topics, &l.Data); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan event log: %w", err)
			}
			l.BlockNumber = uint64(block)
			l.BlockTimestamp = uint64(ts)
			l.LogIndex = uint(logIndex)
			page = append(page, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to read event logs: %w", err)
		}

		for _, l := range page {
			if err := fn(l); err != nil {
				return err
			}
		}
		if len(page) < EventLogPageSize {
			return nil
		}
		last := page[len(page)-1]
		cursorBlock, cursorIndex = int64(last.BlockNumber), int32(last.LogIndex)
	}
}

// LatestArchivedBlock returns the highest archived block, or ErrNotFound.
func (db *Database) LatestArchivedBlock(ctx context.Context) (uint64, error) {
	var block *int64
	if err := db.pool.QueryRow(ctx, `SELECT MAX(block_number) FROM event_logs`).Scan(&block); err != nil {
		return 0, fmt.Errorf("failed to get latest archived block: %w", err)
	}
	if block == nil {
		return 0, ErrNotFound
	}
	return uint64(*block), nil
}
