package database

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/emiswap/indexer/internal/entity"
	"github.com/emiswap/indexer/internal/store"
)

// setupTestDB starts a PostgreSQL container and applies the migrations.
func setupTestDB(t *testing.T) *Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, RunMigrations(ctx, dsn, zerolog.Nop()))
	// a second run is a no-op
	require.NoError(t, RunMigrations(ctx, dsn, zerolog.Nop()))

	db, err := Open(ctx, dsn, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestEntityStoreRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	es := NewEntityStore(db)

	tx := store.Begin(ctx, es)
	tx.Save(&entity.User{ID: "0xabc"})
	tx.Save(&entity.Bundle{ID: entity.BundleID})
	require.NoError(t, tx.Commit())

	read := store.Begin(ctx, es)
	u, err := read.GetUser("0xabc")
	require.NoError(t, err)
	assert.True(t, u.USDSwapped.IsZero())

	_, ok, err := read.FindUser("0xdef")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := es.Count(ctx, entity.KindUser)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, err := es.IDs(ctx, entity.KindUser)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc"}, ids)
}

func TestCommitBlockIsAtomic(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	w := NewBlockWriter(db, zerolog.Nop())

	_, err := db.LastProcessedBlock(ctx, "emiswap")
	assert.ErrorIs(t, err, ErrNotFound)

	logs := []EventLog{
		{BlockNumber: 10, BlockHash: "0xb", BlockTimestamp: 100, TransactionHash: "0xt", TransactionFrom: "0xf", LogIndex: 1, Address: "0xp", Topics: []string{"0x1"}, Data: "0x"},
		{BlockNumber: 10, BlockHash: "0xb", BlockTimestamp: 100, TransactionHash: "0xt", TransactionFrom: "0xf", LogIndex: 0, Address: "0xp", Topics: []string{"0x2", "0x3"}, Data: "0x01"},
	}
	require.NoError(t, w.CommitBlock(ctx, BlockCommit{
		Module:  "emiswap",
		Block:   10,
		Records: []store.Record{{Kind: entity.KindUser, ID: "0xa", Data: []byte(`{"id":"0xa","usdSwapped":"0"}`)}},
		Logs:    logs,
	}))

	last, err := db.LastProcessedBlock(ctx, "emiswap")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), last)

	// archived logs are not duplicated on a re-run
	require.NoError(t, w.CommitBlock(ctx, BlockCommit{Module: "emiswap", Block: 10, Logs: logs}))

	var got []EventLog
	require.NoError(t, db.StreamEventLogs(ctx, 0, 100, func(l EventLog) error {
		got = append(got, l)
		return nil
	}))
	require.Len(t, got, 2)
	assert.Equal(t, uint(0), got[0].LogIndex)
	assert.Equal(t, []string{"0x2", "0x3"}, got[0].Topics)
	assert.Equal(t, uint64(100), got[1].BlockTimestamp)

	latest, err := db.LatestArchivedBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), latest)

	// an invalid record rolls back the checkpoint too
	err = w.CommitBlock(ctx, BlockCommit{
		Module:  "emiswap",
		Block:   11,
		Records: []store.Record{{Kind: entity.KindUser, ID: "0xb", Data: []byte(`not json`)}},
	})
	require.Error(t, err)
	last, err = db.LastProcessedBlock(ctx, "emiswap")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), last)

	states, err := db.ModuleStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "emiswap", states[0].ModuleName)
}
