package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/emiswap/indexer/internal/chain"
	"github.com/emiswap/indexer/internal/config"
	"github.com/emiswap/indexer/internal/database"
	"github.com/emiswap/indexer/internal/deployment"
	"github.com/emiswap/indexer/internal/modules/emiswap"
	"github.com/emiswap/indexer/internal/processor"
	"github.com/emiswap/indexer/internal/rpc"
	"github.com/emiswap/indexer/internal/store"
)

// replay re-applies the archived event logs to an empty in-memory store and
// prints the digest of the resulting entity set.
func main() {
	var (
		configPath string
		from, to   uint64
	)
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.Uint64Var(&from, "from", 0, "First block to replay (default: deployment start block)")
	flag.Uint64Var(&to, "to", 0, "Last block to replay (default: latest archived block)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := setupLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	digest, err := replay(ctx, cfg, from, to, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Replay failed")
	}
	fmt.Println(digest)
}

func replay(ctx context.Context, cfg *config.Config, from, to uint64, logger zerolog.Logger) (string, error) {
	dep, err := deployment.Load(cfg.Processor.Manifest)
	if err != nil {
		return "", fmt.Errorf("failed to load deployment manifest: %w", err)
	}
	if from == 0 {
		from = dep.StartBlock()
	}

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return "", fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if to == 0 {
		if to, err = db.LatestArchivedBlock(ctx); err != nil {
			return "", err
		}
	}

	client, err := rpc.NewClient(rpc.Options{
		Endpoint:           cfg.Chain.RPCEndpoint,
		ChainID:            cfg.Chain.ChainID,
		RequestTimeout:     cfg.Chain.RequestTimeout,
		MaxConcurrentCalls: cfg.Chain.MaxConcurrentCalls,
	}, logger)
	if err != nil {
		return "", fmt.Errorf("failed to create RPC client: %w", err)
	}
	defer client.Close()

	decoder, err := emiswap.NewDecoder()
	if err != nil {
		return "", err
	}
	backend := store.NewMemoryBackend()
	dispatcher, err := processor.NewDispatcher(processor.DispatcherOptions{
		Engine:  emiswap.New(dep, logger),
		Decoder: decoder,
		Reader:  chain.NewContractReader(client, dep.Factory()),
		Base:    backend,
		Sink:    processor.MemorySink{Backend: backend},
	}, logger)
	if err != nil {
		return "", err
	}

	logger.Info().Uint64("from", from).Uint64("to", to).Msg("Replaying archived logs")
	start := time.Now()

	var (
		current processor.Block
		blocks  int
	)
	flush := func() error {
		if len(current.Entries) == 0 {
			return nil
		}
		if err := dispatcher.ApplyBlock(ctx, current); err != nil {
			return fmt.Errorf("block %d: %w", current.Number, err)
		}
		blocks++
		current = processor.Block{}
		return nil
	}

	err = db.StreamEventLogs(ctx, from, to, func(l database.EventLog) error {
		if l.BlockNumber != current.Number {
			if err := flush(); err != nil {
				return err
			}
			current.Number = l.BlockNumber
		}
		log, err := l.Log()
		if err != nil {
			return err
		}
		current.Entries = append(current.Entries, processor.Entry{
			Log:       log,
			Timestamp: l.BlockTimestamp,
			TxFrom:    l.TransactionFrom,
		})
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		return "", err
	}

	logger.Info().
		Int("blocks", blocks).
		Int("entities", backend.Len()).
		Dur("duration", time.Since(start)).
		Msg("Replay complete")
	return backend.Digest(), nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	// stdout carries the digest
	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}
