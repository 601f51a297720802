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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/emiswap/indexer/internal/api"
	"github.com/emiswap/indexer/internal/chain"
	"github.com/emiswap/indexer/internal/config"
	"github.com/emiswap/indexer/internal/database"
	"github.com/emiswap/indexer/internal/deployment"
	"github.com/emiswap/indexer/internal/metrics"
	"github.com/emiswap/indexer/internal/modules/emiswap"
	"github.com/emiswap/indexer/internal/processor"
	"github.com/emiswap/indexer/internal/realtime"
	"github.com/emiswap/indexer/internal/rpc"
	"github.com/emiswap/indexer/internal/scheduler"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Indexer failed")
	}
	logger.Info().Msg("Indexer shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	dep, err := deployment.Load(cfg.Processor.Manifest)
	if err != nil {
		return fmt.Errorf("failed to load deployment manifest: %w", err)
	}
	logger.Info().
		Str("deployment", dep.Name()).
		Str("network", dep.Network()).
		Str("factory", dep.Factory()).
		Msg("Starting EmiSwap indexer")

	m := metrics.New()

	if err := database.RunMigrations(ctx, cfg.Database.ConnectionString(), logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	client, err := rpc.NewClient(rpc.Options{
		Endpoint:           cfg.Chain.RPCEndpoint,
		ChainID:            cfg.Chain.ChainID,
		RequestTimeout:     cfg.Chain.RequestTimeout,
		MaxConcurrentCalls: cfg.Chain.MaxConcurrentCalls,
		Observer:           m.ObserveRPC,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create RPC client: %w", err)
	}
	defer client.Close()

	var reader chain.Reader = chain.NewContractReader(client, dep.Factory())
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis unreachable, metadata reads go to the node")
		}
		reader = chain.NewCachedReader(reader, rdb, dep.Name(), cfg.Redis.MetadataTTL, logger)
	}

	decoder, err := emiswap.NewDecoder()
	if err != nil {
		return err
	}
	entities := database.NewEntityStore(db)
	dispatcher, err := processor.NewDispatcher(processor.DispatcherOptions{
		Engine:     emiswap.New(dep, logger),
		Decoder:    decoder,
		Reader:     reader,
		Base:       entities,
		Sink:       database.NewBlockWriter(db, logger),
		Metrics:    m,
		ArchiveLog: cfg.Processor.ArchiveLogs,
	}, logger)
	if err != nil {
		return err
	}

	if cfg.Realtime.Enabled {
		publisher := realtime.NewPublisher(realtime.NewClient(realtime.PublishConfig{
			APIURL: cfg.Realtime.APIURL,
			APIKey: cfg.Realtime.APIKey,
		}), entities, logger)
		defer publisher.Close()
		dispatcher.OnBlockCommitted(publisher.BlockCommitted)
	}

	startBlock := cfg.Chain.StartBlock
	if startBlock == 0 {
		startBlock = dep.StartBlock()
	}
	indexer := processor.NewIndexer(processor.NewRPCSource(client), dispatcher, db, entities, processor.IndexerOptions{
		StartBlock:    startBlock,
		BatchSize:     cfg.Chain.BlockBatchSize,
		Confirmations: cfg.Chain.Confirmations,
	}, m, logger)

	follow, err := scheduler.NewFollowScheduler(indexer, cfg.Processor.PollInterval, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Server.MetricsEnabled {
		health := api.NewHealth(
			api.PingerFunc(db.Pool().Ping),
			api.PingerFunc(func(ctx context.Context) error {
				_, err := client.GetLatestBlockNumber(ctx)
				return err
			}),
			indexer.Status,
			logger,
		)
		g.Go(func() error { return m.Serve(gctx, cfg.Server.MetricsPort, logger, health.Register) })
	}
	g.Go(func() error { return follow.Run(gctx) })
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				st := indexer.Status()
				logger.Info().
					Uint64("next_block", st.NextBlock).
					Uint64("chain_head", st.ChainHead).
					Int("pairs", st.Pairs).
					Msg("Sync status")
			}
		}
	})

	err = g.Wait()
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05.000",
		}
		return zerolog.New(output).Level(level).With().Timestamp().Caller().Logger()
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Caller().Logger()
}
