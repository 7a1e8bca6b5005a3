// Package worker implements the background ingestion worker command.
package worker

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"sellout-ingest/cmd/root"
	"sellout-ingest/internal/catalog"
	"sellout-ingest/internal/gateway"
	"sellout-ingest/internal/logging"
	"sellout-ingest/internal/pipeline"
	"sellout-ingest/internal/profile"
	"sellout-ingest/internal/worker"
)

var (
	concurrency int

	// Cmd is the worker command.
	Cmd = &cobra.Command{
		Use:   "worker",
		Short: "Run the background ingestion worker",
		Long: `Consume upload:ingest tasks from the Redis-backed queue and run each
stored upload through the pipeline. Requires a configured database and
Redis address.`,
		RunE: run,
	}
)

func init() {
	Cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "Number of concurrent tasks")
}

func run(cmd *cobra.Command, args []string) error {
	cfg := root.Cfg
	log := root.Log

	if cfg.Database.DSN == "" {
		return fmt.Errorf("the worker requires a configured database (SELLOUT_DATABASE_DSN)")
	}

	profiles, err := profile.LoadDir(cfg.Profiles.Directory, log)
	if err != nil {
		return err
	}

	store, err := gateway.NewMySQLStore(cfg.Database.DSN, log)
	if err != nil {
		return err
	}
	defer store.Close()

	products := catalog.NewMySQLCatalog(store.DB())
	p := pipeline.New(profiles, store, products, pipeline.Options{
		ChunkSize:           cfg.Pipeline.ChunkSize,
		MaxConcurrentChunks: cfg.Pipeline.MaxConcurrentChunks,
		InlineThreshold:     cfg.Pipeline.InlineThreshold,
		PersistBatchSize:    cfg.Pipeline.PersistBatchSize,
		PersistConcurrency:  cfg.Pipeline.PersistConcurrency,
		PersistRetries:      cfg.Pipeline.PersistRetries,
		PersistBackoff:      time.Duration(cfg.Pipeline.PersistBackoffMillis) * time.Millisecond,
	}, log)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.Redis.Addr},
		asynq.Config{Concurrency: concurrency},
	)

	mux := asynq.NewServeMux()
	worker.NewIngestHandler(p, rdb, log).Register(mux)

	log.Info("Worker started",
		logging.Field{Key: "redis", Value: cfg.Redis.Addr},
		logging.Field{Key: "concurrency", Value: concurrency})
	return srv.Run(mux)
}
