package main

import (
	"errors"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/teradrop/internal/config"
	"github.com/dharsanguruparan/teradrop/internal/worker"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume queued reclaim tasks from Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := config.SetupLogger(cfg)
			if cfg.RedisAddr == "" {
				return errors.New("REDIS_ADDR is required for the worker")
			}
			blobs, err := openBlobs(ctx, cfg)
			if err != nil {
				return err
			}

			srv := asynq.NewServer(redisOpt(cfg), asynq.Config{
				Concurrency: cfg.WorkerConcurrency,
			})
			processor := worker.NewProcessor(blobs, logger)
			if err := srv.Start(processor.Handler()); err != nil {
				return err
			}
			logger.Info("worker started", "concurrency", cfg.WorkerConcurrency)
			<-ctx.Done()
			srv.Shutdown()
			logger.Info("worker stopped")
			return nil
		},
	}
}
