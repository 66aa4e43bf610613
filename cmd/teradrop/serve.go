package main

import (
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/teradrop/internal/api"
	"github.com/dharsanguruparan/teradrop/internal/config"
	"github.com/dharsanguruparan/teradrop/internal/queue"
	"github.com/dharsanguruparan/teradrop/internal/server"
	"github.com/dharsanguruparan/teradrop/internal/service"
)

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Port = port
			}
			logger := config.SetupLogger(cfg)

			repo, closeRepo, err := openRepository(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeRepo()
			blobs, err := openBlobs(ctx, cfg)
			if err != nil {
				return err
			}

			opts := service.Options{
				AllowedTypes: cfg.AllowedTypes,
				MaxFileSize:  cfg.MaxFileSize,
				Logger:       logger,
			}
			if cfg.RedisAddr != "" {
				client := asynq.NewClient(redisOpt(cfg))
				defer client.Close()
				opts.Reclaimer = queue.NewReclaimer(client)
				logger.Info("orphan reclaim queued via redis")
			}
			svc := service.New(repo, blobs, opts)
			handler := api.New(svc, logger)

			logger.Info("starting teradrop",
				"blob_backend", cfg.BlobBackend,
				"max_file_bytes", cfg.MaxFileSize,
			)
			return server.New(cfg.Address(), handler.Routes(), cfg.ShutdownTimeout, logger).Serve(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port, overriding PORT")
	return cmd
}
