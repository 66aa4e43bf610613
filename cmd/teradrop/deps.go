package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/teradrop/internal/blobstore"
	"github.com/dharsanguruparan/teradrop/internal/config"
	"github.com/dharsanguruparan/teradrop/internal/database"
	"github.com/dharsanguruparan/teradrop/internal/repository"
)

// openRepository connects to the store named by DATABASE_URL and brings its
// schema up to date. The returned func releases the connection.
func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.FileRepository, func(), error) {
	kind, err := database.DetectKind(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	switch kind {
	case database.KindPostgres:
		version, err := database.Migrate(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("postgres schema ready", "version", version)
		pool, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresRepository(pool), pool.Close, nil
	default:
		db, err := database.ConnectMongo(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = db.Client().Disconnect(context.Background()) }
		repo := repository.NewMongoRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		logger.Info("mongodb indexes ready", "database", db.Name())
		return repo, closeFn, nil
	}
}

func openBlobs(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	if cfg.BlobBackend != config.BlobBackendS3 {
		disk, err := blobstore.NewDiskStore(cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		return disk, nil
	}
	store, err := blobstore.NewS3Store(blobstore.S3Options{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	return store, nil
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}
