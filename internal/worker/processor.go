// Package worker consumes queued background tasks.
package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/teradrop/internal/blobstore"
	"github.com/dharsanguruparan/teradrop/internal/metrics"
	"github.com/dharsanguruparan/teradrop/internal/queue"
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	blobs  blobstore.Store
	logger *slog.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(blobs blobstore.Store, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{blobs: blobs, logger: logger}
}

// Handler registers the task handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ReclaimBlobTask, p.handleReclaim)
	return mux
}

func (p *Processor) handleReclaim(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.DecodeReclaim(task)
	if err != nil {
		return err
	}
	err = p.blobs.Delete(ctx, payload.Filename)
	if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		p.logger.ErrorContext(ctx, "reclaim failed",
			slog.String("filename", payload.Filename),
			slog.String("error", err.Error()),
		)
		return err
	}
	metrics.OrphansReclaimed.WithLabelValues("worker").Inc()
	p.logger.InfoContext(ctx, "orphaned blob reclaimed",
		slog.String("filename", payload.Filename),
		slog.String("reason", payload.Reason),
		slog.Bool("already_gone", err != nil),
	)
	return nil
}
