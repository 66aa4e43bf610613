package service

import (
	"context"
	"errors"

	"github.com/dharsanguruparan/teradrop/internal/blobstore"
	"github.com/dharsanguruparan/teradrop/internal/metrics"
)

// Reclaimer disposes of a blob whose metadata record could not be written.
type Reclaimer interface {
	Reclaim(ctx context.Context, filename, reason string) error
}

// InlineReclaimer deletes orphaned blobs synchronously.
type InlineReclaimer struct {
	blobs blobstore.Store
}

// NewInlineReclaimer constructs an InlineReclaimer.
func NewInlineReclaimer(blobs blobstore.Store) *InlineReclaimer {
	return &InlineReclaimer{blobs: blobs}
}

// Reclaim deletes the blob; an already missing blob is not an error.
func (r *InlineReclaimer) Reclaim(ctx context.Context, filename, _ string) error {
	if err := r.blobs.Delete(ctx, filename); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return err
	}
	metrics.OrphansReclaimed.WithLabelValues("inline").Inc()
	return nil
}
