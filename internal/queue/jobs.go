// Package queue defines the background tasks exchanged over Redis.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/teradrop/internal/metrics"
)

const (
	// ReclaimBlobTask is scheduled when a blob was stored but its metadata
	// record could not be written.
	ReclaimBlobTask = "blob:reclaim"
)

// ReclaimPayload names the orphaned blob and why it was orphaned.
type ReclaimPayload struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// NewReclaimTask builds the task for payload.
func NewReclaimTask(payload ReclaimPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(ReclaimBlobTask, data), nil
}

// DecodeReclaim parses a reclaim task payload.
func DecodeReclaim(task *asynq.Task) (ReclaimPayload, error) {
	var payload ReclaimPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode payload: %w", err)
	}
	if payload.Filename == "" {
		return payload, fmt.Errorf("decode payload: empty filename: %w", asynq.SkipRetry)
	}
	return payload, nil
}

// EnqueueReclaim enqueues a blob reclaim job.
func EnqueueReclaim(ctx context.Context, client *asynq.Client, payload ReclaimPayload) error {
	task, err := NewReclaimTask(payload)
	if err != nil {
		return err
	}
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue reclaim task: %w", err)
	}
	return nil
}

// Reclaimer hands orphaned blobs to the worker instead of deleting them in
// the request path.
type Reclaimer struct {
	client *asynq.Client
}

// NewReclaimer constructs a Reclaimer on client.
func NewReclaimer(client *asynq.Client) *Reclaimer {
	return &Reclaimer{client: client}
}

// Reclaim enqueues filename for deletion.
func (r *Reclaimer) Reclaim(ctx context.Context, filename, reason string) error {
	if err := EnqueueReclaim(ctx, r.client, ReclaimPayload{Filename: filename, Reason: reason}); err != nil {
		return err
	}
	metrics.OrphansReclaimed.WithLabelValues("queued").Inc()
	return nil
}
