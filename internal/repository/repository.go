// Package repository persists FileRecord metadata. The service talks to the
// FileRepository interface; MongoDB, PostgreSQL and in-memory backends
// implement it.
package repository

import (
	"context"
	"errors"

	"github.com/dharsanguruparan/teradrop/internal/model"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("file record not found")

// FileRepository stores FileRecords.
//
// Records are never updated or deleted. FindByCustomName returns the earliest
// record carrying the name when several share it.
type FileRepository interface {
	// Create assigns rec.ID, defaults rec.UploadDate to now when zero, and
	// persists the record.
	Create(ctx context.Context, rec *model.FileRecord) error
	// List returns every record ordered by UploadDate, newest first.
	List(ctx context.Context) ([]model.FileRecord, error)
	FindByCustomName(ctx context.Context, name string) (*model.FileRecord, error)
	Ping(ctx context.Context) error
}
