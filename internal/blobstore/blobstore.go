// Package blobstore holds the raw bytes of uploaded files under their
// generated storage names.
package blobstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when no blob exists under the requested name.
var ErrNotFound = errors.New("blob not found")

// Blob is an open stored object. Callers must Close it.
type Blob struct {
	io.ReadSeekCloser
	Size    int64
	ModTime time.Time
}

// Store writes, opens and removes blobs.
type Store interface {
	// Put stores size bytes read from r under name.
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	// Open returns ErrNotFound when the blob is absent.
	Open(ctx context.Context, name string) (*Blob, error)
	// Delete returns ErrNotFound when the blob is absent.
	Delete(ctx context.Context, name string) error
}
