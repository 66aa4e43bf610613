// Package service implements upload, listing and retrieval of named files on
// top of a metadata repository and a blob store.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"mime"
	"strings"
	"time"

	"github.com/dharsanguruparan/teradrop/internal/blobstore"
	"github.com/dharsanguruparan/teradrop/internal/metrics"
	"github.com/dharsanguruparan/teradrop/internal/model"
	"github.com/dharsanguruparan/teradrop/internal/repository"
)

var (
	// ErrMissingFile covers both an absent file part and a disallowed type.
	ErrMissingFile  = errors.New("no file uploaded or invalid file type")
	ErrMissingName  = errors.New("missing file name")
	ErrFileTooLarge = errors.New("file too large")
	ErrNotFound     = errors.New("file not found")
	// ErrBlobMissing means a record exists but its blob does not.
	ErrBlobMissing = errors.New("file not found on disk")
)

// FileInput is the file part of an upload.
type FileInput struct {
	OriginalName string
	Mimetype     string
	// Size is the number of bytes received; it may exceed the limit by one
	// when the sender was cut off.
	Size    int64
	Content io.Reader
}

// UploadInput is a parsed upload request. File is nil when the request had
// no file part.
type UploadInput struct {
	Name string
	File *FileInput
}

// Download is an open stored file. Callers must close Blob.
type Download struct {
	Record model.FileRecord
	Blob   *blobstore.Blob
}

// Options configures a Service.
type Options struct {
	AllowedTypes []string
	MaxFileSize  int64
	// Reclaimer disposes of blobs orphaned by a failed record write.
	// Defaults to deleting them inline.
	Reclaimer Reclaimer
	Logger    *slog.Logger
}

// Service orchestrates the metadata repository and blob store.
type Service struct {
	repo      repository.FileRepository
	blobs     blobstore.Store
	reclaimer Reclaimer
	allowed   map[string]bool
	maxSize   int64
	logger    *slog.Logger
	now       func() time.Time
	token     func() int64
}

// New constructs a Service.
func New(repo repository.FileRepository, blobs blobstore.Store, opts Options) *Service {
	allowed := make(map[string]bool, len(opts.AllowedTypes))
	for _, t := range opts.AllowedTypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = true
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reclaimer := opts.Reclaimer
	if reclaimer == nil {
		reclaimer = NewInlineReclaimer(blobs)
	}
	return &Service{
		repo:      repo,
		blobs:     blobs,
		reclaimer: reclaimer,
		allowed:   allowed,
		maxSize:   opts.MaxFileSize,
		logger:    logger,
		now:       time.Now,
		token:     func() int64 { return rand.Int63n(1_000_000_000) },
	}
}

// MaxFileSize returns the upload size limit in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.maxSize
}

// Upload validates in, stores the blob and records its metadata.
//
// Checks run in order: file present with an allowed type, name present,
// size within the limit. Nothing is written unless all pass.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*model.FileRecord, error) {
	if in.File == nil || !s.Accepts(in.File.Mimetype) {
		return nil, ErrMissingFile
	}
	if in.Name == "" {
		return nil, ErrMissingName
	}
	if in.File.Size > s.maxSize {
		return nil, ErrFileTooLarge
	}

	// Postgres keeps microseconds; the returned record matches what is stored.
	now := s.now().UTC().Truncate(time.Microsecond)
	filename := StorageName(now, s.token(), in.File.OriginalName)
	if err := s.blobs.Put(ctx, filename, in.File.Content, in.File.Size, in.File.Mimetype); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}
	rec := &model.FileRecord{
		OriginalName: in.File.OriginalName,
		Filename:     filename,
		Mimetype:     in.File.Mimetype,
		Size:         in.File.Size,
		UploadDate:   now,
		CustomName:   in.Name,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		s.reclaim(ctx, filename, err)
		return nil, fmt.Errorf("save file record: %w", err)
	}
	metrics.UploadedBytes.Add(float64(rec.Size))
	s.logger.InfoContext(ctx, "file uploaded",
		slog.String("id", rec.ID),
		slog.String("custom_name", rec.CustomName),
		slog.String("filename", rec.Filename),
		slog.Int64("size", rec.Size),
	)
	return rec, nil
}

// List returns every record, newest first.
func (s *Service) List(ctx context.Context) ([]model.FileRecord, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return records, nil
}

// Open resolves a logical name to its record and opens the blob. With
// duplicate names the earliest upload wins.
func (s *Service) Open(ctx context.Context, name string) (*Download, error) {
	rec, err := s.repo.FindByCustomName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find file: %w", err)
	}
	blob, err := s.blobs.Open(ctx, rec.Filename)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			s.logger.WarnContext(ctx, "record without blob",
				slog.String("custom_name", name),
				slog.String("filename", rec.Filename),
			)
			return nil, ErrBlobMissing
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return &Download{Record: *rec, Blob: blob}, nil
}

// Ping reports whether the metadata store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Accepts reports whether contentType is in the allowed set. Parameters such
// as charset are ignored.
func (s *Service) Accepts(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return s.allowed[mediaType]
}

func (s *Service) reclaim(ctx context.Context, filename string, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := s.reclaimer.Reclaim(ctx, filename, cause.Error()); err != nil {
		s.logger.ErrorContext(ctx, "reclaim orphaned blob failed",
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.WarnContext(ctx, "orphaned blob handed to reclaimer",
		slog.String("filename", filename),
		slog.String("cause", cause.Error()),
	)
}
