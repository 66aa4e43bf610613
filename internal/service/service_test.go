package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/teradrop/internal/blobstore"
	"github.com/dharsanguruparan/teradrop/internal/model"
	"github.com/dharsanguruparan/teradrop/internal/repository"
)

var defaultTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp", "application/pdf", "text/plain"}

const testMaxSize = 5 << 20

type fixture struct {
	svc   *Service
	repo  repository.FileRepository
	blobs *blobstore.DiskStore
	dir   string
}

func newFixture(t *testing.T, repo repository.FileRepository) *fixture {
	t.Helper()
	dir := t.TempDir()
	blobs, err := blobstore.NewDiskStore(dir)
	require.NoError(t, err)
	if repo == nil {
		repo = repository.NewMemoryStore()
	}
	svc := New(repo, blobs, Options{AllowedTypes: defaultTypes, MaxFileSize: testMaxSize})
	return &fixture{svc: svc, repo: repo, blobs: blobs, dir: dir}
}

func (f *fixture) blobCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	return len(entries)
}

func fileInput(name, mimetype string, data []byte) *FileInput {
	return &FileInput{OriginalName: name, Mimetype: mimetype, Size: int64(len(data)), Content: bytes.NewReader(data)}
}

func TestUploadStoresBlobAndRecord(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	data := []byte("quarterly numbers")

	rec, err := f.svc.Upload(ctx, UploadInput{Name: "q1", File: fileInput("report 2024.txt", "text/plain", data)})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "q1", rec.CustomName)
	assert.Equal(t, "report 2024.txt", rec.OriginalName)
	assert.Equal(t, "text/plain", rec.Mimetype)
	assert.Equal(t, int64(len(data)), rec.Size)
	assert.False(t, rec.UploadDate.IsZero())
	assert.Regexp(t, `^\d+-\d+-report_2024\.txt$`, rec.Filename)

	stored, err := os.ReadFile(f.dir + "/" + rec.Filename)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestUploadValidationOrder(t *testing.T) {
	big := &FileInput{OriginalName: "big.png", Mimetype: "image/png", Size: testMaxSize + 1, Content: strings.NewReader("")}
	tests := []struct {
		name string
		in   UploadInput
		want error
	}{
		{name: "no file", in: UploadInput{Name: "x"}, want: ErrMissingFile},
		{name: "no file and no name", in: UploadInput{}, want: ErrMissingFile},
		{name: "disallowed type", in: UploadInput{Name: "x", File: fileInput("a.zip", "application/zip", []byte("PK"))}, want: ErrMissingFile},
		{name: "disallowed type without name", in: UploadInput{File: fileInput("a.zip", "application/zip", []byte("PK"))}, want: ErrMissingFile},
		{name: "unparseable type", in: UploadInput{Name: "x", File: fileInput("a.txt", "", []byte("a"))}, want: ErrMissingFile},
		{name: "missing name", in: UploadInput{File: fileInput("a.txt", "text/plain", []byte("a"))}, want: ErrMissingName},
		{name: "missing name beats size", in: UploadInput{File: big}, want: ErrMissingName},
		{name: "too large", in: UploadInput{Name: "x", File: big}, want: ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			_, err := f.svc.Upload(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)

			list, err := f.svc.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list, "rejected uploads must not create records")
			assert.Zero(t, f.blobCount(t), "rejected uploads must not create blobs")
		})
	}
}

func TestUploadAcceptsTypeParametersAndCase(t *testing.T) {
	f := newFixture(t, nil)
	rec, err := f.svc.Upload(context.Background(), UploadInput{Name: "n", File: fileInput("n.txt", "Text/Plain; charset=utf-8", []byte("hi"))})
	require.NoError(t, err)
	assert.Equal(t, "Text/Plain; charset=utf-8", rec.Mimetype, "mimetype is recorded as reported")
}

func TestUploadExactlyAtLimit(t *testing.T) {
	f := newFixture(t, nil)
	data := bytes.Repeat([]byte{'a'}, testMaxSize)
	rec, err := f.svc.Upload(context.Background(), UploadInput{Name: "limit", File: fileInput("a.txt", "text/plain", data)})
	require.NoError(t, err)
	assert.Equal(t, int64(testMaxSize), rec.Size)
}

type failingRepo struct {
	repository.FileRepository
	err error
}

func (r failingRepo) Create(context.Context, *model.FileRecord) error { return r.err }

type recordingReclaimer struct {
	filenames []string
	reasons   []string
}

func (r *recordingReclaimer) Reclaim(_ context.Context, filename, reason string) error {
	r.filenames = append(r.filenames, filename)
	r.reasons = append(r.reasons, reason)
	return nil
}

func TestUploadRecordFailureReclaimsBlobInline(t *testing.T) {
	f := newFixture(t, failingRepo{FileRepository: repository.NewMemoryStore(), err: errors.New("connection refused")})

	_, err := f.svc.Upload(context.Background(), UploadInput{Name: "n", File: fileInput("a.txt", "text/plain", []byte("abc"))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Zero(t, f.blobCount(t), "orphaned blob is removed")
}

func TestUploadRecordFailureUsesConfiguredReclaimer(t *testing.T) {
	dir := t.TempDir()
	blobs, err := blobstore.NewDiskStore(dir)
	require.NoError(t, err)
	reclaimer := &recordingReclaimer{}
	repo := failingRepo{FileRepository: repository.NewMemoryStore(), err: errors.New("write conflict")}
	svc := New(repo, blobs, Options{AllowedTypes: defaultTypes, MaxFileSize: testMaxSize, Reclaimer: reclaimer})

	_, err = svc.Upload(context.Background(), UploadInput{Name: "n", File: fileInput("a.txt", "text/plain", []byte("abc"))})
	require.Error(t, err)
	require.Len(t, reclaimer.filenames, 1)
	assert.Regexp(t, `-a\.txt$`, reclaimer.filenames[0])
	assert.Equal(t, []string{"write conflict"}, reclaimer.reasons)
}

type failingBlobs struct {
	blobstore.Store
}

func (failingBlobs) Put(context.Context, string, io.Reader, int64, string) error {
	return errors.New("disk full")
}

func TestUploadBlobFailureCreatesNoRecord(t *testing.T) {
	repo := repository.NewMemoryStore()
	svc := New(repo, failingBlobs{}, Options{AllowedTypes: defaultTypes, MaxFileSize: testMaxSize})

	_, err := svc.Upload(context.Background(), UploadInput{Name: "n", File: fileInput("a.txt", "text/plain", []byte("abc"))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture(t, nil)
	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	ctx := context.Background()
	for _, name := range []string{"one", "two", "three"} {
		_, err := f.svc.Upload(ctx, UploadInput{Name: name, File: fileInput(name+".txt", "text/plain", []byte(name))})
		require.NoError(t, err)
	}
	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "three", list[0].CustomName)
	assert.Equal(t, "two", list[1].CustomName)
	assert.Equal(t, "one", list[2].CustomName)
}

func TestOpenReturnsOriginalBytes(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	data := []byte{0x89, 'P', 'N', 'G', 0x00, 0x01}
	_, err := f.svc.Upload(ctx, UploadInput{Name: "logo", File: fileInput("logo.png", "image/png", data)})
	require.NoError(t, err)

	dl, err := f.svc.Open(ctx, "logo")
	require.NoError(t, err)
	defer dl.Blob.Close()
	got, err := io.ReadAll(dl.Blob)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, "logo.png", dl.Record.OriginalName)
	assert.Equal(t, "image/png", dl.Record.Mimetype)
}

func TestOpenFirstMatchWins(t *testing.T) {
	f := newFixture(t, nil)
	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	ctx := context.Background()
	_, err := f.svc.Upload(ctx, UploadInput{Name: "dup", File: fileInput("first.txt", "text/plain", []byte("first"))})
	require.NoError(t, err)
	_, err = f.svc.Upload(ctx, UploadInput{Name: "dup", File: fileInput("second.txt", "text/plain", []byte("second"))})
	require.NoError(t, err)

	dl, err := f.svc.Open(ctx, "dup")
	require.NoError(t, err)
	defer dl.Blob.Close()
	assert.Equal(t, "first.txt", dl.Record.OriginalName)
}

func TestOpenErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, "never")
	assert.ErrorIs(t, err, ErrNotFound)

	rec, err := f.svc.Upload(ctx, UploadInput{Name: "gone", File: fileInput("gone.txt", "text/plain", []byte("bye"))})
	require.NoError(t, err)
	require.NoError(t, os.Remove(f.dir+"/"+rec.Filename))

	_, err = f.svc.Open(ctx, "gone")
	assert.ErrorIs(t, err, ErrBlobMissing)
}

func TestUploadDateMatchesStoredPrecision(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC) }

	rec, err := f.svc.Upload(context.Background(), UploadInput{Name: "p", File: fileInput("p.txt", "text/plain", []byte("p"))})
	require.NoError(t, err)
	assert.Equal(t, 123456000, rec.UploadDate.Nanosecond())

	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].UploadDate.Equal(rec.UploadDate))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":          "report.pdf",
		"my file (1).txt":     "my_file__1_.txt",
		"../../etc/passwd":    ".._.._etc_passwd",
		"résumé.pdf":          "r_sum_.pdf",
		"a-b_c.D9":            "a-b_c.D9",
		"semi;colon|pipe.gif": "semi_colon_pipe.gif",
		"😀.png":              "_.png",
		"":                    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}

func TestStorageNameOnlySafeCharacters(t *testing.T) {
	safe := regexp.MustCompile(`^\d+-\d+-[A-Za-z0-9.\-_]*$`)
	at := time.UnixMilli(1700000000123)
	for _, original := range []string{"plain.txt", "spa ce.png", "ünï©ødé.webp", "a/b\\c.pdf", "日本語.txt", "<script>.gif"} {
		name := StorageName(at, 987654321, original)
		assert.Regexp(t, safe, name, original)
		assert.True(t, strings.HasPrefix(name, "1700000000123-987654321-"), name)
	}
}

func TestUploadKeepsOriginalNameUntouched(t *testing.T) {
	f := newFixture(t, nil)
	original := "../we!rd näme.txt"
	rec, err := f.svc.Upload(context.Background(), UploadInput{Name: "w", File: fileInput(original, "text/plain", []byte("x"))})
	require.NoError(t, err)
	assert.Equal(t, original, rec.OriginalName)
	assert.Regexp(t, `^\d+-\d+-[A-Za-z0-9.\-_]+$`, rec.Filename)
}
