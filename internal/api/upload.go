package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/dharsanguruparan/teradrop/internal/service"
)

const (
	// multipartOverhead is the body allowance beyond the file size limit for
	// boundaries, headers and text fields.
	multipartOverhead = 1 << 20
	maxNameBytes      = 64 << 10
)

// parseUpload streams the multipart body. An allowed file part is spooled to
// a temp file, counting at most MaxFileSize+1 bytes so oversize input is
// detected without reading it all. A disallowed file part fails the request
// at once. The returned cleanup removes the temp file and is always non-nil.
func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request) (service.UploadInput, func(), error) {
	var in service.UploadInput
	var tmp *os.File
	cleanup := func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}

	limit := h.svc.MaxFileSize()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		return in, cleanup, service.ErrMissingFile
	}
	haveName := false
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return in, cleanup, partError(err)
		}
		switch part.FormName() {
		case "name":
			if haveName {
				break
			}
			value, err := io.ReadAll(io.LimitReader(part, maxNameBytes+1))
			if err != nil {
				part.Close()
				return in, cleanup, partError(err)
			}
			if len(value) > maxNameBytes {
				part.Close()
				return in, cleanup, errNameTooLong
			}
			in.Name = string(value)
			haveName = true
		case "file":
			filename, ok := originalFilename(part)
			if !ok || in.File != nil {
				break
			}
			mimetype := part.Header.Get("Content-Type")
			if mimetype == "" {
				mimetype = "text/plain"
			}
			// Later file parts are ignored, so a disallowed first file decides
			// the outcome without reading the rest of the body.
			if !h.svc.Accepts(mimetype) {
				return in, cleanup, service.ErrMissingFile
			}
			file := &service.FileInput{OriginalName: filename, Mimetype: mimetype}
			tmp, err = os.CreateTemp("", "teradrop-*")
			if err != nil {
				part.Close()
				return in, cleanup, fmt.Errorf("create temp file: %w", err)
			}
			file.Size, err = io.Copy(tmp, io.LimitReader(part, limit+1))
			if err != nil {
				part.Close()
				return in, cleanup, partError(err)
			}
			if _, err := tmp.Seek(0, io.SeekStart); err != nil {
				part.Close()
				return in, cleanup, fmt.Errorf("rewind temp file: %w", err)
			}
			file.Content = tmp
			in.File = file
		}
		part.Close()
	}
	return in, cleanup, nil
}

// originalFilename returns the filename parameter of the part exactly as the
// client sent it. Part.FileName is not used because it strips directories.
func originalFilename(part *multipart.Part) (string, bool) {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return "", false
	}
	name, ok := params["filename"]
	if !ok {
		return "", false
	}
	return name, true
}

func partError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errBodyTooLarge
	}
	return fmt.Errorf("%w: %v", errMalformed, err)
}
