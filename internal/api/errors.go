package api

import (
	"errors"
	"net/http"

	"github.com/dharsanguruparan/teradrop/internal/service"
)

const (
	codeBadRequest       = "BAD_REQUEST"
	codeFileTooLarge     = "FILE_TOO_LARGE"
	codeNotFound         = "NOT_FOUND"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	codeInternal         = "INTERNAL_ERROR"
)

var (
	errBodyTooLarge = errors.New("request body too large")
	errMalformed    = errors.New("malformed multipart request")
	errNameTooLong  = errors.New("name field too long")
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorBody{Error: message, Code: code})
}

// statusFor maps known errors to client statuses; anything else is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrMissingFile),
		errors.Is(err, service.ErrMissingName),
		errors.Is(err, errMalformed),
		errors.Is(err, errNameTooLong):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrFileTooLarge), errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrBlobMissing):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes the response for err. Server errors carry the
// underlying message unchanged.
func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch {
	case errors.Is(err, service.ErrMissingFile):
		writeError(w, status, codeBadRequest, "No file uploaded or invalid file type.")
	case errors.Is(err, service.ErrMissingName):
		writeError(w, status, codeBadRequest, "Missing file name.")
	case errors.Is(err, errNameTooLong):
		writeError(w, status, codeBadRequest, "File name field too long.")
	case errors.Is(err, errMalformed):
		writeError(w, status, codeBadRequest, err.Error())
	case status == http.StatusRequestEntityTooLarge:
		writeError(w, status, codeFileTooLarge, "File too large.")
	case errors.Is(err, service.ErrBlobMissing):
		writeError(w, status, codeNotFound, "File not found on disk.")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, status, codeNotFound, "File not found.")
	default:
		writeError(w, status, codeInternal, err.Error())
	}
}
