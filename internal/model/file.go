// Package model contains simple struct definitions shared across packages.
package model

import (
	"time"
)

// FileRecord holds metadata about an uploaded file. One record is created per
// successful upload and never modified afterwards.
type FileRecord struct {
	ID string `json:"id"`
	// OriginalName is the filename exactly as the client sent it.
	OriginalName string `json:"originalName"`
	// Filename is the generated name the blob is stored under.
	Filename string `json:"filename"`
	Mimetype string `json:"mimetype"`
	Size     int64  `json:"size"`
	// UploadDate is set at creation time in UTC.
	UploadDate time.Time `json:"uploadDate"`
	// CustomName is the logical name chosen by the uploader; not unique.
	CustomName string `json:"customName"`
}
