package service

import (
	"regexp"
	"strconv"
	"time"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]`)

// SanitizeFilename replaces every character outside [A-Za-z0-9.-_] with an
// underscore, one underscore per rune. A character outside the BMP, such as
// an emoji, becomes a single underscore rather than one per UTF-16 unit.
func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// StorageName builds the on-disk name for an upload:
// <unix millis>-<token>-<sanitized original name>.
func StorageName(at time.Time, token int64, originalName string) string {
	return strconv.FormatInt(at.UnixMilli(), 10) + "-" + strconv.FormatInt(token, 10) + "-" + SanitizeFilename(originalName)
}
