// Package blob stores uploaded images and tells where they can be fetched.
package blob

import (
	"context"
	"io"
	"strings"

	"github.com/Laisky/errors/v2"
)

// ErrSinkUnavailable is returned by a sink that failed to initialize
var ErrSinkUnavailable = errors.New("blob sink unavailable")

// Sink accepts uploads.
type Sink interface {
	// Store writes r under fileID and returns the location to embed in a note.
	// size is a hint, -1 if unknown.
	Store(ctx context.Context, r io.Reader, size int64, contentType, fileID string) (location string, err error)
	// AddressOf returns the location of fileID without touching storage
	AddressOf(fileID string) string
}

// validFileID rejects ids that could escape the storage root or bucket prefix
func validFileID(fileID string) error {
	if fileID == "" || fileID == "." || fileID == ".." ||
		strings.ContainsAny(fileID, `/\`) {
		return errors.Errorf("invalid file id %q", fileID)
	}

	return nil
}
