package service

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// NewFileID generates a storage key for an uploaded file,
// `<uuid>.<ext>` where ext is the substring after the last dot of filename.
// filename without extension yields a bare uuid.
func NewFileID(filename string) string {
	id := uuid.NewString()
	if ext := fileExt(filename); ext != "" {
		return id + "." + ext
	}

	return id
}

func fileExt(filename string) string {
	filename = path.Base(strings.ReplaceAll(filename, `\`, "/"))
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}

	return filename[idx+1:]
}
