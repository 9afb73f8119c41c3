package blob

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Laisky/errors/v2"
)

// LocalURLPrefix is the http path the upload directory is served under
const LocalURLPrefix = "/uploads/"

var _ Sink = (*Local)(nil)

// Local writes uploads into a directory on disk
type Local struct {
	root string
}

// NewLocal create a sink writing into root
func NewLocal(root string) *Local {
	return &Local{root: root}
}

// Root returns the upload directory
func (l *Local) Root() string {
	return l.root
}

// AddressOf returns `/uploads/<fileID>`
func (l *Local) AddressOf(fileID string) string {
	return LocalURLPrefix + fileID
}

// Store writes r to `<root>/<fileID>`.
// The root directory is created if missing, its parent must exist.
func (l *Local) Store(ctx context.Context, r io.Reader, _ int64, _ string, fileID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.WithStack(err)
	}
	if err := validFileID(fileID); err != nil {
		return "", errors.WithStack(err)
	}

	if err := os.Mkdir(l.root, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return "", errors.Wrapf(err, "create upload dir %q", l.root)
	}

	fpath := filepath.Join(l.root, fileID)
	fp, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrapf(err, "create file %q", fpath)
	}

	if _, err = io.Copy(fp, r); err != nil {
		_ = fp.Close()
		return "", errors.Wrapf(err, "write file %q", fpath)
	}
	if err = fp.Close(); err != nil {
		return "", errors.Wrapf(err, "close file %q", fpath)
	}

	return l.AddressOf(fileID), nil
}
