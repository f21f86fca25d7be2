package files

import (
	"context"
	"errors"
	"io"

	"filesrus/internal/store"
)

var ErrNotFound = errors.New("file not found")
var ErrInvalidName = errors.New("invalid blob name")

// ProgressFunc is called during upload with bytes written and total size.
// If total is -1, the total size is unknown.
type ProgressFunc func(written, total int64)

// Storage defines the interface for blob storage. Save returns the media
// reference for the stored blob along with the byte count written; a nil or
// nameless reference means the backend stored nothing and the upload failed.
type Storage interface {
	Save(ctx context.Context, name string, data io.Reader) (*store.MediaRef, int64, error)
	SaveWithProgress(ctx context.Context, name string, data io.Reader, size int64, onProgress ProgressFunc) (*store.MediaRef, int64, error)
	Load(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

// progressReader wraps an io.Reader and reports progress as data is read.
type progressReader struct {
	reader     io.Reader
	total      int64
	read       int64
	onProgress ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)
		if pr.onProgress != nil {
			pr.onProgress(pr.read, pr.total)
		}
	}
	return n, err
}
