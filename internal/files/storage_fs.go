package files

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"filesrus/internal/store"
)

// validNamePattern matches epoch-style blob names: alphanumeric segments
// joined by single dots. No path traversal is possible.
var validNamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+(\.[a-zA-Z0-9]+)*$`)

// FSStorage implements Storage using the local filesystem.
type FSStorage struct {
	basePath string
	baseURL  string // public base for served blobs, e.g. "/api/media"
}

// NewFSStorage creates a new filesystem-based storage. Blobs are advertised
// under baseURL, which the HTTP layer serves from the same directory.
func NewFSStorage(basePath, baseURL string) (*FSStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, err
	}
	return &FSStorage{basePath: basePath, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *FSStorage) validateName(name string) error {
	if name == "" || len(name) > 128 || !validNamePattern.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

func (s *FSStorage) path(name string) string {
	return filepath.Join(s.basePath, name)
}

func (s *FSStorage) ref(name string) *store.MediaRef {
	url := s.baseURL + "/" + name
	return &store.MediaRef{Name: name, URL: url, ImgixURL: url}
}

func (s *FSStorage) Save(ctx context.Context, name string, data io.Reader) (*store.MediaRef, int64, error) {
	return s.SaveWithProgress(ctx, name, data, -1, nil)
}

func (s *FSStorage) SaveWithProgress(ctx context.Context, name string, data io.Reader, size int64, onProgress ProgressFunc) (*store.MediaRef, int64, error) {
	if err := s.validateName(name); err != nil {
		return nil, 0, err
	}
	f, err := os.Create(s.path(name))
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var reader io.Reader = data
	if onProgress != nil {
		reader = &progressReader{
			reader:     data,
			total:      size,
			onProgress: onProgress,
		}
	}

	written, err := io.Copy(f, reader)
	if err != nil {
		return nil, written, err
	}
	return s.ref(name), written, nil
}

func (s *FSStorage) Load(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := s.validateName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *FSStorage) Delete(ctx context.Context, name string) error {
	if err := s.validateName(name); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
