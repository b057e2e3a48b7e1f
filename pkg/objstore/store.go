package objstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"reefops/internal/security"

	"github.com/gabriel-vasile/mimetype"
)

// Object describes a stored file.
type Object struct {
	Key       string
	Path      string
	URL       string
	Name      string
	MimeType  string
	SizeBytes int64
}

// Store is the object-storage boundary: upload with metadata, delete by key,
// and URL retrieval.
type Store interface {
	Save(ctx context.Context, key string, r io.Reader) (*Object, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// FileStore keeps objects on the local filesystem under a base directory.
type FileStore struct {
	baseDir string
	baseURL string
}

func NewFileStore(baseDir, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{
		baseDir: baseDir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Save streams r into the store under key. The key must be a clean relative
// path; writes land in a temp file first so a failed upload never leaves a
// partial object at the final path.
func (s *FileStore) Save(ctx context.Context, key string, r io.Reader) (*Object, error) {
	if err := security.ValidateObjectKey(key); err != nil {
		return nil, fmt.Errorf("invalid object key: %w", err)
	}

	if err := security.WithinBase(key, s.baseDir); err != nil {
		return nil, fmt.Errorf("invalid object key: %w", err)
	}
	dest := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return nil, fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	size, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write object: %w", err)
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpPath)
		return nil, err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to finalize object: %w", err)
	}

	mime, err := mimetype.DetectFile(dest)
	mimeStr := "application/octet-stream"
	if err == nil {
		mimeStr = mime.String()
	}

	return &Object{
		Key:       key,
		Path:      dest,
		URL:       s.PublicURL(key),
		Name:      filepath.Base(key),
		MimeType:  mimeStr,
		SizeBytes: size,
	}, nil
}

// Delete removes the object. Deleting a missing key is not an error.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := security.ValidateObjectKey(key); err != nil {
		return fmt.Errorf("invalid object key: %w", err)
	}
	if err := security.WithinBase(key, s.baseDir); err != nil {
		return fmt.Errorf("invalid object key: %w", err)
	}
	dest := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// PublicURL returns the URL clients use to fetch the object.
func (s *FileStore) PublicURL(key string) string {
	return s.baseURL + "/" + key
}
