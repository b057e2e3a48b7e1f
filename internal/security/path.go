package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateObjectKey validates a storage key derived from scope and file
// names before it touches the filesystem. Keys are always relative and must
// not climb out of the store root.
func ValidateObjectKey(key string) error {
	if key == "" {
		return fmt.Errorf("object key cannot be empty")
	}
	if strings.ContainsRune(key, '\x00') {
		return fmt.Errorf("object key contains NUL byte")
	}

	clean := filepath.Clean(key)
	if strings.Contains(clean, "..") {
		return fmt.Errorf("object key contains directory traversal: %s", key)
	}
	if filepath.IsAbs(clean) {
		return fmt.Errorf("object key must be relative: %s", key)
	}
	return nil
}

// ValidateLocalPath validates a filesystem path supplied through
// configuration (database file, storage root, config file).
func ValidateLocalPath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("path contains NUL byte")
	}
	if strings.Contains(filepath.Clean(path), "..") {
		return fmt.Errorf("path contains directory traversal: %s", path)
	}
	return nil
}

// WithinBase reports whether key resolves inside baseDir.
func WithinBase(key, baseDir string) error {
	if err := ValidateObjectKey(key); err != nil {
		return err
	}
	full := filepath.Clean(filepath.Join(baseDir, key))
	base := filepath.Clean(baseDir)
	if full != base && !strings.HasPrefix(full, base+string(filepath.Separator)) {
		return fmt.Errorf("object key escapes storage root: %s", key)
	}
	return nil
}
