package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Storage provides a simple file-based storage backend.
// It stores files under a specified base path on the local filesystem.
type Storage struct {
	basePath string
}

// NewStorage creates a new Storage instance with the given basePath.
// The basePath defines the root directory where files will be stored.
func NewStorage(basePath string) *Storage {
	return &Storage{basePath: basePath}
}

// BasePath returns the root directory of the storage.
func (s *Storage) BasePath() string {
	return s.basePath
}

// Save stores src in the given subdirectory with the provided filename.
// The file is written to a temporary name first and renamed into place,
// so readers never observe a partially written file.
func (s *Storage) Save(subdir, filename string, src io.Reader) (string, error) {
	dir := filepath.Join(s.basePath, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	dstPath := filepath.Join(dir, filename)
	tmp, err := os.CreateTemp(dir, "."+filename+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", dstPath, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to save file %s: %w", dstPath, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to save file %s: %w", dstPath, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("failed to save file %s: %w", dstPath, err)
	}
	if err := os.Rename(tmp.Name(), dstPath); err != nil {
		return "", fmt.Errorf("failed to save file %s: %w", dstPath, err)
	}

	return dstPath, nil
}

// Load opens the file and returns a reader.
func (s *Storage) Load(subdir, filename string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.basePath, subdir, filename))
}

// Exists reports whether a regular file is stored under subdir/filename.
func (s *Storage) Exists(subdir, filename string) bool {
	info, err := os.Stat(filepath.Join(s.basePath, subdir, filename))
	return err == nil && info.Mode().IsRegular()
}

// Delete removes the file from storage.
func (s *Storage) Delete(subdir, filename string) error {
	return os.Remove(filepath.Join(s.basePath, subdir, filename))
}
