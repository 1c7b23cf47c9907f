// Package storage persists produced export archives on a filesystem
// abstraction so tests can run against an in-memory fs.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Store persists export files under relative paths
type Store interface {
	Put(path string, r io.Reader) (int64, error)
	Open(path string) (io.ReadCloser, error)
	Size(path string) (int64, error)
	Exists(path string) (bool, error)
	Delete(path string) error
}

// FileStore implements Store on an afero filesystem rooted at baseDir
type FileStore struct {
	fs      afero.Fs
	baseDir string
}

// NewFileStore creates a store rooted at baseDir on the given filesystem
func NewFileStore(fs afero.Fs, baseDir string) *FileStore {
	return &FileStore{
		fs:      fs,
		baseDir: baseDir,
	}
}

func (s *FileStore) fullPath(path string) string {
	return filepath.Join(s.baseDir, path)
}

// Put writes the reader's content to path, creating parent directories
// as needed, and returns the number of bytes written.
func (s *FileStore) Put(path string, r io.Reader) (int64, error) {
	full := s.fullPath(path)

	if err := s.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create export directory: %w", err)
	}

	f, err := s.fs.Create(full)
	if err != nil {
		return 0, fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return 0, fmt.Errorf("failed to write export file: %w", err)
	}

	return n, nil
}

// Open opens a stored file for reading
func (s *FileStore) Open(path string) (io.ReadCloser, error) {
	f, err := s.fs.Open(s.fullPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	return f, nil
}

// Size returns the size of a stored file in bytes
func (s *FileStore) Size(path string) (int64, error) {
	info, err := s.fs.Stat(s.fullPath(path))
	if err != nil {
		return 0, fmt.Errorf("failed to stat export file: %w", err)
	}
	return info.Size(), nil
}

// Exists reports whether a file is present
func (s *FileStore) Exists(path string) (bool, error) {
	_, err := s.fs.Stat(s.fullPath(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat export file: %w", err)
}

// Delete removes a stored file. Deleting a missing file is not an error.
func (s *FileStore) Delete(path string) error {
	err := s.fs.Remove(s.fullPath(path))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete export file: %w", err)
	}
	return nil
}
