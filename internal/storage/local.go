package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects as files under a root directory.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		root = "data"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (l *LocalStore) Root() string { return l.root }

// path maps an object name to a file below root, refusing names that would
// leave it.
func (l *LocalStore) path(objectName string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(objectName))
	if objectName == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object name %q", objectName)
	}
	return filepath.Join(l.root, clean), nil
}

func (l *LocalStore) Upload(_ context.Context, r io.Reader, objectName, _ string) (*UploadResult, error) {
	p, err := l.path(objectName)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	size, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write %s: %w", objectName, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to store %s: %w", objectName, err)
	}

	return &UploadResult{ObjectName: objectName, URL: "file://" + filepath.ToSlash(p), Size: size}, nil
}

func (l *LocalStore) Read(_ context.Context, objectName string) (io.ReadCloser, error) {
	p, err := l.path(objectName)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", objectName, err)
	}
	return f, nil
}

func (l *LocalStore) Delete(_ context.Context, objectName string) error {
	p, err := l.path(objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", objectName, err)
	}
	return nil
}

func (l *LocalStore) Close() error { return nil }
