package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Compile-time check that FileSystem implements ObjectStore.
var _ ObjectStore = (*FileSystem)(nil)

// FileSystem implements ObjectStore using the local filesystem, for local
// runs without an S3 endpoint. Objects are stored at <basePath>/<bucket>/<key>.
type FileSystem struct {
	basePath string
}

// NewFileSystem creates a new FileSystem store rooted at basePath.
func NewFileSystem(basePath string) *FileSystem {
	return &FileSystem{basePath: basePath}
}

// objectPath returns the full path for a bucket/key pair. Keys may contain
// slashes; segments that would escape the root are rejected.
func (fs *FileSystem) objectPath(bucket, key string) (string, error) {
	if bucket == "" || key == "" {
		return "", fmt.Errorf("bucket and key are required")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid key %q", key)
		}
	}
	return filepath.Join(fs.basePath, bucket, filepath.FromSlash(key)), nil
}

// Open opens the stored object and returns an io.ReadCloser.
func (fs *FileSystem) Open(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	path, err := fs.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object not found: %s/%s", bucket, key)
		}
		return nil, fmt.Errorf("opening file %s: %w", path, err)
	}
	return f, nil
}

// Exists checks whether the object exists on disk.
func (fs *FileSystem) Exists(_ context.Context, bucket, key string) (bool, error) {
	path, err := fs.objectPath(bucket, key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking file %s: %w", path, err)
}

// Store writes data to disk using atomic write (temp file + rename). It is
// used to seed local environments and tests; the gateway itself never writes.
func (fs *FileSystem) Store(bucket, key string, data io.Reader) (int64, error) {
	path, err := fs.objectPath(bucket, key)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	// Write to a temp file in the same directory for atomic rename.
	tmp, err := os.CreateTemp(dir, "object-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Clean up the temp file on any error path.
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, data)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("writing data: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("renaming temp file to %s: %w", path, err)
	}

	// Rename succeeded; prevent deferred cleanup from removing the final file.
	tmpPath = ""

	return n, nil
}

// Delete removes the stored object. It is idempotent: deleting a
// non-existent object returns no error.
func (fs *FileSystem) Delete(bucket, key string) error {
	path, err := fs.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing file %s: %w", path, err)
	}
	return nil
}
