package storage

import (
	"context"
	"io"
)

// ObjectStore defines the interface for reading stored file blobs.
type ObjectStore interface {
	// Open returns a ReadCloser for the object at bucket/key.
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Exists checks whether an object exists at bucket/key.
	Exists(ctx context.Context, bucket, key string) (bool, error)
}
