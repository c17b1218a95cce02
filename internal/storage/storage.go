// Package storage describes the object store holding prompt assets and the
// Parquet datasets behind the local query backend.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
}

type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// List returns every object under prefix, sorted by key. Keys are relative
	// to the store, so they can be passed back to Get.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
