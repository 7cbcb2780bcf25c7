package object

import (
	"context"
	"io"
	"time"
)

// Info describes a stored object returned by List.
type Info struct {
	Key          string
	SizeBytes    int64
	LastModified time.Time
}

// Store is the narrow object-storage contract the application depends on:
// keyed writes with side metadata, reads, prefix listing with folder
// discovery, signed download URLs, and deletes. Side metadata is for
// audit/debugging only; the metadata repository is the system of record.
type Store interface {
	Put(ctx context.Context, key string, contentType string, metadata map[string]string, r io.Reader) (sizeBytes int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	// ListFolders returns the common prefixes ("folders") directly under
	// prefix, without trailing slashes.
	ListFolders(ctx context.Context, prefix string) ([]string, error)
	Presign(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}
