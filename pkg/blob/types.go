package blob

import (
	"context"
	"io"
)

// Store is the destination for exported dataset archives.
type Store interface {
	// Put uploads content under key.
	Put(ctx context.Context, key string, reader io.Reader) error

	// Get retrieves the content stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// List returns the keys matching the prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes a stored archive.
	Delete(ctx context.Context, key string) error
}
