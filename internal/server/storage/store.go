// Package storage provides the blob store boundary: payload bytes live in an
// S3-compatible object store, keyed by generated storage keys. The metadata
// layer never sees bytes, only keys.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore abstracts physical payload storage. Put must be durable before
// returning: the metadata row for an upload is only inserted after the
// payload is safely stored, so a failed request never leaves a record
// pointing at missing bytes.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string) (string, error)
}

// NewStorageKey returns a dated random object key, e.g.
// "uploads/2026/8/29/2f1e...". The key is opaque to callers; the date prefix
// only keeps bucket listings browsable.
func NewStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("uploads/%d/%d/%d/%v", d.Year(), int(d.Month()), d.Day(), uuid.New())
}
