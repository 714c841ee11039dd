// Package ports defines the interfaces the activities module needs from
// infrastructure.
package ports

import (
	"context"
	"io"
	"time"
)

// EvidenceStore persists activity evidence blobs. The MinIO adapter in
// internal/adapters/storage implements it.
type EvidenceStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
