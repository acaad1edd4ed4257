// Package sessions persists opaque session payloads keyed by session id.
package sessions

import (
	"context"
	"time"
)

type Repository interface {
	Save(ctx context.Context, id string, data []byte, expiresAt time.Time) error
	// Load returns common.ErrorNotFound for unknown or expired ids.
	Load(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
