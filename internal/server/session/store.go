// Package session implements server-side, cookie-keyed sessions with flash
// messages. Payloads live in Redis or in the Postgres sessions table.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/logingate/internal/common"
	"github.com/dmitrijs2005/logingate/internal/dbx"
	"github.com/dmitrijs2005/logingate/internal/server/repositories/sessions"
	"github.com/redis/go-redis/v9"
)

// Store persists encoded session payloads. Load returns common.ErrorNotFound
// for unknown or expired ids.
type Store interface {
	Save(ctx context.Context, id string, data []byte, expiresAt time.Time) error
	Load(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

const defaultRedisPrefix = "logingate:session:"

// RedisStore keeps sessions as plain keys with a TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: defaultRedisPrefix}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

func (r *RedisStore) Save(ctx context.Context, id string, data []byte, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, id)
	}
	return r.client.Set(ctx, r.key(id), data, ttl).Err()
}

func (r *RedisStore) Load(ctx context.Context, id string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return data, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

// SQLStore adapts the sessions repository, bounding every call by the
// configured query timeout.
type SQLStore struct {
	repo    sessions.Repository
	timeout time.Duration
}

func NewSQLStore(repo sessions.Repository, timeout time.Duration) *SQLStore {
	return &SQLStore{repo: repo, timeout: timeout}
}

func (s *SQLStore) Save(ctx context.Context, id string, data []byte, expiresAt time.Time) error {
	ctx, cancel := dbx.Bound(ctx, s.timeout)
	defer cancel()
	return s.repo.Save(ctx, id, data, expiresAt)
}

func (s *SQLStore) Load(ctx context.Context, id string) ([]byte, error) {
	ctx, cancel := dbx.Bound(ctx, s.timeout)
	defer cancel()
	return s.repo.Load(ctx, id)
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := dbx.Bound(ctx, s.timeout)
	defer cancel()
	return s.repo.Delete(ctx, id)
}

// Purge drops expired rows. Redis expires keys on its own.
func (s *SQLStore) Purge(ctx context.Context) (int64, error) {
	ctx, cancel := dbx.Bound(ctx, s.timeout)
	defer cancel()
	return s.repo.DeleteExpired(ctx)
}
