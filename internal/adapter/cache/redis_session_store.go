package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Teamie71/folioo-server/internal/domain"
	"github.com/Teamie71/folioo-server/internal/repository"
)

const sessionKeyPrefix = "auth:refresh:"

// RedisSessionStore implements RefreshSessionRepository backed by Redis.
// SET on the per-user key is an atomic single-record replace, and the key TTL
// tracks the refresh expiry so stale sessions evict themselves.
type RedisSessionStore struct {
	client redis.UniversalClient
}

var _ repository.RefreshSessionRepository = (*RedisSessionStore)(nil)

// NewRedisSessionStore constructs a Redis-backed refresh session store.
func NewRedisSessionStore(client redis.UniversalClient) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

// Upsert stores the encoded session with TTL, replacing any previous record.
func (s *RedisSessionStore) Upsert(ctx context.Context, session domain.RefreshSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, sessionKey(session.UserID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// FindByUserID loads and decodes the session record, nil when absent.
func (s *RedisSessionStore) FindByUserID(ctx context.Context, userID int64) (*domain.RefreshSession, error) {
	bytes, err := s.client.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var session domain.RefreshSession
	if err := json.Unmarshal(bytes, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// DeleteByUserID removes the session key. Missing keys are not an error.
func (s *RedisSessionStore) DeleteByUserID(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func sessionKey(userID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(userID, 10)
}
