package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// SessionStore keeps login sessions in Redis. A session exists from login
// until logout or TTL expiry; tokens referencing a deleted session are dead
// even if the JWT itself has not expired yet.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a SessionStore with the given TTL.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// sessionKey builds the Redis key of a session.
func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// Create registers a new session for the user and returns its ID.
func (s *SessionStore) Create(ctx context.Context, userID int64) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("Redis client not initialized")
	}

	sessionID := uuid.NewString()
	err := s.client.Set(ctx, sessionKey(sessionID), strconv.FormatInt(userID, 10), s.ttl).Err()
	if err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return sessionID, nil
}

// IsActive reports whether the session still exists.
func (s *SessionStore) IsActive(ctx context.Context, sessionID string) (bool, error) {
	if s.client == nil {
		return false, fmt.Errorf("Redis client not initialized")
	}

	n, err := s.client.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n > 0, nil
}

// Delete terminates the session. Deleting an unknown session is not an error.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if s.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
