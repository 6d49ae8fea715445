package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gradworks/pgdms-api/internal/models"
)

const sessionKeyPrefix = "pgdms:session:"

// SessionRepository stores session bundles in Redis. The whole bundle
// (token, user, permissions, login time) lives under a single key so save
// and clear are atomic: there is no partial state to leak a stale
// permission cache.
type SessionRepository struct {
	client *redis.Client
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

// Save persists the bundle keyed by its session token. The key expires with
// the token, so Redis drops invalid sessions even without an explicit clear.
func (r *SessionRepository) Save(ctx context.Context, session *models.SessionData) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(session.Token.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("save session: token already expired")
	}

	if err := r.client.Set(ctx, sessionKeyPrefix+session.Token.Token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Find returns the bundle for a token, or nil when no session exists.
func (r *SessionRepository) Find(ctx context.Context, token string) (*models.SessionData, error) {
	payload, err := r.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("find session: %w", err)
	}

	var session models.SessionData
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// Delete removes the bundle for a token.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
