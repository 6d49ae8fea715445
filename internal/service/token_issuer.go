package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gradworks/pgdms-api/internal/models"
)

// DefaultSessionTTL is the session token lifetime when none is configured.
const DefaultSessionTTL = 24 * time.Hour

// TokenIssuer mints and rotates opaque session tokens. It holds no storage;
// callers decide where issued tokens live.
type TokenIssuer struct {
	ttl time.Duration
}

// NewTokenIssuer constructs a TokenIssuer with the given token lifetime.
func NewTokenIssuer(ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenIssuer{ttl: ttl}
}

// Issue creates a fresh session token for the user. The role is snapshotted
// at issuance and stays immutable for the token's life.
func (i *TokenIssuer) Issue(userID string, role models.Role) (models.SessionToken, error) {
	secret, err := generateTokenSecret()
	if err != nil {
		return models.SessionToken{}, err
	}
	return models.SessionToken{
		Token:     secret,
		ExpiresAt: time.Now().UTC().Add(i.ttl),
		UserID:    userID,
		Role:      role,
		SessionID: uuid.NewString(),
	}, nil
}

// Validate reports whether the token is well-formed and unexpired.
func (i *TokenIssuer) Validate(token models.SessionToken) bool {
	if token.Token == "" || token.ExpiresAt.IsZero() {
		return false
	}
	return token.ExpiresAt.After(time.Now())
}

// Refresh returns a rotated token preserving the user and role snapshot,
// with a fresh secret, session id and expiry. The input is not mutated.
func (i *TokenIssuer) Refresh(token models.SessionToken) (models.SessionToken, error) {
	secret, err := generateTokenSecret()
	if err != nil {
		return models.SessionToken{}, err
	}
	return models.SessionToken{
		Token:     secret,
		ExpiresAt: time.Now().UTC().Add(i.ttl),
		UserID:    token.UserID,
		Role:      token.Role,
		SessionID: uuid.NewString(),
	}, nil
}

// generateTokenSecret returns 32 random bytes hex-encoded.
func generateTokenSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
