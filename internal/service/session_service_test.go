package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gradworks/pgdms-api/internal/models"
	appErrors "github.com/gradworks/pgdms-api/pkg/errors"
)

type memorySessionStore struct {
	sessions map[string]*models.SessionData
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[string]*models.SessionData)}
}

func (m *memorySessionStore) Save(ctx context.Context, session *models.SessionData) error {
	copied := *session
	m.sessions[session.Token.Token] = &copied
	return nil
}

func (m *memorySessionStore) Find(ctx context.Context, token string) (*models.SessionData, error) {
	session, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (m *memorySessionStore) Delete(ctx context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func sessionFor(t *testing.T, issuer *TokenIssuer) *models.SessionData {
	t.Helper()
	token, err := issuer.Issue("u1", models.RoleStudent)
	require.NoError(t, err)
	return &models.SessionData{
		Token:       token,
		User:        models.UserInfo{ID: "u1", Email: "student@university.edu", Role: models.RoleStudent},
		Permissions: PermissionsFor(models.RoleStudent),
		LoginTime:   time.Now().UTC(),
	}
}

func TestSessionSaveAndCurrent(t *testing.T) {
	store := newMemorySessionStore()
	issuer := NewTokenIssuer(24 * time.Hour)
	svc := NewSessionService(store, issuer, 2*time.Hour, zap.NewNop())

	session := sessionFor(t, issuer)
	require.NoError(t, svc.Save(context.Background(), session))

	loaded, err := svc.Current(context.Background(), session.Token.Token)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, session.User.ID, loaded.User.ID)
	assert.Equal(t, session.Permissions, loaded.Permissions)
	// Far from expiry, the token is returned untouched.
	assert.Equal(t, session.Token.Token, loaded.Token.Token)
}

func TestSessionCurrentUnknownToken(t *testing.T) {
	svc := NewSessionService(newMemorySessionStore(), NewTokenIssuer(time.Hour), 0, zap.NewNop())

	loaded, err := svc.Current(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSessionCurrentPurgesExpired(t *testing.T) {
	store := newMemorySessionStore()
	issuer := NewTokenIssuer(24 * time.Hour)
	svc := NewSessionService(store, issuer, 2*time.Hour, zap.NewNop())

	session := sessionFor(t, issuer)
	session.Token.ExpiresAt = time.Now().Add(-time.Minute)
	store.sessions[session.Token.Token] = session

	loaded, err := svc.Current(context.Background(), session.Token.Token)
	require.NoError(t, err)
	assert.Nil(t, loaded)
	assert.Empty(t, store.sessions)
}

func TestSessionCurrentRotatesNearExpiry(t *testing.T) {
	store := newMemorySessionStore()
	issuer := NewTokenIssuer(24 * time.Hour)
	svc := NewSessionService(store, issuer, 2*time.Hour, zap.NewNop())

	session := sessionFor(t, issuer)
	session.Token.ExpiresAt = time.Now().Add(30 * time.Minute)
	store.sessions[session.Token.Token] = session
	oldToken := session.Token.Token

	loaded, err := svc.Current(context.Background(), oldToken)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.NotEqual(t, oldToken, loaded.Token.Token)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), loaded.Token.ExpiresAt, time.Minute)
	assert.Equal(t, session.User.ID, loaded.User.ID)

	// The superseded token stops resolving, the new one takes over.
	_, stale := store.sessions[oldToken]
	assert.False(t, stale)
	_, fresh := store.sessions[loaded.Token.Token]
	assert.True(t, fresh)
}

func TestSessionExplicitRefresh(t *testing.T) {
	store := newMemorySessionStore()
	issuer := NewTokenIssuer(24 * time.Hour)
	svc := NewSessionService(store, issuer, 2*time.Hour, zap.NewNop())

	session := sessionFor(t, issuer)
	require.NoError(t, svc.Save(context.Background(), session))
	oldToken := session.Token.Token

	refreshed, err := svc.Refresh(context.Background(), oldToken)
	require.NoError(t, err)
	assert.NotEqual(t, oldToken, refreshed.Token.Token)
	assert.Equal(t, session.Token.Role, refreshed.Token.Role)

	loaded, err := svc.Current(context.Background(), oldToken)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSessionRefreshUnknownToken(t *testing.T) {
	svc := NewSessionService(newMemorySessionStore(), NewTokenIssuer(time.Hour), 0, zap.NewNop())

	_, err := svc.Refresh(context.Background(), "deadbeef")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestSessionSaveRejectsExpiredToken(t *testing.T) {
	store := newMemorySessionStore()
	issuer := NewTokenIssuer(time.Hour)
	svc := NewSessionService(store, issuer, 0, zap.NewNop())

	session := sessionFor(t, issuer)
	session.Token.ExpiresAt = time.Now().Add(-time.Second)
	err := svc.Save(context.Background(), session)
	require.Error(t, err)
	assert.Empty(t, store.sessions)
}

func TestSessionClear(t *testing.T) {
	store := newMemorySessionStore()
	issuer := NewTokenIssuer(time.Hour)
	svc := NewSessionService(store, issuer, 0, zap.NewNop())

	session := sessionFor(t, issuer)
	require.NoError(t, svc.Save(context.Background(), session))
	require.NoError(t, svc.Clear(context.Background(), session.Token.Token))

	loaded, err := svc.Current(context.Background(), session.Token.Token)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
