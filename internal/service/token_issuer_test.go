package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradworks/pgdms-api/internal/models"
)

func TestTokenIssuerIssue(t *testing.T) {
	issuer := NewTokenIssuer(24 * time.Hour)

	token, err := issuer.Issue("u1", models.RoleGuide)
	require.NoError(t, err)

	assert.Len(t, token.Token, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", token.Token)
	assert.Equal(t, "u1", token.UserID)
	assert.Equal(t, models.RoleGuide, token.Role)
	assert.NotEmpty(t, token.SessionID)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), token.ExpiresAt, time.Minute)
}

func TestTokenIssuerSecretsAreUnique(t *testing.T) {
	issuer := NewTokenIssuer(time.Hour)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := issuer.Issue("u1", models.RoleStudent)
		require.NoError(t, err)
		assert.False(t, seen[token.Token])
		seen[token.Token] = true
	}
}

func TestTokenIssuerValidate(t *testing.T) {
	issuer := NewTokenIssuer(time.Hour)

	token, err := issuer.Issue("u1", models.RoleStudent)
	require.NoError(t, err)
	assert.True(t, issuer.Validate(token))

	expired := token
	expired.ExpiresAt = time.Now().Add(-time.Second)
	assert.False(t, issuer.Validate(expired))

	assert.False(t, issuer.Validate(models.SessionToken{}))
}

func TestTokenIssuerRefresh(t *testing.T) {
	issuer := NewTokenIssuer(time.Hour)

	token, err := issuer.Issue("u1", models.RoleExaminer)
	require.NoError(t, err)

	refreshed, err := issuer.Refresh(token)
	require.NoError(t, err)

	assert.NotEqual(t, token.Token, refreshed.Token)
	assert.NotEqual(t, token.SessionID, refreshed.SessionID)
	assert.Equal(t, token.UserID, refreshed.UserID)
	assert.Equal(t, token.Role, refreshed.Role)
	assert.True(t, refreshed.ExpiresAt.After(time.Now()))
}
