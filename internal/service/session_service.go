package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gradworks/pgdms-api/internal/models"
	appErrors "github.com/gradworks/pgdms-api/pkg/errors"
)

type sessionStore interface {
	Save(ctx context.Context, session *models.SessionData) error
	Find(ctx context.Context, token string) (*models.SessionData, error)
	Delete(ctx context.Context, token string) error
}

// SessionService manages the persisted session bundle. Refresh is
// opportunistic: it happens when a session is loaded close to expiry, never
// from a background timer.
type SessionService struct {
	store         sessionStore
	issuer        *TokenIssuer
	refreshWindow time.Duration
	logger        *zap.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(store sessionStore, issuer *TokenIssuer, refreshWindow time.Duration, logger *zap.Logger) *SessionService {
	if refreshWindow <= 0 {
		refreshWindow = 2 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{store: store, issuer: issuer, refreshWindow: refreshWindow, logger: logger}
}

// Save persists the bundle as one unit.
func (s *SessionService) Save(ctx context.Context, session *models.SessionData) error {
	if !s.issuer.Validate(session.Token) {
		return appErrors.Clone(appErrors.ErrUnauthorized, "cannot persist an expired session")
	}
	if err := s.store.Save(ctx, session); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}
	return nil
}

// Current loads the bundle for a token. Invalid sessions are purged and nil
// is returned; a session within the refresh window is transparently rotated
// and re-persisted before being returned.
func (s *SessionService) Current(ctx context.Context, token string) (*models.SessionData, error) {
	session, err := s.store.Find(ctx, token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session == nil {
		return nil, nil
	}

	if !s.issuer.Validate(session.Token) {
		if err := s.store.Delete(ctx, token); err != nil {
			s.logger.Warn("failed to purge expired session", zap.Error(err))
		}
		return nil, nil
	}

	if time.Until(session.Token.ExpiresAt) < s.refreshWindow {
		refreshed, err := s.issuer.Refresh(session.Token)
		if err != nil {
			s.logger.Warn("failed to rotate session token", zap.Error(err))
			return session, nil
		}
		old := session.Token.Token
		session.Token = refreshed
		if err := s.store.Save(ctx, session); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refreshed session")
		}
		if err := s.store.Delete(ctx, old); err != nil {
			s.logger.Warn("failed to drop superseded session token", zap.Error(err))
		}
	}

	return session, nil
}

// Refresh rotates a session token explicitly, preserving the rest of the
// bundle. The superseded token stops resolving immediately.
func (s *SessionService) Refresh(ctx context.Context, token string) (*models.SessionData, error) {
	session, err := s.store.Find(ctx, token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session == nil || !s.issuer.Validate(session.Token) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session is expired or unknown")
	}

	refreshed, err := s.issuer.Refresh(session.Token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rotate session token")
	}
	old := session.Token.Token
	session.Token = refreshed
	if err := s.store.Save(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refreshed session")
	}
	if err := s.store.Delete(ctx, old); err != nil {
		s.logger.Warn("failed to drop superseded session token", zap.Error(err))
	}
	return session, nil
}

// Clear purges every persisted key for the session, permissions included.
func (s *SessionService) Clear(ctx context.Context, token string) error {
	if err := s.store.Delete(ctx, token); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear session")
	}
	return nil
}
