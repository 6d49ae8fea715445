package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/gradworks/pgdms-api/internal/models"
	appErrors "github.com/gradworks/pgdms-api/pkg/errors"
	"github.com/gradworks/pgdms-api/pkg/password"
)

// The unknown-email and wrong-password messages must stay textually
// identical so a caller cannot probe which accounts exist.
const (
	msgAllFieldsRequired  = "All fields are required."
	msgInvalidCredentials = "Invalid email or password. Please check your credentials and try again."
	msgAccountDisabled    = "Your account has been disabled. Please contact the administrator."
	msgAccountLocked      = "Account temporarily locked due to repeated failed login attempts. Please try again later."
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, *time.Time, error)
	RecordLoginSuccess(ctx context.Context, id string, ts time.Time) error
}

type auditAppender interface {
	Append(ctx context.Context, entry *models.AuditLog) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	LockoutThreshold  int
	LockoutDuration   time.Duration
}

// AuthService runs the login state machine: ordered checks over one attempt,
// each a potential short-circuit exit, with every attempt audited before any
// validation happens.
type AuthService struct {
	users     authUserRepository
	audit     auditAppender
	issuer    *TokenIssuer
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, audit auditAppender, issuer *TokenIssuer, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.LockoutThreshold <= 0 {
		config.LockoutThreshold = 5
	}
	if config.LockoutDuration <= 0 {
		config.LockoutDuration = 30 * time.Minute
	}
	return &AuthService{users: users, audit: audit, issuer: issuer, validator: validate, logger: logger, config: config}
}

// Login authenticates a user and returns the session token, access token and
// resolved permissions. Failures come back as typed errors; the caller
// branches on the error code, not on panics.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	// Recorded before any validation so even malformed attempts are
	// observable in the trail.
	s.appendAudit(ctx, &models.AuditLog{
		ActionType:  models.ActionLoginAttempt,
		TargetEmail: optional(req.Email),
		Details:     fmt.Sprintf("Login attempt for %s", req.Email),
		IPAddress:   req.IP,
		UserAgent:   req.UserAgent,
	})

	if req.Email == "" || req.Password == "" || req.Role == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, msgAllFieldsRequired)
	}

	if !emailPattern.MatchString(req.Email) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, msgInvalidCredentials)
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, msgInvalidCredentials)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	now := time.Now().UTC()

	if user.AccountLockedUntil != nil && user.AccountLockedUntil.After(now) {
		return nil, appErrors.Clone(appErrors.ErrAccountLocked, msgAccountLocked)
	}

	if !user.IsActive {
		return nil, appErrors.Clone(appErrors.ErrAccountDisabled, msgAccountDisabled)
	}

	if !password.Verify(req.Password, user.Email, user.PasswordHash) {
		s.recordFailure(ctx, user, req, "invalid_password", nil)
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, msgInvalidCredentials)
	}

	if user.Role != req.Role {
		s.recordFailure(ctx, user, req, "role_spoofing", models.Metadata{
			"assigned_role":  string(user.Role),
			"attempted_role": string(req.Role),
		})
		return nil, appErrors.Clone(appErrors.ErrRoleMismatch,
			fmt.Sprintf("Access denied. Your account is not authorized for the %s role.", req.Role.Display()))
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to reset login counters", zap.Error(err))
	}

	token, err := s.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue session token")
	}

	accessToken, err := s.generateAccessToken(user, token.SessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.appendAudit(ctx, &models.AuditLog{
		ActionType:  models.ActionLoginSuccess,
		UserID:      &user.ID,
		TargetEmail: &user.Email,
		Details:     fmt.Sprintf("Successful login for %s", user.Email),
		IPAddress:   req.IP,
		UserAgent:   req.UserAgent,
		Metadata:    models.Metadata{"role": string(user.Role), "session_id": token.SessionID},
	})

	return &models.LoginResponse{
		User:        user.Public(),
		Token:       token,
		AccessToken: accessToken,
		Permissions: PermissionsFor(user.Role),
		IssuedAt:    now,
	}, nil
}

// recordFailure bumps the failed-attempt counter (locking at the threshold)
// and appends a login_failed entry. Wrong passwords and role spoofing share
// the same lockout policy.
func (s *AuthService) recordFailure(ctx context.Context, user *models.User, req models.LoginRequest, reason string, meta models.Metadata) {
	lockUntil := time.Now().UTC().Add(s.config.LockoutDuration)
	attempts, lockedUntil, err := s.users.RecordLoginFailure(ctx, user.ID, s.config.LockoutThreshold, lockUntil)
	if err != nil {
		s.logger.Warn("failed to record login failure", zap.Error(err))
	}

	if meta == nil {
		meta = models.Metadata{}
	}
	meta["reason"] = reason
	meta["failed_attempts"] = attempts
	if lockedUntil != nil {
		meta["locked_until"] = lockedUntil.Format(time.RFC3339)
	}

	s.appendAudit(ctx, &models.AuditLog{
		ActionType:  models.ActionLoginFailed,
		UserID:      &user.ID,
		TargetEmail: &user.Email,
		Details:     fmt.Sprintf("Failed login for %s: %s", user.Email, reason),
		IPAddress:   req.IP,
		UserAgent:   req.UserAgent,
		Metadata:    meta,
	})
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) generateAccessToken(user *models.User, sessionID string) (string, error) {
	issuedAt := time.Now().UTC()
	expiry := s.config.AccessTokenExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	claims := &models.JWTClaims{
		UserID:    user.ID,
		Role:      user.Role,
		Email:     user.Email,
		FullName:  user.FullName,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

func (s *AuthService) appendAudit(ctx context.Context, entry *models.AuditLog) {
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append audit log", zap.String("action", string(entry.ActionType)), zap.Error(err))
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
