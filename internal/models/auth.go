package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds the credentials for authenticating a user. Role is the
// claimed role and must match the stored one exactly.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Role      Role   `json:"role" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens, the public user projection and the
// resolved permission set.
type LoginResponse struct {
	User        UserInfo     `json:"user"`
	Token       SessionToken `json:"token"`
	AccessToken string       `json:"access_token"`
	Permissions []string     `json:"permissions"`
	IssuedAt    time.Time    `json:"issued_at"`
}

// SessionData is the bundle persisted per active login. It is saved and
// cleared as one unit so a purge can never leave a stale permission cache.
type SessionData struct {
	Token       SessionToken `json:"token"`
	User        UserInfo     `json:"user"`
	Permissions []string     `json:"permissions"`
	LoginTime   time.Time    `json:"login_time"`
}

// RefreshRequest exchanges a session token for a rotated one.
type RefreshRequest struct {
	Token string `json:"token" validate:"required"`
}

// JWTClaims represents the JWT payload for access tokens at the HTTP boundary.
type JWTClaims struct {
	UserID    string `json:"user_id"`
	Role      Role   `json:"role"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}
