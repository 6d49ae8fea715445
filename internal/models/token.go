package models

import "time"

// SessionToken is the opaque bearer token issued at login. The role is a
// snapshot taken at issuance; a holder cannot escalate without a fresh login.
type SessionToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	SessionID string    `json:"session_id"`
}
