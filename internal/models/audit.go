package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AuditAction is the closed enum of recordable events.
type AuditAction string

const (
	ActionRegistrationSubmitted AuditAction = "registration_submitted"
	ActionRegistrationApproved  AuditAction = "registration_approved"
	ActionRegistrationRejected  AuditAction = "registration_rejected"
	ActionInfoRequested         AuditAction = "info_requested"
	ActionLoginAttempt          AuditAction = "login_attempt"
	ActionLoginSuccess          AuditAction = "login_success"
	ActionLoginFailed           AuditAction = "login_failed"
	ActionAccountCreated        AuditAction = "account_created"
	ActionRoleAssigned          AuditAction = "role_assigned"
	ActionAccountDisabled       AuditAction = "account_disabled"
)

// Metadata is an open key-value map persisted as JSONB.
type Metadata map[string]interface{}

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
}

// AuditLog represents one append-only trail entry. Entries are never edited;
// the store keeps only the most recent entries up to its cap.
type AuditLog struct {
	ID          string      `db:"id" json:"id"`
	ActionType  AuditAction `db:"action_type" json:"action_type"`
	UserID      *string     `db:"user_id" json:"user_id,omitempty"`
	AdminID     *string     `db:"admin_id" json:"admin_id,omitempty"`
	TargetEmail *string     `db:"target_email" json:"target_email,omitempty"`
	Details     string      `db:"details" json:"details"`
	IPAddress   string      `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent   string      `db:"user_agent" json:"user_agent,omitempty"`
	Timestamp   time.Time   `db:"created_at" json:"timestamp"`
	Metadata    Metadata    `db:"metadata" json:"metadata,omitempty"`
}
