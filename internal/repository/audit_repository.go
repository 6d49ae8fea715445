package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gradworks/pgdms-api/internal/models"
)

const auditColumns = `id, action_type, user_id, admin_id, target_email, details, ip_address, user_agent, created_at, metadata`

// DefaultAuditCap bounds the audit trail when no explicit cap is configured.
const DefaultAuditCap = 1000

// AuditRepository persists the bounded, append-only audit trail. Entries are
// never updated; appending past the cap drops the oldest entries.
type AuditRepository struct {
	db  *sqlx.DB
	cap int
}

// NewAuditRepository creates an AuditRepository with the given entry cap.
func NewAuditRepository(db *sqlx.DB, maxEntries int) *AuditRepository {
	if maxEntries <= 0 {
		maxEntries = DefaultAuditCap
	}
	return &AuditRepository{db: db, cap: maxEntries}
}

// Append stores an entry and prunes everything beyond the cap in the same
// transaction, keeping the newest entries.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO audit_logs (id, action_type, user_id, admin_id, target_email, details, ip_address, user_agent, created_at, metadata) VALUES (:id, :action_type, :user_id, :admin_id, :target_email, :details, :ip_address, :user_agent, :created_at, :metadata)`
	if _, err := tx.NamedExecContext(ctx, insert, entry); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}

	const prune = `DELETE FROM audit_logs WHERE id NOT IN (SELECT id FROM audit_logs ORDER BY created_at DESC, id DESC LIMIT $1)`
	if _, err := tx.ExecContext(ctx, prune, r.cap); err != nil {
		return fmt.Errorf("prune audit log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

// List returns entries most-recent-first with the total count.
func (r *AuditRepository) List(ctx context.Context, limit, offset int) ([]models.AuditLog, int, error) {
	if limit <= 0 || limit > r.cap {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM audit_logs ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, auditColumns)
	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM audit_logs`); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	return entries, total, nil
}

// Recent returns the n most recent entries, newest first.
func (r *AuditRepository) Recent(ctx context.Context, n int) ([]models.AuditLog, error) {
	entries, _, err := r.List(ctx, n, 0)
	return entries, err
}
