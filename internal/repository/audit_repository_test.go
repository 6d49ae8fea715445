package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradworks/pgdms-api/internal/models"
)

func auditRows(entries ...models.AuditLog) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "action_type", "user_id", "admin_id", "target_email", "details",
		"ip_address", "user_agent", "created_at", "metadata",
	})
	for _, e := range entries {
		rows.AddRow(e.ID, string(e.ActionType), e.UserID, e.AdminID, e.TargetEmail, e.Details, e.IPAddress, e.UserAgent, e.Timestamp, []byte(`{}`))
	}
	return rows
}

func TestAuditAppendPrunesBeyondCap(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db, 1000)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM audit_logs WHERE id NOT IN (SELECT id FROM audit_logs ORDER BY created_at DESC, id DESC LIMIT $1)")).
		WithArgs(1000).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	email := "user@university.edu"
	entry := &models.AuditLog{
		ActionType:  models.ActionLoginAttempt,
		TargetEmail: &email,
		Details:     "Login attempt for user@university.edu",
	}
	require.NoError(t, repo.Append(context.Background(), entry))

	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditAppendRollsBackOnInsertError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db, 10)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Append(context.Background(), &models.AuditLog{ActionType: models.ActionLoginFailed})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditListMostRecentFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db, 1000)

	now := time.Now()
	newest := models.AuditLog{ID: "a2", ActionType: models.ActionLoginSuccess, Details: "ok", Timestamp: now}
	older := models.AuditLog{ID: "a1", ActionType: models.ActionLoginAttempt, Details: "try", Timestamp: now.Add(-time.Minute)}

	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2")).
		WithArgs(50, 0).
		WillReturnRows(auditRows(newest, older))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	entries, total, err := repo.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, entries, 2)
	assert.Equal(t, "a2", entries[0].ID)
	assert.Equal(t, "a1", entries[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRecent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db, 1000)

	entry := models.AuditLog{ID: "a1", ActionType: models.ActionRegistrationApproved, Details: "ok", Timestamp: time.Now()}
	mock.ExpectQuery("FROM audit_logs ORDER BY created_at DESC").
		WithArgs(10, 0).
		WillReturnRows(auditRows(entry))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	entries, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
