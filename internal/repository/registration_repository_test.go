package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradworks/pgdms-api/internal/models"
)

func registrationRows(id, email string, status models.RegistrationStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "full_name", "requested_role", "department", "specialization", "phone",
		"student_id", "employee_id", "max_students", "reason_for_request", "status",
		"submitted_at", "reviewed_at", "reviewed_by", "admin_comments",
		"additional_info_requested", "applicant_response", "created_at", "updated_at",
	}).AddRow(id, email, "Applicant", string(models.RoleStudent), nil, nil, nil, "PG2024001", nil, nil,
		"Enrolling in the doctoral program", string(status), now, nil, nil, nil, nil, nil, now, now)
}

func TestRegistrationCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectExec("INSERT INTO registration_requests").WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.RegistrationRequest{
		Email:            "Applicant@University.EDU",
		FullName:         "Applicant",
		RequestedRole:    models.RoleStudent,
		ReasonForRequest: "Enrolling in the doctoral program",
		Status:           models.RegistrationPending,
	}
	require.NoError(t, repo.Create(context.Background(), req))

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "applicant@university.edu", req.Email)
	assert.False(t, req.SubmittedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM registration_requests WHERE id = $1 LIMIT 1")).
		WithArgs("r1").
		WillReturnRows(registrationRows("r1", "applicant@university.edu", models.RegistrationPending))

	req, err := repo.FindByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationPending, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationFindByEmailAnyStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM registration_requests WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("applicant@university.edu").
		WillReturnRows(registrationRows("r1", "applicant@university.edu", models.RegistrationRejected))

	req, err := repo.FindByEmail(context.Background(), "applicant@university.edu")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationRejected, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationFindByEmailNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery("FROM registration_requests WHERE LOWER").
		WithArgs("nobody@university.edu").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "nobody@university.edu")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectExec("UPDATE registration_requests SET status").WillReturnResult(sqlmock.NewResult(0, 1))

	now := time.Now().UTC()
	admin := "admin-1"
	req := &models.RegistrationRequest{
		ID:         "r1",
		Status:     models.RegistrationApproved,
		ReviewedAt: &now,
		ReviewedBy: &admin,
	}
	require.NoError(t, repo.Update(context.Background(), req))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationListNewestFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM registration_requests ORDER BY submitted_at DESC")).
		WillReturnRows(registrationRows("r1", "applicant@university.edu", models.RegistrationPending))

	requests, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, requests, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationCountByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("pending", 3).
		AddRow("approved", 2).
		AddRow("rejected", 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS count FROM registration_requests GROUP BY status")).
		WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts[models.RegistrationPending])
	assert.Equal(t, 2, counts[models.RegistrationApproved])
	assert.Equal(t, 1, counts[models.RegistrationRejected])
	assert.Equal(t, 0, counts[models.RegistrationInfoRequested])
	assert.NoError(t, mock.ExpectationsWereMet())
}
