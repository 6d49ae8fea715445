package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gradworks/pgdms-api/internal/models"
	appErrors "github.com/gradworks/pgdms-api/pkg/errors"
	"github.com/gradworks/pgdms-api/pkg/password"
)

type memoryRegistrationRepo struct {
	requests map[string]*models.RegistrationRequest
}

func newMemoryRegistrationRepo() *memoryRegistrationRepo {
	return &memoryRegistrationRepo{requests: make(map[string]*models.RegistrationRequest)}
}

func (m *memoryRegistrationRepo) Create(ctx context.Context, req *models.RegistrationRequest) error {
	copied := *req
	m.requests[req.ID] = &copied
	return nil
}

func (m *memoryRegistrationRepo) FindByID(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *req
	return &copied, nil
}

func (m *memoryRegistrationRepo) FindByEmail(ctx context.Context, email string) (*models.RegistrationRequest, error) {
	for _, req := range m.requests {
		if strings.EqualFold(req.Email, email) {
			copied := *req
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryRegistrationRepo) Update(ctx context.Context, req *models.RegistrationRequest) error {
	copied := *req
	m.requests[req.ID] = &copied
	return nil
}

func (m *memoryRegistrationRepo) List(ctx context.Context) ([]models.RegistrationRequest, error) {
	out := make([]models.RegistrationRequest, 0, len(m.requests))
	for _, req := range m.requests {
		out = append(out, *req)
	}
	return out, nil
}

func (m *memoryRegistrationRepo) CountByStatus(ctx context.Context) (map[models.RegistrationStatus]int, error) {
	counts := make(map[models.RegistrationStatus]int)
	for _, req := range m.requests {
		counts[req.Status]++
	}
	return counts, nil
}

// memoryUserStore backs both the registration workflow and the login state
// machine so the approve-then-authenticate path can be exercised end to end.
type memoryUserStore struct {
	users map[string]*models.User
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: make(map[string]*models.User)}
}

func (m *memoryUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := m.users[strings.ToLower(email)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *memoryUserStore) Create(ctx context.Context, user *models.User) error {
	m.users[strings.ToLower(user.Email)] = user
	return nil
}

func (m *memoryUserStore) RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	for _, user := range m.users {
		if user.ID == id {
			user.FailedLoginAttempts++
			if user.FailedLoginAttempts >= threshold {
				user.AccountLockedUntil = &lockUntil
				return user.FailedLoginAttempts, &lockUntil, nil
			}
			return user.FailedLoginAttempts, nil, nil
		}
	}
	return 0, nil, sql.ErrNoRows
}

func (m *memoryUserStore) RecordLoginSuccess(ctx context.Context, id string, ts time.Time) error {
	for _, user := range m.users {
		if user.ID == id {
			user.FailedLoginAttempts = 0
			user.AccountLockedUntil = nil
			user.LastLogin = &ts
		}
	}
	return nil
}

type memoryAuditTrail struct {
	entries []models.AuditLog
}

func (m *memoryAuditTrail) Append(ctx context.Context, entry *models.AuditLog) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryAuditTrail) Recent(ctx context.Context, n int) ([]models.AuditLog, error) {
	if n > len(m.entries) {
		n = len(m.entries)
	}
	out := make([]models.AuditLog, 0, n)
	for i := len(m.entries) - 1; i >= len(m.entries)-n; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func studentInput() SubmitRegistrationInput {
	studentID := "PG2024001"
	return SubmitRegistrationInput{
		Email:            "newstudent@university.edu",
		FullName:         "New Student",
		RequestedRole:    models.RoleStudent,
		StudentID:        &studentID,
		ReasonForRequest: "Enrolling in the doctoral program this semester",
	}
}

func newTestRegistrationService() (*RegistrationService, *memoryRegistrationRepo, *memoryUserStore, *memoryAuditTrail) {
	requests := newMemoryRegistrationRepo()
	users := newMemoryUserStore()
	audit := &memoryAuditTrail{}
	svc := NewRegistrationService(requests, users, audit, nil, zap.NewNop())
	return svc, requests, users, audit
}

func TestRegistrationValidateAccumulatesErrors(t *testing.T) {
	svc, _, _, _ := newTestRegistrationService()

	errs := svc.Validate(SubmitRegistrationInput{})
	assert.Contains(t, errs, "Valid email address is required")
	assert.Contains(t, errs, "Full name must be at least 2 characters")
	assert.Contains(t, errs, "Role selection is required")
	assert.Contains(t, errs, "Reason for request must be at least 10 characters")
	assert.Len(t, errs, 4)
}

func TestRegistrationValidateRoleSpecificFields(t *testing.T) {
	svc, _, _, _ := newTestRegistrationService()

	student := studentInput()
	student.StudentID = nil
	assert.Contains(t, svc.Validate(student), "Student ID is required for student role")

	guide := studentInput()
	guide.RequestedRole = models.RoleGuide
	guide.StudentID = nil
	errs := svc.Validate(guide)
	assert.Contains(t, errs, "Employee ID is required for faculty roles")
	assert.Contains(t, errs, "Maximum students capacity is required for guide role")

	admin := studentInput()
	admin.RequestedRole = models.RoleAdmin
	assert.Contains(t, svc.Validate(admin), "Requested role is not available for registration")
}

func TestRegistrationSubmit(t *testing.T) {
	svc, requests, _, audit := newTestRegistrationService()

	req, err := svc.Submit(context.Background(), studentInput())
	require.NoError(t, err)

	assert.Equal(t, models.RegistrationPending, req.Status)
	assert.Equal(t, "newstudent@university.edu", req.Email)
	assert.NotEmpty(t, req.ID)
	assert.Len(t, requests.requests, 1)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.ActionRegistrationSubmitted, audit.entries[0].ActionType)
}

func TestRegistrationSubmitInvalidInput(t *testing.T) {
	svc, _, _, _ := newTestRegistrationService()

	input := studentInput()
	input.ReasonForRequest = "too short"
	_, err := svc.Submit(context.Background(), input)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.NotEmpty(t, appErr.Details)
}

func TestRegistrationSubmitDuplicateRequest(t *testing.T) {
	svc, _, _, _ := newTestRegistrationService()

	_, err := svc.Submit(context.Background(), studentInput())
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), studentInput())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "A registration request with this email already exists", appErr.Message)
}

func TestRegistrationSubmitExistingAccount(t *testing.T) {
	svc, _, users, _ := newTestRegistrationService()
	users.users["newstudent@university.edu"] = &models.User{ID: "u1", Email: "newstudent@university.edu"}

	_, err := svc.Submit(context.Background(), studentInput())
	require.Error(t, err)
	assert.Equal(t, "A user with this email already exists", appErrors.FromError(err).Message)
}

func TestRegistrationApprove(t *testing.T) {
	svc, requests, users, audit := newTestRegistrationService()

	req, err := svc.Submit(context.Background(), studentInput())
	require.NoError(t, err)

	info, err := svc.Approve(context.Background(), req.ID, "admin-1", "Welcome aboard")
	require.NoError(t, err)

	assert.Equal(t, req.Email, info.Email)
	assert.Equal(t, models.RoleStudent, info.Role)

	user := users.users[req.Email]
	require.NotNil(t, user)
	assert.True(t, user.IsActive)
	assert.NotEmpty(t, user.PasswordHash)
	require.NotNil(t, user.CurrentStudents)
	assert.Equal(t, 0, *user.CurrentStudents)
	require.NotNil(t, user.CreatedBy)
	assert.Equal(t, "admin-1", *user.CreatedBy)

	updated := requests.requests[req.ID]
	assert.Equal(t, models.RegistrationApproved, updated.Status)
	require.NotNil(t, updated.ReviewedBy)
	assert.Equal(t, "admin-1", *updated.ReviewedBy)

	// submitted, approved, account_created
	require.Len(t, audit.entries, 3)
	created := audit.entries[2]
	assert.Equal(t, models.ActionAccountCreated, created.ActionType)
	temp, ok := created.Metadata["temporary_password"].(string)
	require.True(t, ok)
	assert.Len(t, temp, password.TempPasswordLength)
	assert.True(t, password.Verify(temp, user.Email, user.PasswordHash))
}

func TestRegistrationApproveOnlyOnce(t *testing.T) {
	svc, _, _, _ := newTestRegistrationService()

	req, err := svc.Submit(context.Background(), studentInput())
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), req.ID, "admin-1", "")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), req.ID, "admin-1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestRegistrationApproveUnknownRequest(t *testing.T) {
	svc, _, _, _ := newTestRegistrationService()

	_, err := svc.Approve(context.Background(), "missing", "admin-1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRegistrationReject(t *testing.T) {
	svc, requests, _, audit := newTestRegistrationService()

	req, err := svc.Submit(context.Background(), studentInput())
	require.NoError(t, err)

	updated, err := svc.Reject(context.Background(), req.ID, "admin-1", "Incomplete documentation")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationRejected, updated.Status)
	require.NotNil(t, updated.AdminComments)
	assert.Equal(t, "Incomplete documentation", *updated.AdminComments)
	assert.Equal(t, models.RegistrationRejected, requests.requests[req.ID].Status)
	assert.Equal(t, models.ActionRegistrationRejected, audit.entries[len(audit.entries)-1].ActionType)
}

func TestRegistrationRejectRequiresComments(t *testing.T) {
	svc, _, _, _ := newTestRegistrationService()

	req, err := svc.Submit(context.Background(), studentInput())
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), req.ID, "admin-1", "   ")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRegistrationRequestInfo(t *testing.T) {
	svc, requests, _, _ := newTestRegistrationService()

	req, err := svc.Submit(context.Background(), studentInput())
	require.NoError(t, err)

	updated, err := svc.RequestInfo(context.Background(), req.ID, "admin-1", "Please attach your enrollment letter")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationInfoRequested, updated.Status)
	require.NotNil(t, updated.AdditionalInfoRequested)

	// info_requested is terminal for the record; no further disposition.
	_, err = svc.Approve(context.Background(), req.ID, "admin-1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.RegistrationInfoRequested, requests.requests[req.ID].Status)
}

func TestRegistrationStats(t *testing.T) {
	svc, _, _, _ := newTestRegistrationService()

	first, err := svc.Submit(context.Background(), studentInput())
	require.NoError(t, err)

	second := studentInput()
	second.Email = "another@university.edu"
	secondReq, err := svc.Submit(context.Background(), second)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), first.ID, "admin-1", "")
	require.NoError(t, err)
	_, err = svc.Reject(context.Background(), secondReq.ID, "admin-1", "No capacity")
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalRequests)
	assert.Equal(t, 0, stats.PendingRequests)
	assert.Equal(t, 1, stats.ApprovedRequests)
	assert.Equal(t, 1, stats.RejectedRequests)
	assert.NotEmpty(t, stats.RecentActivity)
	// Most recent first.
	assert.Equal(t, models.ActionRegistrationRejected, stats.RecentActivity[0].ActionType)
}

func TestApprovedAccountCanAuthenticateWithTemporaryPassword(t *testing.T) {
	svc, _, users, audit := newTestRegistrationService()

	req, err := svc.Submit(context.Background(), studentInput())
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), req.ID, "admin-1", "")
	require.NoError(t, err)

	var temp string
	for _, entry := range audit.entries {
		if entry.ActionType == models.ActionAccountCreated {
			temp = entry.Metadata["temporary_password"].(string)
		}
	}
	require.NotEmpty(t, temp)

	authSvc := NewAuthService(users, &mockAudit{}, NewTokenIssuer(24*time.Hour), nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
	})
	res, err := authSvc.Login(context.Background(), models.LoginRequest{
		Email:    req.Email,
		Password: temp,
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, req.Email, res.User.Email)
	assert.Contains(t, res.Permissions, PermTopicsSubmit)
}
