package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gradworks/pgdms-api/internal/models"
	appErrors "github.com/gradworks/pgdms-api/pkg/errors"
	"github.com/gradworks/pgdms-api/pkg/password"
)

type registrationRepository interface {
	Create(ctx context.Context, req *models.RegistrationRequest) error
	FindByID(ctx context.Context, id string) (*models.RegistrationRequest, error)
	FindByEmail(ctx context.Context, email string) (*models.RegistrationRequest, error)
	Update(ctx context.Context, req *models.RegistrationRequest) error
	List(ctx context.Context) ([]models.RegistrationRequest, error)
	CountByStatus(ctx context.Context) (map[models.RegistrationStatus]int, error)
}

type registrationUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type auditTrail interface {
	Append(ctx context.Context, entry *models.AuditLog) error
	Recent(ctx context.Context, n int) ([]models.AuditLog, error)
}

// SubmitRegistrationInput is the payload for a new onboarding application.
type SubmitRegistrationInput struct {
	Email            string      `json:"email"`
	FullName         string      `json:"full_name"`
	RequestedRole    models.Role `json:"requested_role"`
	Department       *string     `json:"department,omitempty"`
	Specialization   *string     `json:"specialization,omitempty"`
	Phone            *string     `json:"phone,omitempty"`
	StudentID        *string     `json:"student_id,omitempty"`
	EmployeeID       *string     `json:"employee_id,omitempty"`
	MaxStudents      *int        `json:"max_students,omitempty"`
	ReasonForRequest string      `json:"reason_for_request"`
}

// RegistrationService runs the onboarding workflow: submission, admin
// disposition and account provisioning.
type RegistrationService struct {
	requests  registrationRepository
	users     registrationUserRepository
	audit     auditTrail
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(requests registrationRepository, users registrationUserRepository, audit auditTrail, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RegistrationService{requests: requests, users: users, audit: audit, validator: validate, logger: logger}
}

// Validate collects every violation in the input instead of stopping at the
// first, so a form can surface all problems at once. An empty slice means
// the input is valid.
func (s *RegistrationService) Validate(input SubmitRegistrationInput) []string {
	var errs []string

	if input.Email == "" || !emailPattern.MatchString(input.Email) {
		errs = append(errs, "Valid email address is required")
	}
	if len(strings.TrimSpace(input.FullName)) < 2 {
		errs = append(errs, "Full name must be at least 2 characters")
	}
	if input.RequestedRole == "" {
		errs = append(errs, "Role selection is required")
	} else if !input.RequestedRole.Valid() || input.RequestedRole == models.RoleAdmin {
		errs = append(errs, "Requested role is not available for registration")
	}
	if len(strings.TrimSpace(input.ReasonForRequest)) < 10 {
		errs = append(errs, "Reason for request must be at least 10 characters")
	}
	if input.RequestedRole == models.RoleStudent && (input.StudentID == nil || *input.StudentID == "") {
		errs = append(errs, "Student ID is required for student role")
	}
	if (input.RequestedRole == models.RoleGuide || input.RequestedRole == models.RoleCoordinator) && (input.EmployeeID == nil || *input.EmployeeID == "") {
		errs = append(errs, "Employee ID is required for faculty roles")
	}
	if input.RequestedRole == models.RoleGuide && (input.MaxStudents == nil || *input.MaxStudents < 1) {
		errs = append(errs, "Maximum students capacity is required for guide role")
	}

	return errs
}

// Submit validates the input, enforces email uniqueness against both
// existing requests (any status) and existing accounts, and files a pending
// request.
func (s *RegistrationService) Submit(ctx context.Context, input SubmitRegistrationInput) (*models.RegistrationRequest, error) {
	if errs := s.Validate(input); len(errs) > 0 {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "registration data is invalid"), errs)
	}

	if _, err := s.requests.FindByEmail(ctx, input.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "A registration request with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing requests")
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "A user with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing users")
	}

	request := &models.RegistrationRequest{
		ID:               uuid.NewString(),
		Email:            strings.ToLower(input.Email),
		FullName:         input.FullName,
		RequestedRole:    input.RequestedRole,
		Department:       input.Department,
		Specialization:   input.Specialization,
		Phone:            input.Phone,
		StudentID:        input.StudentID,
		EmployeeID:       input.EmployeeID,
		MaxStudents:      input.MaxStudents,
		ReasonForRequest: input.ReasonForRequest,
		Status:           models.RegistrationPending,
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create registration request")
	}

	s.appendAudit(ctx, &models.AuditLog{
		ActionType:  models.ActionRegistrationSubmitted,
		TargetEmail: &request.Email,
		Details:     fmt.Sprintf("Registration request submitted for %s role", request.RequestedRole),
		Metadata: models.Metadata{
			"full_name":      request.FullName,
			"requested_role": string(request.RequestedRole),
		},
	})

	return request, nil
}

// Approve provisions an account for a pending request: a temporary password
// is generated, hashed and carried in the account_created audit metadata for
// out-of-band delivery. Approving a non-pending request fails.
func (s *RegistrationService) Approve(ctx context.Context, requestID, adminID, comments string) (*models.UserInfo, error) {
	request, err := s.findPending(ctx, requestID)
	if err != nil {
		return nil, err
	}

	tempPassword, err := password.GenerateTemporary()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate temporary password")
	}

	zero := 0
	user := &models.User{
		ID:              uuid.NewString(),
		Email:           request.Email,
		PasswordHash:    password.Hash(tempPassword, request.Email),
		Role:            request.RequestedRole,
		FullName:        request.FullName,
		Department:      request.Department,
		Specialization:  request.Specialization,
		Phone:           request.Phone,
		EmployeeID:      request.EmployeeID,
		StudentID:       request.StudentID,
		MaxStudents:     request.MaxStudents,
		CurrentStudents: &zero,
		IsActive:        true,
		CreatedBy:       &adminID,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to provision account")
	}

	now := time.Now().UTC()
	request.Status = models.RegistrationApproved
	request.ReviewedAt = &now
	request.ReviewedBy = &adminID
	if comments != "" {
		request.AdminComments = &comments
	}
	if err := s.requests.Update(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update registration request")
	}

	s.appendAudit(ctx, &models.AuditLog{
		ActionType:  models.ActionRegistrationApproved,
		AdminID:     &adminID,
		TargetEmail: &request.Email,
		Details:     fmt.Sprintf("Registration approved and account created for %s", request.FullName),
		Metadata: models.Metadata{
			"user_id":        user.ID,
			"role":           string(user.Role),
			"admin_comments": comments,
		},
	})

	s.appendAudit(ctx, &models.AuditLog{
		ActionType:  models.ActionAccountCreated,
		AdminID:     &adminID,
		UserID:      &user.ID,
		TargetEmail: &user.Email,
		Details:     fmt.Sprintf("User account created with %s role", user.Role),
		Metadata: models.Metadata{
			"full_name": user.FullName,
			// Carried for out-of-band delivery; the hash is all that is stored.
			"temporary_password": tempPassword,
		},
	})

	info := user.Public()
	return &info, nil
}

// Reject marks a pending request rejected. Comments are mandatory: an
// applicant always learns why.
func (s *RegistrationService) Reject(ctx context.Context, requestID, adminID, comments string) (*models.RegistrationRequest, error) {
	if strings.TrimSpace(comments) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "admin comments are required when rejecting a request")
	}

	request, err := s.findPending(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	request.Status = models.RegistrationRejected
	request.ReviewedAt = &now
	request.ReviewedBy = &adminID
	request.AdminComments = &comments
	if err := s.requests.Update(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update registration request")
	}

	s.appendAudit(ctx, &models.AuditLog{
		ActionType:  models.ActionRegistrationRejected,
		AdminID:     &adminID,
		TargetEmail: &request.Email,
		Details:     fmt.Sprintf("Registration rejected for %s", request.FullName),
		Metadata: models.Metadata{
			"requested_role": string(request.RequestedRole),
			"admin_comments": comments,
		},
	})

	return request, nil
}

// RequestInfo asks the applicant for more detail. The request stays terminal
// for this record: a follow-up is a fresh admin decision, not a reopening.
func (s *RegistrationService) RequestInfo(ctx context.Context, requestID, adminID, info string) (*models.RegistrationRequest, error) {
	if strings.TrimSpace(info) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a description of the required information is mandatory")
	}

	request, err := s.findPending(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	request.Status = models.RegistrationInfoRequested
	request.ReviewedAt = &now
	request.ReviewedBy = &adminID
	request.AdditionalInfoRequested = &info
	if err := s.requests.Update(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update registration request")
	}

	s.appendAudit(ctx, &models.AuditLog{
		ActionType:  models.ActionInfoRequested,
		AdminID:     &adminID,
		TargetEmail: &request.Email,
		Details:     fmt.Sprintf("Additional information requested from %s", request.FullName),
		Metadata: models.Metadata{
			"info_requested": info,
		},
	})

	return request, nil
}

// List returns all registration requests, newest first.
func (s *RegistrationService) List(ctx context.Context) ([]models.RegistrationRequest, error) {
	requests, err := s.requests.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registration requests")
	}
	return requests, nil
}

// Stats summarises the pipeline and attaches the ten most recent audit
// entries.
func (s *RegistrationService) Stats(ctx context.Context) (*models.OnboardingStats, error) {
	counts, err := s.requests.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count registration requests")
	}

	recent, err := s.audit.Recent(ctx, 10)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent activity")
	}

	stats := &models.OnboardingStats{
		PendingRequests:  counts[models.RegistrationPending],
		ApprovedRequests: counts[models.RegistrationApproved],
		RejectedRequests: counts[models.RegistrationRejected],
		InfoRequested:    counts[models.RegistrationInfoRequested],
		RecentActivity:   recent,
	}
	stats.TotalRequests = stats.PendingRequests + stats.ApprovedRequests + stats.RejectedRequests + stats.InfoRequested

	return stats, nil
}

// findPending loads a request and enforces that it is still actionable.
func (s *RegistrationService) findPending(ctx context.Context, requestID string) (*models.RegistrationRequest, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration request")
	}
	if request.Status != models.RegistrationPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("registration request has already been reviewed (status: %s)", request.Status))
	}
	return request, nil
}

func (s *RegistrationService) appendAudit(ctx context.Context, entry *models.AuditLog) {
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append audit log", zap.String("action", string(entry.ActionType)), zap.Error(err))
	}
}
