package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gradworks/pgdms-api/internal/models"
	appErrors "github.com/gradworks/pgdms-api/pkg/errors"
	"github.com/gradworks/pgdms-api/pkg/password"
)

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id string) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

// CreateUserRequest is the payload for direct account creation by an admin.
type CreateUserRequest struct {
	Email          string      `json:"email" validate:"required,email"`
	Password       string      `json:"password" validate:"required,min=6"`
	Role           models.Role `json:"role" validate:"required"`
	FullName       string      `json:"full_name" validate:"required,min=2"`
	Department     *string     `json:"department,omitempty"`
	Specialization *string     `json:"specialization,omitempty"`
	Phone          *string     `json:"phone,omitempty"`
	EmployeeID     *string     `json:"employee_id,omitempty"`
	StudentID      *string     `json:"student_id,omitempty"`
	MaxStudents    *int        `json:"max_students,omitempty"`
}

// UpdateUserRequest carries partial updates; nil fields are left untouched.
type UpdateUserRequest struct {
	FullName       *string      `json:"full_name,omitempty" validate:"omitempty,min=2"`
	Role           *models.Role `json:"role,omitempty"`
	Department     *string      `json:"department,omitempty"`
	Specialization *string      `json:"specialization,omitempty"`
	Phone          *string      `json:"phone,omitempty"`
	MaxStudents    *int         `json:"max_students,omitempty"`
	IsActive       *bool        `json:"is_active,omitempty"`
}

// UserService covers admin-side account management.
type UserService struct {
	users     userRepository
	audit     auditAppender
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(users userRepository, audit auditAppender, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{users: users, audit: audit, validator: validate, logger: logger}
}

// Create provisions an account directly, bypassing the registration pipeline.
func (s *UserService) Create(ctx context.Context, adminID string, req CreateUserRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user data is invalid")
	}
	if !req.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown role: %s", req.Role))
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "A user with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing users")
	}

	email := strings.ToLower(req.Email)
	zero := 0
	user := &models.User{
		ID:              uuid.NewString(),
		Email:           email,
		PasswordHash:    password.Hash(req.Password, email),
		Role:            req.Role,
		FullName:        req.FullName,
		Department:      req.Department,
		Specialization:  req.Specialization,
		Phone:           req.Phone,
		EmployeeID:      req.EmployeeID,
		StudentID:       req.StudentID,
		MaxStudents:     req.MaxStudents,
		CurrentStudents: &zero,
		IsActive:        true,
		CreatedBy:       &adminID,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.appendAudit(ctx, &models.AuditLog{
		ActionType:  models.ActionAccountCreated,
		AdminID:     &adminID,
		UserID:      &user.ID,
		TargetEmail: &user.Email,
		Details:     fmt.Sprintf("User account created with %s role", user.Role),
		Metadata:    models.Metadata{"full_name": user.FullName},
	})

	info := user.Public()
	return &info, nil
}

// Get returns the public projection of one account.
func (s *UserService) Get(ctx context.Context, id string) (*models.UserInfo, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	info := user.Public()
	return &info, nil
}

// Update applies a partial update. A role change is audited separately so the
// trail shows who granted what.
func (s *UserService) Update(ctx context.Context, adminID, id string, req UpdateUserRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user data is invalid")
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	previousRole := user.Role
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown role: %s", *req.Role))
		}
		user.Role = *req.Role
	}
	if req.Department != nil {
		user.Department = req.Department
	}
	if req.Specialization != nil {
		user.Specialization = req.Specialization
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.MaxStudents != nil {
		user.MaxStudents = req.MaxStudents
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	if user.Role != previousRole {
		s.appendAudit(ctx, &models.AuditLog{
			ActionType:  models.ActionRoleAssigned,
			AdminID:     &adminID,
			UserID:      &user.ID,
			TargetEmail: &user.Email,
			Details:     fmt.Sprintf("Role changed from %s to %s", previousRole, user.Role),
			Metadata: models.Metadata{
				"previous_role": string(previousRole),
				"new_role":      string(user.Role),
			},
		})
	}

	info := user.Public()
	return &info, nil
}

// Deactivate disables an account. Existing sessions are not revoked here;
// the login gate rejects disabled accounts on the next attempt.
func (s *UserService) Deactivate(ctx context.Context, adminID, id string) error {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return err
	}
	if user.ID == adminID {
		return appErrors.Clone(appErrors.ErrValidation, "administrators cannot deactivate their own account")
	}

	if err := s.users.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}

	s.appendAudit(ctx, &models.AuditLog{
		ActionType:  models.ActionAccountDisabled,
		AdminID:     &adminID,
		UserID:      &user.ID,
		TargetEmail: &user.Email,
		Details:     fmt.Sprintf("Account disabled for %s", user.Email),
	})

	return nil
}

// List returns accounts matching the filter plus pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.UserInfo, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	infos := make([]models.UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, users[i].Public())
	}

	return infos, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func (s *UserService) findUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

func (s *UserService) appendAudit(ctx context.Context, entry *models.AuditLog) {
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append audit log", zap.String("action", string(entry.ActionType)), zap.Error(err))
	}
}
