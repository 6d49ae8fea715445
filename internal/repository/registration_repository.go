package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gradworks/pgdms-api/internal/models"
)

const registrationColumns = `id, email, full_name, requested_role, department, specialization, phone, student_id, employee_id, max_students, reason_for_request, status, submitted_at, reviewed_at, reviewed_by, admin_comments, additional_info_requested, applicant_response, created_at, updated_at`

// RegistrationRepository provides database access for onboarding requests.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository creates a new instance of RegistrationRepository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create inserts a new registration request.
func (r *RegistrationRepository) Create(ctx context.Context, req *models.RegistrationRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = now
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	req.Email = strings.ToLower(req.Email)

	const query = `INSERT INTO registration_requests (id, email, full_name, requested_role, department, specialization, phone, student_id, employee_id, max_students, reason_for_request, status, submitted_at, reviewed_at, reviewed_by, admin_comments, additional_info_requested, applicant_response, created_at, updated_at) VALUES (:id, :email, :full_name, :requested_role, :department, :specialization, :phone, :student_id, :employee_id, :max_students, :reason_for_request, :status, :submitted_at, :reviewed_at, :reviewed_by, :admin_comments, :additional_info_requested, :applicant_response, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create registration request: %w", err)
	}
	return nil
}

// FindByID returns a registration request by identifier.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM registration_requests WHERE id = $1 LIMIT 1`, registrationColumns)
	var req models.RegistrationRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find registration request: %w", err)
	}
	return &req, nil
}

// FindByEmail returns a request matching the email regardless of status.
func (r *RegistrationRepository) FindByEmail(ctx context.Context, email string) (*models.RegistrationRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM registration_requests WHERE LOWER(email) = LOWER($1) LIMIT 1`, registrationColumns)
	var req models.RegistrationRequest
	if err := r.db.GetContext(ctx, &req, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find registration request by email: %w", err)
	}
	return &req, nil
}

// Update persists review fields and status.
func (r *RegistrationRepository) Update(ctx context.Context, req *models.RegistrationRequest) error {
	req.UpdatedAt = time.Now().UTC()
	const query = `UPDATE registration_requests SET status = :status, reviewed_at = :reviewed_at, reviewed_by = :reviewed_by, admin_comments = :admin_comments, additional_info_requested = :additional_info_requested, applicant_response = :applicant_response, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("update registration request: %w", err)
	}
	return nil
}

// List returns all registration requests, newest first.
func (r *RegistrationRepository) List(ctx context.Context) ([]models.RegistrationRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM registration_requests ORDER BY submitted_at DESC`, registrationColumns)
	var requests []models.RegistrationRequest
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("list registration requests: %w", err)
	}
	return requests, nil
}

// CountByStatus returns the number of requests per status.
func (r *RegistrationRepository) CountByStatus(ctx context.Context) (map[models.RegistrationStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM registration_requests GROUP BY status`
	rows := []struct {
		Status models.RegistrationStatus `db:"status"`
		Count  int                       `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count registration requests: %w", err)
	}
	counts := make(map[models.RegistrationStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
