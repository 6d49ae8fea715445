package models

import "time"

// RegistrationStatus is the state of an onboarding request.
type RegistrationStatus string

const (
	RegistrationPending       RegistrationStatus = "pending"
	RegistrationApproved      RegistrationStatus = "approved"
	RegistrationRejected      RegistrationStatus = "rejected"
	RegistrationInfoRequested RegistrationStatus = "info_requested"
)

// RegistrationRequest is one onboarding application. Transitions are one-way
// out of pending; admin actions on a non-pending request are rejected.
// ApplicantResponse is carried for completeness but no operation sets it:
// a follow-up after info_requested is a fresh admin decision, not a
// resubmission.
type RegistrationRequest struct {
	ID                      string             `db:"id" json:"id"`
	Email                   string             `db:"email" json:"email"`
	FullName                string             `db:"full_name" json:"full_name"`
	RequestedRole           Role               `db:"requested_role" json:"requested_role"`
	Department              *string            `db:"department" json:"department,omitempty"`
	Specialization          *string            `db:"specialization" json:"specialization,omitempty"`
	Phone                   *string            `db:"phone" json:"phone,omitempty"`
	StudentID               *string            `db:"student_id" json:"student_id,omitempty"`
	EmployeeID              *string            `db:"employee_id" json:"employee_id,omitempty"`
	MaxStudents             *int               `db:"max_students" json:"max_students,omitempty"`
	ReasonForRequest        string             `db:"reason_for_request" json:"reason_for_request"`
	Status                  RegistrationStatus `db:"status" json:"status"`
	SubmittedAt             time.Time          `db:"submitted_at" json:"submitted_at"`
	ReviewedAt              *time.Time         `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewedBy              *string            `db:"reviewed_by" json:"reviewed_by,omitempty"`
	AdminComments           *string            `db:"admin_comments" json:"admin_comments,omitempty"`
	AdditionalInfoRequested *string            `db:"additional_info_requested" json:"additional_info_requested,omitempty"`
	ApplicantResponse       *string            `db:"applicant_response" json:"applicant_response,omitempty"`
	CreatedAt               time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time          `db:"updated_at" json:"updated_at"`
}

// OnboardingStats summarises the registration pipeline.
type OnboardingStats struct {
	TotalRequests    int        `json:"total_requests"`
	PendingRequests  int        `json:"pending_requests"`
	ApprovedRequests int        `json:"approved_requests"`
	RejectedRequests int        `json:"rejected_requests"`
	InfoRequested    int        `json:"info_requested"`
	RecentActivity   []AuditLog `json:"recent_activity"`
}
