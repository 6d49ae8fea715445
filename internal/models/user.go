package models

import (
	"strings"
	"time"
)

// Role represents the available roles for the RBAC system.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleCoordinator     Role = "coordinator"
	RoleGuide           Role = "guide"
	RoleStudent         Role = "student"
	RoleEthicsCommittee Role = "ethics_committee"
	RoleExaminer        Role = "examiner"
)

// AllRoles is the closed role enum. Permission checks deny anything outside it.
var AllRoles = []Role{
	RoleAdmin,
	RoleCoordinator,
	RoleGuide,
	RoleStudent,
	RoleEthicsCommittee,
	RoleExaminer,
}

// Valid reports whether the role belongs to the closed enum.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCoordinator, RoleGuide, RoleStudent, RoleEthicsCommittee, RoleExaminer:
		return true
	}
	return false
}

// Display renders the role for user-facing messages ("ethics committee").
func (r Role) Display() string {
	return strings.ReplaceAll(string(r), "_", " ")
}

// User represents an account stored in the users table. PasswordHash never
// leaves the server: it is excluded from JSON and from the Public projection.
type User struct {
	ID                  string     `db:"id" json:"id"`
	Email               string     `db:"email" json:"email"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	Role                Role       `db:"role" json:"role"`
	FullName            string     `db:"full_name" json:"full_name"`
	Department          *string    `db:"department" json:"department,omitempty"`
	Specialization      *string    `db:"specialization" json:"specialization,omitempty"`
	Phone               *string    `db:"phone" json:"phone,omitempty"`
	EmployeeID          *string    `db:"employee_id" json:"employee_id,omitempty"`
	StudentID           *string    `db:"student_id" json:"student_id,omitempty"`
	MaxStudents         *int       `db:"max_students" json:"max_students,omitempty"`
	CurrentStudents     *int       `db:"current_students" json:"current_students,omitempty"`
	IsActive            bool       `db:"is_active" json:"is_active"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
	CreatedBy           *string    `db:"created_by" json:"created_by,omitempty"`
	LastLogin           *time.Time `db:"last_login" json:"last_login,omitempty"`
	FailedLoginAttempts int        `db:"failed_login_attempts" json:"-"`
	AccountLockedUntil  *time.Time `db:"account_locked_until" json:"-"`
}

// UserInfo is the public projection of an account returned by the API.
type UserInfo struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	FullName        string  `json:"full_name"`
	Role            Role    `json:"role"`
	Department      *string `json:"department,omitempty"`
	Specialization  *string `json:"specialization,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	EmployeeID      *string `json:"employee_id,omitempty"`
	StudentID       *string `json:"student_id,omitempty"`
	MaxStudents     *int    `json:"max_students,omitempty"`
	CurrentStudents *int    `json:"current_students,omitempty"`
}

// Public returns the credential-free projection of the user.
func (u *User) Public() UserInfo {
	return UserInfo{
		ID:              u.ID,
		Email:           u.Email,
		FullName:        u.FullName,
		Role:            u.Role,
		Department:      u.Department,
		Specialization:  u.Specialization,
		Phone:           u.Phone,
		EmployeeID:      u.EmployeeID,
		StudentID:       u.StudentID,
		MaxStudents:     u.MaxStudents,
		CurrentStudents: u.CurrentStudents,
	}
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *Role
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
