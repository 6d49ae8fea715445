package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gradworks/pgdms-api/internal/models"
	"github.com/gradworks/pgdms-api/pkg/password"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

type demoAccount struct {
	ID             string
	Email          string
	Role           models.Role
	FullName       string
	Department     string
	Specialization string
	EmployeeID     string
	StudentID      string
	MaxStudents    int
	CurStudents    int
}

var demoAccounts = []demoAccount{
	{ID: "admin_001", Email: "admin@university.edu", Role: models.RoleAdmin, FullName: "System Administrator", Department: "IT Department", EmployeeID: "EMP001"},
	{ID: "coord_001", Email: "coordinator@university.edu", Role: models.RoleCoordinator, FullName: "Dr. Robert Johnson", Department: "Computer Science", EmployeeID: "EMP002"},
	{ID: "guide_001", Email: "guide@university.edu", Role: models.RoleGuide, FullName: "Dr. Jane Smith", Department: "Computer Science", Specialization: "Artificial Intelligence", EmployeeID: "EMP003", MaxStudents: 8, CurStudents: 5},
	{ID: "student_001", Email: "student@university.edu", Role: models.RoleStudent, FullName: "John Doe", Department: "Computer Science", Specialization: "Machine Learning", StudentID: "CS2024001"},
	{ID: "ethics_001", Email: "ethics@university.edu", Role: models.RoleEthicsCommittee, FullName: "Dr. Sarah Wilson", Department: "Ethics Committee", EmployeeID: "EMP004"},
	{ID: "examiner_001", Email: "examiner@university.edu", Role: models.RoleExaminer, FullName: "Dr. Michael Brown", Department: "Computer Science", EmployeeID: "EMP005"},
}

const demoPassword = "demo123"

// SeedDemoAccounts provisions one demo account per role. Existing accounts
// are left untouched, so re-running at startup is safe.
func SeedDemoAccounts(ctx context.Context, users *UserRepository, logger *zap.Logger) error {
	for _, acc := range demoAccounts {
		if _, err := users.FindByEmail(ctx, acc.Email); err == nil {
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("seed demo accounts: %w", err)
		}

		user := &models.User{
			ID:           acc.ID,
			Email:        acc.Email,
			PasswordHash: password.Hash(demoPassword, acc.Email),
			Role:         acc.Role,
			FullName:     acc.FullName,
			Department:   strPtr(acc.Department),
			Phone:        strPtr("+1-555-0123"),
			IsActive:     true,
		}
		if acc.Specialization != "" {
			user.Specialization = strPtr(acc.Specialization)
		}
		if acc.EmployeeID != "" {
			user.EmployeeID = strPtr(acc.EmployeeID)
		}
		if acc.StudentID != "" {
			user.StudentID = strPtr(acc.StudentID)
		}
		if acc.MaxStudents > 0 {
			user.MaxStudents = intPtr(acc.MaxStudents)
			user.CurrentStudents = intPtr(acc.CurStudents)
		}

		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("seed demo accounts: %w", err)
		}
		logger.Info("seeded demo account", zap.String("email", acc.Email), zap.String("role", string(acc.Role)))
	}
	return nil
}
