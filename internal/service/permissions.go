package service

import "github.com/gradworks/pgdms-api/internal/models"

// Permission keys consumed by route guards and returned to clients.
const (
	PermUsersManage         = "users.manage"
	PermRegistrationsReview = "registrations.review"
	PermAuditView           = "audit.view"
	PermTopicsView          = "topics.view"
	PermTopicsSubmit        = "topics.submit"
	PermTopicsReview        = "topics.review"
	PermTopicsApprove       = "topics.approve"
	PermGuidesAssign        = "guides.assign"
	PermProgressView        = "progress.view"
	PermProgressUpdate      = "progress.update"
	PermPublicationsView    = "publications.view"
	PermPublicationsSubmit  = "publications.submit"
	PermEthicsReview        = "ethics.review"
	PermExaminationsReview  = "examinations.review"
	PermReportsView         = "reports.view"
)

// rolePermissions is the static role→permission table. It is keyed by the
// closed role enum; anything outside it resolves to the empty set.
var rolePermissions = map[models.Role][]string{
	models.RoleAdmin: {
		PermUsersManage,
		PermRegistrationsReview,
		PermAuditView,
		PermTopicsView,
		PermTopicsApprove,
		PermGuidesAssign,
		PermProgressView,
		PermPublicationsView,
		PermReportsView,
	},
	models.RoleCoordinator: {
		PermTopicsView,
		PermTopicsApprove,
		PermGuidesAssign,
		PermProgressView,
		PermPublicationsView,
		PermReportsView,
	},
	models.RoleGuide: {
		PermTopicsView,
		PermTopicsReview,
		PermProgressView,
		PermProgressUpdate,
		PermPublicationsView,
	},
	models.RoleStudent: {
		PermTopicsView,
		PermTopicsSubmit,
		PermProgressView,
		PermProgressUpdate,
		PermPublicationsView,
		PermPublicationsSubmit,
	},
	models.RoleEthicsCommittee: {
		PermTopicsView,
		PermTopicsReview,
		PermEthicsReview,
	},
	models.RoleExaminer: {
		PermTopicsView,
		PermProgressView,
		PermExaminationsReview,
	},
}

// PermissionsFor returns the permission set for a role. Unknown roles get an
// empty set: deny by default.
func PermissionsFor(role models.Role) []string {
	perms, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// HasPermission reports whether the role's static set contains the
// permission. It derives from the role alone and never from a cached
// snapshot, so a role change cannot leave stale grants behind.
func HasPermission(role models.Role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}
