package auth

import "pds_backend/internal/models"

// Roles allowed to manage payroll data.
var PayrollRoles = []models.RoleName{models.RoleHR, models.RoleAdmin}

// HasAnyRole проверяет, входит ли роль в список разрешенных
func HasAnyRole(role models.RoleName, allowed ...models.RoleName) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// CanViewUserPayslips: a user sees only their own payslips, payroll roles see everyone's.
func CanViewUserPayslips(actorRole models.RoleName, actorID, ownerID string) bool {
	if HasAnyRole(actorRole, PayrollRoles...) {
		return true
	}
	return actorID != "" && actorID == ownerID
}
