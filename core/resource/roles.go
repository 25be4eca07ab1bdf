package resource

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Manager
	RoleManager = "manager:"

	// Teacher
	RoleTeacher = "teacher:"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal}
	AllRoles   = []string{RoleAdminOwner, RoleAdminPrincipal, RoleAdmin, RoleManager, RoleTeacher, RoleStudent}

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner:     30,
		RoleAdminPrincipal: 29,
		RoleAdmin:          21,

		// Managers: 20 - 12
		RoleManager: 20,

		// Teachers / Students: 11 - 1
		RoleTeacher: 11,
		RoleStudent: 1,
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

// HasPrivilege reports whether any of the roles may invoke mutating
// transitions on other people's records: manager or above.
func HasPrivilege(roles []string) bool {
	return MaxRolePriority(roles) >= rolePriorities[RoleManager]
}

func ValidRole(role string) bool {
	_, ok := rolePriorities[role]
	return ok
}
