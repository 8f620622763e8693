package rbac

// Simple default policy. Students are anonymous and never reach guarded
// routes; only the admin role exists for now.
var RolePermissions = map[string][]string{
	"admin": {
		"subject:*",
		"question:*",
		"bank:import",
		"bank:maintain",
	},
}
