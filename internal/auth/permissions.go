package auth

// Permission is a named capability checked by the API.
type Permission string

const (
	PermManifestRead    Permission = "manifest:read"
	PermManifestCompile Permission = "manifest:compile"
	PermSystemAdmin     Permission = "system:admin"
)

// rolePermissions is the whole authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermManifestRead,
	},
	RoleOperator: {
		PermManifestRead,
		PermManifestCompile,
	},
	RoleAdmin: {
		PermManifestRead,
		PermManifestCompile,
		PermSystemAdmin,
	},
}

// HasPermission reports whether role grants perm. Unknown roles grant nothing.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns a copy of the role's permissions, nil if unknown.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}
