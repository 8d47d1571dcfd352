package auth

import "errors"

// Role is an authorisation tier carried in the token.
type Role string

const (
	// RoleViewer can read resolved hours and compiled manifests.
	RoleViewer Role = "viewer"

	// RoleOperator can also trigger an on-demand compile.
	RoleOperator Role = "operator"

	// RoleAdmin has every permission.
	RoleAdmin Role = "admin"
)

// ValidRoles lists every role a token may carry.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleAdmin}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Identity is the caller a token is issued to.
type Identity struct {
	Subject string
	Role    Role
	SiteIDs []string
}

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role")
	ErrWeakSecret   = errors.New("signing secret too short")
	ErrForbidden    = errors.New("insufficient permissions")
)
