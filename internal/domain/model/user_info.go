package model

// Roles understood by the dashboard.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
	RoleAPI     = "api"
	RoleGuest   = "guest"
)

// Permissions carried in user claims.
const (
	PermReadOrders    = "read:orders"
	PermWriteOrders   = "write:orders"
	PermReadAnalytics = "read:analytics"
)

// UserInfo holds the claims produced by the authentication collaborator.
// The registry stores it opaquely; only the role is inspected by the control protocol.
type UserInfo struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
}

// IsAdmin reports whether the claims carry the admin role.
func (u *UserInfo) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// HasRole reports whether the claims carry any of the given roles.
func (u *UserInfo) HasRole(roles ...string) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
