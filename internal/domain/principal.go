package domain

// Principal is the resolved actor behind a request: the directory row's
// id and role, not the raw token claims. Access decisions take a
// Principal so they stay independent of the transport.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
