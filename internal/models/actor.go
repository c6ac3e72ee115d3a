package models

// Actor is the authenticated caller of a request.
type Actor struct {
	ID        string
	Role      UserRole
	SessionID string
}

// HasRole reports whether the actor holds one of roles.
func (a *Actor) HasRole(roles ...UserRole) bool {
	if a == nil {
		return false
	}
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
