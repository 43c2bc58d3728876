package domain

import "time"

// Claims is the structured content decoded from a session token.
type Claims struct {
	Subject       string
	UserID        int64
	PersonID      int64
	FullName      string
	InstitutionID int64
	Roles         RoleSet
	RawRoles      []string
	ExpiresAt     *time.Time
}

// Expired reports whether the token carried an expiry that has passed at now.
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// Identity is the application-visible user record of an authenticated session.
type Identity struct {
	ID            int64    `json:"id"`
	Login         string   `json:"login"`
	FullName      string   `json:"fullName"`
	PersonID      int64    `json:"personId"`
	InstitutionID int64    `json:"institutionId"`
	Roles         RoleSet  `json:"-"`
	RoleNames     []string `json:"roles"`
}

// NewIdentity derives an Identity from decoded claims.
func NewIdentity(c Claims) *Identity {
	roles := make(RoleSet, len(c.Roles))
	copy(roles, c.Roles)
	return &Identity{
		ID:            c.UserID,
		Login:         c.Subject,
		FullName:      c.FullName,
		PersonID:      c.PersonID,
		InstitutionID: c.InstitutionID,
		Roles:         roles,
		RoleNames:     roles.Strings(),
	}
}

// HasAnyRole reports whether the identity holds at least one of the given roles.
func (i *Identity) HasAnyRole(roles ...Role) bool {
	if i == nil {
		return false
	}
	return i.Roles.Intersects(NewRoleSet(roles...))
}
