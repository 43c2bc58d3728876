package guard

import (
	"github.com/spec-kit/academia-portal/internal/domain"
	"github.com/spec-kit/academia-portal/internal/navigation"
)

// Outcome is the routing result of one guard evaluation.
type Outcome int

const (
	// Pending means the session is still Unknown: render a loading
	// placeholder and never redirect.
	Pending Outcome = iota
	Permit
	RedirectLogin
	RedirectUnauthorized
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Permit:
		return "permit"
	case RedirectLogin:
		return "redirect_login"
	case RedirectUnauthorized:
		return "redirect_unauthorized"
	default:
		return "unknown"
	}
}

// Requirement describes who may see a view.
type Requirement struct {
	roles domain.RoleSet
}

// Authenticated admits any signed-in user.
func Authenticated() Requirement {
	return Requirement{}
}

// AnyOf admits users holding at least one of roles. With no roles it is
// the same as Authenticated.
func AnyOf(roles ...domain.Role) Requirement {
	return Requirement{roles: domain.NewRoleSet(roles...)}
}

// AnyOfNames parses backend role strings, so "ROLE_ADMIN" and "ADMIN" are equal.
// Unrecognized names stay in the set and never match.
func AnyOfNames(names ...string) Requirement {
	return Requirement{roles: domain.ParseRoleSet(names)}
}

// Restricted reports whether the requirement names roles.
func (r Requirement) Restricted() bool {
	return len(r.roles) > 0
}

func (r Requirement) Roles() domain.RoleSet {
	return append(domain.RoleSet(nil), r.roles...)
}

// Admits reports whether identity satisfies the requirement.
func (r Requirement) Admits(identity *domain.Identity) bool {
	if identity == nil {
		return false
	}
	if !r.Restricted() {
		return true
	}
	return identity.HasAnyRole(r.roles...)
}

// Decision is the outcome plus the route to redirect to, if any.
type Decision struct {
	Outcome  Outcome
	Redirect string
}

// Decide is pure: the same snapshot and requirement always give the same decision.
func Decide(snapshot domain.SessionSnapshot, req Requirement, routes navigation.Routes) Decision {
	switch snapshot.State {
	case domain.SessionAuthenticated:
		if req.Admits(snapshot.Identity) {
			return Decision{Outcome: Permit}
		}
		return Decision{Outcome: RedirectUnauthorized, Redirect: routes.Unauthorized}
	case domain.SessionUnauthenticated:
		return Decision{Outcome: RedirectLogin, Redirect: routes.Login}
	default:
		return Decision{Outcome: Pending}
	}
}
