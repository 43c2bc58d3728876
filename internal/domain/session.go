package domain

// SessionState is the lifecycle position of the session state machine.
type SessionState string

const (
	SessionUnknown         SessionState = "UNKNOWN"
	SessionAuthenticated   SessionState = "AUTHENTICATED"
	SessionUnauthenticated SessionState = "UNAUTHENTICATED"
)

// SessionSnapshot is a consistent read of the session state machine.
// Identity is non-nil iff State is SessionAuthenticated.
type SessionSnapshot struct {
	State    SessionState `json:"state"`
	Identity *Identity    `json:"identity,omitempty"`
}

// Authenticated is derived from State only.
func (s SessionSnapshot) Authenticated() bool {
	return s.State == SessionAuthenticated
}

// Resolved reports whether the startup check has completed.
func (s SessionSnapshot) Resolved() bool {
	return s.State != SessionUnknown && s.State != ""
}
