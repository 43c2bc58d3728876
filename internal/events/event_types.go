package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/academia-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

// Restored and anonymous are the two outcomes of startup; signed in and
// signed out follow explicit user actions.
const (
	EventSessionRestored  EventType = "session.restored"
	EventSessionSignedIn  EventType = "session.signed_in"
	EventSessionSignedOut EventType = "session.signed_out"
	EventSessionAnonymous EventType = "session.anonymous"
)

// SessionEventTypes lists every session transition event.
var SessionEventTypes = []EventType{
	EventSessionRestored,
	EventSessionSignedIn,
	EventSessionSignedOut,
	EventSessionAnonymous,
}

// Event represents a session state transition.
type Event struct {
	ID        string              `json:"id"`
	Type      EventType           `json:"type"`
	RequestID string              `json:"request_id,omitempty"`
	State     domain.SessionState `json:"state"`
	Identity  *domain.Identity    `json:"identity,omitempty"`
	Token     string              `json:"-"`
	Timestamp time.Time           `json:"timestamp"`
}

// NewSessionEvent stamps an event with a fresh id and the current time.
func NewSessionEvent(eventType EventType, state domain.SessionState, identity *domain.Identity, token, requestID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RequestID: requestID,
		State:     state,
		Identity:  identity,
		Token:     token,
		Timestamp: time.Now().UTC(),
	}
}

// Authenticated reports whether the event leaves the session authenticated.
func (e Event) Authenticated() bool {
	return e.State == domain.SessionAuthenticated
}
