package dto

import (
	"time"

	"github.com/spec-kit/academia-portal/internal/domain"
)

// SessionResponse describes the session as the portal sees it.
type SessionResponse struct {
	State     domain.SessionState `json:"state"`
	Identity  *domain.Identity    `json:"identity,omitempty"`
	ExpiresAt *time.Time          `json:"expiresAt,omitempty"`
	Expired   bool                `json:"expired,omitempty"`
}

// NavigationResponse tells the client where the session core navigated.
type NavigationResponse struct {
	Redirect string           `json:"redirect"`
	Identity *domain.Identity `json:"identity,omitempty"`
}

// ViewResponse renders a page placeholder for the client shell.
type ViewResponse struct {
	View     string           `json:"view"`
	Path     string           `json:"path"`
	Title    string           `json:"title,omitempty"`
	Identity *domain.Identity `json:"identity,omitempty"`
	Message  string           `json:"message,omitempty"`
}
