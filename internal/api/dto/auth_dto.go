package dto

import "time"

// LoginRequest is the credential payload accepted by both the portal login
// form and the backend login endpoint.
type LoginRequest struct {
	Login    string `json:"login" form:"login"`
	Password string `json:"password" form:"password"`
}

// AuthResponse is the backend login response. Only the token is consumed by
// the session core.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
