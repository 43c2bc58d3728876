package transport

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Headers holds the default Authorization header applied to outgoing API
// requests. The session context is its only writer.
type Headers struct {
	mu    sync.RWMutex
	token *oauth2.Token
}

func NewHeaders() *Headers {
	return &Headers{}
}

// SetBearer installs "Authorization: Bearer <token>" for every later request.
func (h *Headers) SetBearer(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if token == "" {
		h.token = nil
		return
	}
	h.token = &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
}

// Clear removes the default Authorization header.
func (h *Headers) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = nil
}

// Authorization returns the current header value, or "" when none is set.
func (h *Headers) Authorization() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.token == nil {
		return ""
	}
	return h.token.Type() + " " + h.token.AccessToken
}

// Apply sets the default Authorization header on req unless the caller set one.
func (h *Headers) Apply(req *http.Request) {
	if req.Header.Get("Authorization") != "" {
		return
	}
	h.mu.RLock()
	token := h.token
	h.mu.RUnlock()
	if token != nil {
		token.SetAuthHeader(req)
	}
}

type headerTransport struct {
	base    http.RoundTripper
	headers *Headers
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	t.headers.Apply(clone)
	return t.base.RoundTrip(clone)
}

// NewHTTPClient returns an API client whose requests carry the default headers.
func NewHTTPClient(headers *Headers, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &headerTransport{base: http.DefaultTransport, headers: headers},
	}
}
