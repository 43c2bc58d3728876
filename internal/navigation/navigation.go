package navigation

import (
	"sync"

	"github.com/spec-kit/academia-portal/internal/config"
)

// Routes names the navigation targets the session core redirects to.
type Routes struct {
	Login        string
	Landing      string
	Unauthorized string
}

// DefaultRoutes matches the application's built-in paths.
func DefaultRoutes() Routes {
	return Routes{Login: "/login", Landing: "/dashboard", Unauthorized: "/unauthorized"}
}

// RoutesFromConfig fills blanks with the defaults.
func RoutesFromConfig(cfg config.RoutesConfig) Routes {
	r := DefaultRoutes()
	if cfg.Login != "" {
		r.Login = cfg.Login
	}
	if cfg.Landing != "" {
		r.Landing = cfg.Landing
	}
	if cfg.Unauthorized != "" {
		r.Unauthorized = cfg.Unauthorized
	}
	return r
}

// Navigator moves the application to another route.
type Navigator interface {
	Navigate(route string)
}

// History records every navigation in order.
type History struct {
	mu      sync.RWMutex
	entries []string
	onNav   []func(string)
}

func NewHistory(initial string) *History {
	h := &History{}
	if initial != "" {
		h.entries = append(h.entries, initial)
	}
	return h
}

func (h *History) Navigate(route string) {
	h.mu.Lock()
	h.entries = append(h.entries, route)
	hooks := append([]func(string){}, h.onNav...)
	h.mu.Unlock()

	for _, hook := range hooks {
		hook(route)
	}
}

// Current returns the latest route, or "" before any navigation.
func (h *History) Current() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[len(h.entries)-1]
}

func (h *History) Entries() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.entries...)
}

// OnNavigate registers a hook invoked after each navigation.
func (h *History) OnNavigate(fn func(route string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onNav = append(h.onNav, fn)
}
