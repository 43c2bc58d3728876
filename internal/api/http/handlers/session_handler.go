package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/academia-portal/internal/api/dto"
	"github.com/spec-kit/academia-portal/internal/domain"
	"github.com/spec-kit/academia-portal/internal/exchange"
	"github.com/spec-kit/academia-portal/internal/guard"
	apperrors "github.com/spec-kit/academia-portal/pkg/util"
)

// UnauthorizedMessage is shown on the unauthorized view.
const UnauthorizedMessage = "Você não tem permissão para acessar esta página."

// SessionCore is the part of the session context the portal drives.
type SessionCore interface {
	SignIn(ctx context.Context, creds exchange.Credentials) (*domain.Identity, error)
	SignOut(ctx context.Context) error
	Snapshot() domain.SessionSnapshot
	Claims() (domain.Claims, bool)
}

// Locator reports where the application currently is.
type Locator interface {
	Current() string
}

// SessionHandler exposes the login flow and the session views.
type SessionHandler struct {
	session SessionCore
	history Locator
	now     func() time.Time
}

// NewSessionHandler constructs handler.
func NewSessionHandler(session SessionCore, history Locator) *SessionHandler {
	return &SessionHandler{session: session, history: history, now: time.Now}
}

// LoginPage handles GET /login.
func (h *SessionHandler) LoginPage(c *fiber.Ctx) error {
	snapshot := h.session.Snapshot()
	return c.JSON(dto.ViewResponse{View: "login", Path: c.Path(), Identity: snapshot.Identity})
}

// Login handles POST /login.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		return apperrors.NewValidationError("login and password required", map[string]any{
			"login":    req.Login != "",
			"password": req.Password != "",
		})
	}

	identity, err := h.session.SignIn(c.UserContext(), exchange.Credentials{Login: req.Login, Password: req.Password})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NavigationResponse{Redirect: h.history.Current(), Identity: identity}})
}

// Logout handles POST /logout.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	if err := h.session.SignOut(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NavigationResponse{Redirect: h.history.Current()}})
}

// Session handles GET /api/session.
func (h *SessionHandler) Session(c *fiber.Ctx) error {
	snapshot := h.session.Snapshot()
	resp := dto.SessionResponse{State: snapshot.State, Identity: snapshot.Identity}
	if claims, ok := h.session.Claims(); ok && claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt
		resp.Expired = claims.Expired(h.now())
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Unauthorized handles GET /unauthorized.
func (h *SessionHandler) Unauthorized(c *fiber.Ctx) error {
	snapshot := h.session.Snapshot()
	return c.JSON(dto.ViewResponse{
		View:     "unauthorized",
		Path:     c.Path(),
		Identity: snapshot.Identity,
		Message:  UnauthorizedMessage,
	})
}

// View renders a guarded section. It only runs once the guard has permitted
// the request.
func (h *SessionHandler) View(route guard.Route) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, _ := guard.IdentityFromContext(c)
		return c.JSON(dto.ViewResponse{View: "page", Path: c.Path(), Title: route.Title, Identity: identity})
	}
}
