// Package devserver is a local stand-in for the backend login endpoint. It
// issues signed tokens with the same claim shape the real API uses.
package devserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/academia-portal/internal/api/dto"
	httptransport "github.com/spec-kit/academia-portal/internal/api/http"
	"github.com/spec-kit/academia-portal/internal/auth"
	"github.com/spec-kit/academia-portal/internal/domain"
	"github.com/spec-kit/academia-portal/internal/observability"
	"github.com/spec-kit/academia-portal/internal/service"
	apperrors "github.com/spec-kit/academia-portal/pkg/util"
)

// Server exposes the stub's HTTP API.
type Server struct {
	auth   *service.AuthService
	logger *zap.Logger
}

// NewApp builds the fiber app for the stub.
func NewApp(authService *service.AuthService, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) *fiber.App {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{auth: authService, logger: logger}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, timeout)

	app.Get("/health/live", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive", "service": "authstub"})
	})

	authGroup := app.Group("/auth")
	authGroup.Post("/login", s.Login)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())
	protected := authGroup.Group("", authMiddleware.Handle)
	protected.Get("/me", auth.RequireAnyRole(), s.Me)
	protected.Get("/accounts", auth.RequireAnyRole(domain.RoleAdmin), s.Accounts)
	return app
}

// Login handles POST /auth/login.
func (s *Server) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Login) == "" || req.Password == "" {
		return apperrors.NewValidationError("login and password required", nil)
	}

	account, token, exp, err := s.auth.Login(c.UserContext(), req.Login, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrAccountInactive) {
		s.logger.Info("login rejected", zap.String("login", req.Login), zap.Error(err))
		return apperrors.NewUnauthorized(apperrors.MessageInvalidCredentials)
	}
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	s.logger.Info("login accepted", zap.Int64("user_id", account.ID), zap.Strings("roles", account.Roles))
	return c.JSON(dto.AuthResponse{Token: token, ExpiresAt: exp})
}

// Me handles GET /auth/me for any verified caller.
func (s *Server) Me(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	return c.JSON(fiber.Map{"data": fiber.Map{
		"login":    principal.Subject,
		"fullName": principal.FullName,
		"roles":    principal.Roles,
	}})
}

// Accounts handles GET /auth/accounts for administrators.
func (s *Server) Accounts(c *fiber.Ctx) error {
	accounts, err := s.auth.Accounts(c.UserContext())
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	items := make([]fiber.Map, 0, len(accounts))
	for _, a := range accounts {
		items = append(items, fiber.Map{
			"id":       a.ID,
			"login":    a.Login,
			"fullName": a.FullName,
			"roles":    a.Roles,
			"active":   a.Active,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// SeedAccounts registers one account per role, all sharing password.
func SeedAccounts(ctx context.Context, authService *service.AuthService, password string) error {
	seeds := []service.NewAccount{
		{Login: "admin", FullName: "Administrador", PersonID: 1, Roles: []string{"ROLE_ADMIN"}},
		{Login: "professor", FullName: "Paula Professora", PersonID: 2, Roles: []string{"ROLE_TEACHER"}},
		{Login: "aluno", FullName: "Artur Aluno", PersonID: 3, Roles: []string{"ROLE_STUDENT"}},
		{Login: "secretaria", FullName: "Sara Secretaria", PersonID: 4, Roles: []string{"ROLE_EMPLOYEE"}},
		{Login: "bibliotecario", FullName: "Bruno Bibliotecário", PersonID: 5, Roles: []string{"ROLE_LIBRARIAN"}},
		{Login: "tecnico", FullName: "Tiago Técnico", PersonID: 6, Roles: []string{"ROLE_TECHNICIAN"}},
		{Login: "rh", FullName: "Renata RH", PersonID: 7, Roles: []string{"ROLE_HR_ANALYST"}},
	}
	for _, seed := range seeds {
		seed.Password = password
		if _, err := authService.Register(ctx, seed); err != nil {
			return err
		}
	}
	return nil
}
