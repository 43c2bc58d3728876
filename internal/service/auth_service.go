package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/academia-portal/internal/auth"
	"github.com/spec-kit/academia-portal/internal/config"
	"github.com/spec-kit/academia-portal/internal/domain"
	"github.com/spec-kit/academia-portal/internal/repository"
)

// ErrInvalidCredentials hides whether the login or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrAccountInactive is returned for disabled accounts.
var ErrAccountInactive = errors.New("account inactive")

// NewAccount is the input for registering a stub account.
type NewAccount struct {
	Login    string
	FullName string
	PersonID int64
	Password string
	Roles    []string
}

// AuthService issues session tokens for the dev auth stub.
type AuthService struct {
	accounts      repository.AccountRepository
	tokenMgr      *auth.TokenManager
	bcryptCost    int
	institutionID int64
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthStubConfig, accounts repository.AccountRepository) *AuthService {
	return &AuthService{
		accounts:      accounts,
		tokenMgr:      auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL()),
		bcryptCost:    cfg.BcryptCost,
		institutionID: cfg.InstitutionID,
	}
}

// Register creates an active account with a hashed password.
func (s *AuthService) Register(ctx context.Context, in NewAccount) (*domain.Account, error) {
	login := strings.TrimSpace(in.Login)
	if login == "" || in.Password == "" {
		return nil, errors.New("login and password required")
	}
	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	fullName := in.FullName
	if fullName == "" {
		fullName = login
	}
	account := &domain.Account{
		Login:         login,
		FullName:      fullName,
		PersonID:      in.PersonID,
		InstitutionID: s.institutionID,
		PasswordHash:  hash,
		Roles:         in.Roles,
		Active:        true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Login authenticates an account and returns a signed token.
func (s *AuthService) Login(ctx context.Context, login, password string) (*domain.Account, string, time.Time, error) {
	account, err := s.accounts.GetByLogin(ctx, login)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if !account.Active {
		return nil, "", time.Time{}, ErrAccountInactive
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, exp, err := s.tokenMgr.GenerateToken(auth.Subject{
		Login:         account.Login,
		UserID:        account.ID,
		PersonID:      account.PersonID,
		FullName:      account.FullName,
		InstitutionID: account.InstitutionID,
		Roles:         account.Roles,
	})
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return account, token, exp, nil
}

// Accounts lists the directory.
func (s *AuthService) Accounts(ctx context.Context) ([]domain.Account, error) {
	return s.accounts.List(ctx)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
