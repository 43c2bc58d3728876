package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/academia-portal/internal/domain"
)

// ErrNotFound is returned when no account matches.
var ErrNotFound = errors.New("account not found")

// ErrDuplicateLogin is returned when creating an account whose login is taken.
var ErrDuplicateLogin = errors.New("login already registered")

// AccountRepository defines access to the stub's login directory.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByLogin(ctx context.Context, login string) (*domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
}

type memoryAccountRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byLogin map[string]domain.Account
}

// NewMemoryAccountRepository returns an in-process implementation. Logins are
// matched case-insensitively.
func NewMemoryAccountRepository() AccountRepository {
	return &memoryAccountRepository{nextID: 1, byLogin: make(map[string]domain.Account)}
}

func (r *memoryAccountRepository) Create(_ context.Context, account *domain.Account) error {
	key := normalizeLogin(account.Login)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byLogin[key]; exists {
		return ErrDuplicateLogin
	}
	if account.ID == 0 {
		account.ID = r.nextID
	}
	if account.ID >= r.nextID {
		r.nextID = account.ID + 1
	}
	account.CreatedAt = time.Now().UTC()
	stored := *account
	stored.Roles = append([]string(nil), account.Roles...)
	r.byLogin[key] = stored
	return nil
}

func (r *memoryAccountRepository) GetByLogin(_ context.Context, login string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.byLogin[normalizeLogin(login)]
	if !ok {
		return nil, ErrNotFound
	}
	account.Roles = append([]string(nil), account.Roles...)
	return &account, nil
}

func (r *memoryAccountRepository) List(_ context.Context) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Account, 0, len(r.byLogin))
	for _, account := range r.byLogin {
		account.Roles = append([]string(nil), account.Roles...)
		out = append(out, account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func normalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}
