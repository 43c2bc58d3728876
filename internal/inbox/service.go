package inbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/academia-portal/internal/cache"
	"github.com/spec-kit/academia-portal/internal/domain"
	apperrors "github.com/spec-kit/academia-portal/pkg/util"
)

const defaultRefreshTimeout = 10 * time.Second

// Session reports whether a user is signed in.
type Session interface {
	Snapshot() domain.SessionSnapshot
}

// Service serves notifications from the cache, fetching on a miss.
type Service struct {
	notifications  *cache.Notifications
	fetch          cache.FetchFunc
	session        Session
	logger         *zap.Logger
	refreshTimeout time.Duration
}

func NewService(notifications *cache.Notifications, fetch cache.FetchFunc, session Session, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		notifications:  notifications,
		fetch:          fetch,
		session:        session,
		logger:         logger,
		refreshTimeout: defaultRefreshTimeout,
	}
}

func (s *Service) List(ctx context.Context) ([]cache.Notification, error) {
	if !s.session.Snapshot().Authenticated() {
		return nil, apperrors.NewUnauthorized("sign in to read notifications")
	}
	return s.notifications.List(ctx, s.fetch)
}

func (s *Service) Get(ctx context.Context, id string) (cache.Notification, error) {
	if !s.session.Snapshot().Authenticated() {
		return cache.Notification{}, apperrors.NewUnauthorized("sign in to read notifications")
	}
	item, ok, err := s.notifications.Lookup(ctx, id, s.fetch)
	if err != nil {
		return cache.Notification{}, err
	}
	if !ok {
		return cache.Notification{}, apperrors.NewNotFound("notification", map[string]any{"id": id})
	}
	return item, nil
}

// Refresh is an invalidation hook: a pushed message reloads the list in the
// background so the next read is served from the cache.
func (s *Service) Refresh(generation uint64, reason string) {
	if reason != cache.ReasonMessage {
		return
	}
	go func() {
		if !s.session.Snapshot().Authenticated() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
		defer cancel()
		if _, err := s.notifications.List(ctx, s.fetch); err != nil {
			s.logger.Warn("notification refresh failed", zap.Uint64("generation", generation), zap.Error(err))
		}
	}()
}
