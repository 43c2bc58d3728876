package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/academia-portal/internal/auth"
	"github.com/spec-kit/academia-portal/internal/domain"
	"github.com/spec-kit/academia-portal/internal/events"
	"github.com/spec-kit/academia-portal/internal/exchange"
	"github.com/spec-kit/academia-portal/internal/navigation"
	"github.com/spec-kit/academia-portal/internal/observability"
	"github.com/spec-kit/academia-portal/internal/tokenstore"
	"github.com/spec-kit/academia-portal/internal/transport"
	apperrors "github.com/spec-kit/academia-portal/pkg/util"
)

type exchangeFunc func(ctx context.Context, creds exchange.Credentials) (string, error)

func (f exchangeFunc) Exchange(ctx context.Context, creds exchange.Credentials) (string, error) {
	return f(ctx, creds)
}

type failingStore struct {
	tokenstore.Memory
	loadErr, saveErr, clearErr error
}

func (s *failingStore) Load(ctx context.Context) (string, bool, error) {
	if s.loadErr != nil {
		return "", false, s.loadErr
	}
	return s.Memory.Load(ctx)
}

func (s *failingStore) Save(ctx context.Context, token string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.Memory.Save(ctx, token)
}

func (s *failingStore) Clear(ctx context.Context) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	return s.Memory.Clear(ctx)
}

type harness struct {
	ctx     *Context
	store   tokenstore.Store
	headers *transport.Headers
	history *navigation.History
	metrics *observability.Metrics
	events  []events.Event
	mu      sync.Mutex
}

func (h *harness) published() []events.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]events.EventType, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}

func newHarness(t *testing.T, store tokenstore.Store, exchanger Exchanger) *harness {
	t.Helper()
	h := &harness{
		store:   store,
		headers: transport.NewHeaders(),
		history: navigation.NewHistory(""),
		metrics: observability.NewMetrics(),
	}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	events.SubscribeSession(dispatcher, func(_ context.Context, e events.Event) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.events = append(h.events, e)
		return nil
	})
	h.ctx = New(Deps{
		Store:      store,
		Exchanger:  exchanger,
		Decoder:    auth.NewDecoder(),
		Headers:    h.headers,
		Navigator:  h.history,
		Dispatcher: dispatcher,
		Metrics:    h.metrics,
		Logger:     zap.NewNop(),
	})
	return h
}

func mintToken(t *testing.T, login string, roles ...string) string {
	t.Helper()
	token, _, err := auth.NewTokenManager("test-secret", time.Hour).GenerateToken(auth.Subject{
		Login:         login,
		UserID:        42,
		PersonID:      420,
		FullName:      "John Doe",
		InstitutionID: 1,
		Roles:         roles,
	})
	require.NoError(t, err)
	return token
}

func staticExchanger(token string, err error) Exchanger {
	return exchangeFunc(func(context.Context, exchange.Credentials) (string, error) {
		return token, err
	})
}

func TestStartWithoutStoredToken(t *testing.T) {
	h := newHarness(t, tokenstore.NewMemory(), staticExchanger("", nil))
	assert.Equal(t, domain.SessionUnknown, h.ctx.State())

	require.NoError(t, h.ctx.Start(context.Background()))

	snap := h.ctx.Snapshot()
	assert.Equal(t, domain.SessionUnauthenticated, snap.State)
	assert.Nil(t, snap.Identity)
	assert.Empty(t, h.headers.Authorization())
	assert.Empty(t, h.history.Entries())
	assert.Equal(t, []events.EventType{events.EventSessionAnonymous}, h.published())

	select {
	case <-h.ctx.Resolved():
	default:
		t.Fatal("resolved channel not closed")
	}
}

func TestStartRestoresStoredToken(t *testing.T) {
	store := tokenstore.NewMemory()
	token := mintToken(t, "jdoe", "TEACHER", "EMPLOYEE")
	require.NoError(t, store.Save(context.Background(), token))

	h := newHarness(t, store, staticExchanger("", nil))
	require.NoError(t, h.ctx.Start(context.Background()))

	assert.True(t, h.ctx.Authenticated())
	identity := h.ctx.Identity()
	require.NotNil(t, identity)
	assert.Equal(t, int64(42), identity.ID)
	assert.Equal(t, "jdoe", identity.Login)
	assert.Equal(t, domain.RoleSet{domain.RoleTeacher, domain.RoleEmployee}, identity.Roles)
	assert.Equal(t, "Bearer "+token, h.headers.Authorization())
	assert.Equal(t, token, h.ctx.Token())
	assert.Empty(t, h.history.Entries())
	assert.Equal(t, []events.EventType{events.EventSessionRestored}, h.published())
}

func TestStartDiscardsUndecodableToken(t *testing.T) {
	store := tokenstore.NewMemory()
	require.NoError(t, store.Save(context.Background(), "garbage"))

	h := newHarness(t, store, staticExchanger("", nil))
	require.NoError(t, h.ctx.Start(context.Background()))

	assert.Equal(t, domain.SessionUnauthenticated, h.ctx.State())
	_, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, h.headers.Authorization())
}

func TestStartStorageFailureResolvesAnonymous(t *testing.T) {
	store := &failingStore{loadErr: errors.New("disk gone")}
	h := newHarness(t, store, staticExchanger("", nil))

	require.NoError(t, h.ctx.Start(context.Background()))
	assert.Equal(t, domain.SessionUnauthenticated, h.ctx.State())
}

func TestStartOnlyFromUnknown(t *testing.T) {
	h := newHarness(t, tokenstore.NewMemory(), staticExchanger("", nil))
	require.NoError(t, h.ctx.Start(context.Background()))

	err := h.ctx.Start(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestSignInAdminScenario(t *testing.T) {
	token := mintToken(t, "jdoe", "ROLE_ADMIN")
	var gotCreds exchange.Credentials
	exchanger := exchangeFunc(func(_ context.Context, creds exchange.Credentials) (string, error) {
		gotCreds = creds
		return token, nil
	})
	h := newHarness(t, tokenstore.NewMemory(), exchanger)
	require.NoError(t, h.ctx.Start(context.Background()))

	identity, err := h.ctx.SignIn(context.Background(), exchange.Credentials{Login: "jdoe", Password: "right"})
	require.NoError(t, err)

	assert.Equal(t, exchange.Credentials{Login: "jdoe", Password: "right"}, gotCreds)
	assert.True(t, h.ctx.Authenticated())
	assert.Equal(t, identity, h.ctx.Identity())
	assert.True(t, identity.HasAnyRole(domain.ParseRole("ROLE_ADMIN")))
	assert.Equal(t, "/dashboard", h.history.Current())
	assert.Equal(t, "Bearer "+token, h.headers.Authorization())

	stored, ok, err := h.store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, token, stored)

	claims, ok := h.ctx.Claims()
	assert.True(t, ok)
	assert.Equal(t, "jdoe", claims.Subject)
	assert.Equal(t, []events.EventType{events.EventSessionAnonymous, events.EventSessionSignedIn}, h.published())
	assert.Equal(t, int64(1), h.metrics.Snapshot()["sign_ins"]["success"])
}

func TestSignInRejectedLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t, tokenstore.NewMemory(), staticExchanger("", apperrors.NewAuthenticationError(errors.New("401"))))
	require.NoError(t, h.ctx.Start(context.Background()))

	_, err := h.ctx.SignIn(context.Background(), exchange.Credentials{Login: "jdoe", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, apperrors.MessageInvalidCredentials, apperrors.ToDomainError(err).Message)

	assert.Equal(t, domain.SessionUnauthenticated, h.ctx.State())
	assert.Empty(t, h.history.Entries())
	assert.Empty(t, h.headers.Authorization())
	_, ok, _ := h.store.Load(context.Background())
	assert.False(t, ok)
}

func TestRejectedSignInBeforeStartKeepsRestoreBarrier(t *testing.T) {
	store := tokenstore.NewMemory()
	stored := mintToken(t, "jdoe", "ADMIN")
	require.NoError(t, store.Save(context.Background(), stored))
	h := newHarness(t, store, staticExchanger("", apperrors.NewAuthenticationError(errors.New("401"))))

	_, err := h.ctx.SignIn(context.Background(), exchange.Credentials{Login: "other", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, domain.SessionUnknown, h.ctx.State())
	assert.Empty(t, h.history.Entries())

	require.NoError(t, h.ctx.Start(context.Background()))
	assert.Equal(t, domain.SessionAuthenticated, h.ctx.State())
	assert.Equal(t, stored, h.ctx.Token())
}

func TestSignInWithUndecodableTokenFails(t *testing.T) {
	h := newHarness(t, tokenstore.NewMemory(), staticExchanger("not.a.jwt", nil))
	require.NoError(t, h.ctx.Start(context.Background()))

	_, err := h.ctx.SignIn(context.Background(), exchange.Credentials{Login: "jdoe"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDecodeFailed))
	assert.Equal(t, domain.SessionUnauthenticated, h.ctx.State())
	_, ok, _ := h.store.Load(context.Background())
	assert.False(t, ok)
}

func TestSignInStorageFailureLeavesStateUnchanged(t *testing.T) {
	store := &failingStore{saveErr: apperrors.NewStorageError("save", errors.New("read-only"))}
	h := newHarness(t, store, staticExchanger(mintToken(t, "jdoe", "STUDENT"), nil))
	require.NoError(t, h.ctx.Start(context.Background()))

	_, err := h.ctx.SignIn(context.Background(), exchange.Credentials{Login: "jdoe"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStorageFailed))
	assert.False(t, h.ctx.Authenticated())
	assert.Empty(t, h.headers.Authorization())
}

func TestSignInWhileAuthenticatedIsInvalid(t *testing.T) {
	h := newHarness(t, tokenstore.NewMemory(), staticExchanger(mintToken(t, "jdoe", "STUDENT"), nil))
	require.NoError(t, h.ctx.Start(context.Background()))
	_, err := h.ctx.SignIn(context.Background(), exchange.Credentials{Login: "jdoe"})
	require.NoError(t, err)

	_, err = h.ctx.SignIn(context.Background(), exchange.Credentials{Login: "jdoe"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestSignOut(t *testing.T) {
	h := newHarness(t, tokenstore.NewMemory(), staticExchanger(mintToken(t, "jdoe", "STUDENT"), nil))
	require.NoError(t, h.ctx.Start(context.Background()))
	_, err := h.ctx.SignIn(context.Background(), exchange.Credentials{Login: "jdoe"})
	require.NoError(t, err)

	require.NoError(t, h.ctx.SignOut(context.Background()))

	snap := h.ctx.Snapshot()
	assert.Equal(t, domain.SessionUnauthenticated, snap.State)
	assert.Nil(t, snap.Identity)
	assert.Empty(t, h.headers.Authorization())
	assert.Empty(t, h.ctx.Token())
	assert.Equal(t, "/login", h.history.Current())
	_, ok, _ := h.store.Load(context.Background())
	assert.False(t, ok)
	assert.Equal(t, events.EventSessionSignedOut, h.published()[len(h.published())-1])

	err = h.ctx.SignOut(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestSignOutClearFailureKeepsSession(t *testing.T) {
	store := &failingStore{}
	h := newHarness(t, store, staticExchanger(mintToken(t, "jdoe", "STUDENT"), nil))
	require.NoError(t, h.ctx.Start(context.Background()))
	_, err := h.ctx.SignIn(context.Background(), exchange.Credentials{Login: "jdoe"})
	require.NoError(t, err)

	store.clearErr = apperrors.NewStorageError("clear", errors.New("locked"))
	err = h.ctx.SignOut(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStorageFailed))
	assert.True(t, h.ctx.Authenticated())
}

func TestOverlappingSignInsLatestWins(t *testing.T) {
	release := make(chan struct{})
	slowStarted := make(chan struct{})
	token := mintToken(t, "jdoe", "STUDENT")

	exchanger := exchangeFunc(func(_ context.Context, creds exchange.Credentials) (string, error) {
		if creds.Password == "slow-right" {
			close(slowStarted)
			<-release
			return token, nil
		}
		return "", apperrors.NewAuthenticationError(errors.New("401"))
	})
	h := newHarness(t, tokenstore.NewMemory(), exchanger)
	require.NoError(t, h.ctx.Start(context.Background()))

	slowErr := make(chan error, 1)
	go func() {
		_, err := h.ctx.SignIn(context.Background(), exchange.Credentials{Login: "jdoe", Password: "slow-right"})
		slowErr <- err
	}()
	<-slowStarted

	_, err := h.ctx.SignIn(context.Background(), exchange.Credentials{Login: "jdoe", Password: "wrong"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAuthenticationFailed))

	close(release)
	err = <-slowErr
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSuperseded))
	assert.Equal(t, domain.SessionUnauthenticated, h.ctx.State())
	assert.Empty(t, h.history.Entries())
}

func TestSignOutSupersedesInFlightSignIn(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	first := mintToken(t, "jdoe", "STUDENT")
	calls := atomic.Int32{}

	exchanger := exchangeFunc(func(context.Context, exchange.Credentials) (string, error) {
		if calls.Add(1) == 2 {
			close(started)
			<-release
		}
		return first, nil
	})
	h := newHarness(t, tokenstore.NewMemory(), exchanger)
	require.NoError(t, h.ctx.Start(context.Background()))
	_, err := h.ctx.SignIn(context.Background(), exchange.Credentials{Login: "jdoe"})
	require.NoError(t, err)
	require.NoError(t, h.ctx.SignOut(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := h.ctx.SignIn(context.Background(), exchange.Credentials{Login: "jdoe"})
		done <- err
	}()
	<-started
	// A sign-out while unauthenticated is rejected but still supersedes the attempt.
	assert.Error(t, h.ctx.SignOut(context.Background()))
	close(release)

	assert.True(t, apperrors.HasCode(<-done, apperrors.CodeSuperseded))
	assert.False(t, h.ctx.Authenticated())
}

func TestAbandonedSignInNeverApplies(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exchanger := exchangeFunc(func(context.Context, exchange.Credentials) (string, error) {
		cancel()
		return mintToken(t, "jdoe", "STUDENT"), nil
	})
	h := newHarness(t, tokenstore.NewMemory(), exchanger)
	require.NoError(t, h.ctx.Start(context.Background()))

	_, err := h.ctx.SignIn(ctx, exchange.Credentials{Login: "jdoe"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, h.ctx.Authenticated())
	_, ok, _ := h.store.Load(context.Background())
	assert.False(t, ok)
}

func TestAuthenticatedImpliesHeader(t *testing.T) {
	token := mintToken(t, "jdoe", "STUDENT")
	h := newHarness(t, tokenstore.NewMemory(), staticExchanger(token, nil))
	require.NoError(t, h.ctx.Start(context.Background()))

	stop := make(chan struct{})
	violations := atomic.Int32{}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := h.ctx.Snapshot()
			if snap.Authenticated() != (snap.Identity != nil) {
				violations.Add(1)
			}
			if snap.Authenticated() && h.headers.Authorization() == "" {
				violations.Add(1)
			}
		}
	}()

	_, err := h.ctx.SignIn(context.Background(), exchange.Credentials{Login: "jdoe"})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	close(stop)
	wg.Wait()

	assert.Zero(t, violations.Load())
}
