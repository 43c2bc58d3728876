package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/academia-portal/internal/domain"
	"github.com/spec-kit/academia-portal/internal/events"
	"github.com/spec-kit/academia-portal/internal/exchange"
	"github.com/spec-kit/academia-portal/internal/navigation"
	"github.com/spec-kit/academia-portal/internal/observability"
	"github.com/spec-kit/academia-portal/internal/tokenstore"
	apperrors "github.com/spec-kit/academia-portal/pkg/util"
)

// Exchanger trades credentials for a session token.
type Exchanger interface {
	Exchange(ctx context.Context, creds exchange.Credentials) (string, error)
}

// Decoder turns a session token into claims without I/O.
type Decoder interface {
	Decode(token string) (domain.Claims, error)
}

// HeaderSetter is the default-header holder of the API HTTP client.
type HeaderSetter interface {
	SetBearer(token string)
	Clear()
}

// Deps wires a Context. Dispatcher, Navigator, Metrics and Logger are optional.
type Deps struct {
	Store      tokenstore.Store
	Exchanger  Exchanger
	Decoder    Decoder
	Headers    HeaderSetter
	Navigator  navigation.Navigator
	Dispatcher events.Dispatcher
	Routes     navigation.Routes
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// Context is the session state machine. It starts Unknown, resolves once via
// Start, and then moves between Authenticated and Unauthenticated.
type Context struct {
	store      tokenstore.Store
	exchanger  Exchanger
	decoder    Decoder
	headers    HeaderSetter
	navigator  navigation.Navigator
	dispatcher events.Dispatcher
	routes     navigation.Routes
	metrics    *observability.Metrics
	logger     *zap.Logger

	// transitionMu serializes transitions and the events they publish.
	transitionMu sync.Mutex
	// mu guards the fields below; the default header changes under it too.
	mu       sync.RWMutex
	state    domain.SessionState
	identity *domain.Identity
	claims   domain.Claims
	token    string

	attempts     atomic.Uint64
	resolved     chan struct{}
	resolvedOnce sync.Once
}

func New(deps Deps) *Context {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	navigator := deps.Navigator
	if navigator == nil {
		navigator = navigation.NewHistory("")
	}
	routes := deps.Routes
	if routes == (navigation.Routes{}) {
		routes = navigation.DefaultRoutes()
	}
	return &Context{
		store:      deps.Store,
		exchanger:  deps.Exchanger,
		decoder:    deps.Decoder,
		headers:    deps.Headers,
		navigator:  navigator,
		dispatcher: deps.Dispatcher,
		routes:     routes,
		metrics:    deps.Metrics,
		logger:     logger,
		state:      domain.SessionUnknown,
		resolved:   make(chan struct{}),
	}
}

// Start resolves the Unknown state from the stored token. Storage and decode
// problems resolve to Unauthenticated and are logged, not returned.
func (c *Context) Start(ctx context.Context) error {
	c.transitionMu.Lock()
	defer c.transitionMu.Unlock()

	if state := c.State(); state != domain.SessionUnknown {
		return apperrors.NewInvalidTransition(string(state), "start")
	}
	defer c.markResolved()

	token, ok, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Error("reading stored session token failed", zap.Error(err))
		c.resolveAnonymous(ctx)
		return nil
	}
	if !ok {
		c.logger.Debug("no stored session token")
		c.resolveAnonymous(ctx)
		return nil
	}

	claims, err := c.decoder.Decode(token)
	if err != nil {
		c.logger.Warn("discarding undecodable session token", zap.Error(err))
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			c.logger.Error("clearing undecodable session token failed", zap.Error(clearErr))
		}
		c.resolveAnonymous(ctx)
		return nil
	}

	identity := c.applyAuthenticated(token, claims)
	c.logger.Info("session restored", zap.Int64("user_id", identity.ID), zap.Strings("roles", identity.RoleNames))
	c.publish(ctx, events.NewSessionEvent(events.EventSessionRestored, domain.SessionAuthenticated, identity, token, ""))
	return nil
}

// SignIn exchanges credentials and, on success, persists the token, installs
// the default header, becomes Authenticated and navigates to the landing route.
// On failure the state is unchanged. When several attempts overlap only the
// latest one may apply its outcome; earlier ones fail with SUPERSEDED.
func (c *Context) SignIn(ctx context.Context, creds exchange.Credentials) (*domain.Identity, error) {
	attempt := c.attempts.Add(1)
	requestID := uuid.NewString()
	logger := c.logger.With(zap.String("request_id", requestID), zap.String("login", creds.Login))

	if state := c.State(); state == domain.SessionAuthenticated {
		return nil, apperrors.NewInvalidTransition(string(state), "sign-in")
	}

	token, err := c.exchanger.Exchange(ctx, creds)
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Debug("sign-in abandoned", zap.Error(ctxErr))
		return nil, ctxErr
	}
	if c.attempts.Load() != attempt {
		logger.Info("sign-in superseded")
		c.metrics.RecordSignIn(apperrors.CodeSuperseded)
		return nil, apperrors.NewSuperseded(requestID)
	}
	if err != nil {
		logger.Info("sign-in failed", zap.Error(err))
		c.metrics.RecordSignIn(apperrors.ToDomainError(err).Code)
		return nil, err
	}

	claims, err := c.decoder.Decode(token)
	if err != nil {
		logger.Warn("issued token could not be decoded", zap.Error(err))
		c.metrics.RecordSignIn(apperrors.CodeDecodeFailed)
		return nil, err
	}

	c.transitionMu.Lock()
	defer c.transitionMu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if c.attempts.Load() != attempt {
		logger.Info("sign-in superseded")
		c.metrics.RecordSignIn(apperrors.CodeSuperseded)
		return nil, apperrors.NewSuperseded(requestID)
	}
	if state := c.State(); state == domain.SessionAuthenticated {
		return nil, apperrors.NewInvalidTransition(string(state), "sign-in")
	}

	if err := c.store.Save(ctx, token); err != nil {
		logger.Error("persisting session token failed", zap.Error(err))
		c.metrics.RecordSignIn(apperrors.CodeStorageFailed)
		return nil, err
	}

	identity := c.applyAuthenticated(token, claims)
	c.markResolved()
	c.metrics.RecordSignIn("success")
	logger.Info("signed in", zap.Int64("user_id", identity.ID), zap.Strings("roles", identity.RoleNames))

	c.publish(ctx, events.NewSessionEvent(events.EventSessionSignedIn, domain.SessionAuthenticated, identity, token, requestID))
	c.navigator.Navigate(c.routes.Landing)
	return identity, nil
}

// SignOut clears the stored token and the default header, becomes
// Unauthenticated and navigates to the login route. It also supersedes any
// sign-in still in flight.
func (c *Context) SignOut(ctx context.Context) error {
	c.attempts.Add(1)

	c.transitionMu.Lock()
	defer c.transitionMu.Unlock()

	if state := c.State(); state != domain.SessionAuthenticated {
		return apperrors.NewInvalidTransition(string(state), "sign-out")
	}

	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error("clearing session token failed", zap.Error(err))
		return err
	}

	identity := c.Identity()
	c.applyUnauthenticated()
	if identity != nil {
		c.logger.Info("signed out", zap.Int64("user_id", identity.ID))
	}

	c.publish(ctx, events.NewSessionEvent(events.EventSessionSignedOut, domain.SessionUnauthenticated, identity, "", ""))
	c.navigator.Navigate(c.routes.Login)
	return nil
}

// Snapshot returns state and identity read together.
func (c *Context) Snapshot() domain.SessionSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.SessionSnapshot{State: c.state, Identity: c.identity}
}

func (c *Context) State() domain.SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Context) Authenticated() bool {
	return c.Snapshot().Authenticated()
}

// Identity is nil unless the session is Authenticated.
func (c *Context) Identity() *domain.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

// Claims returns the decoded claims of the active token.
func (c *Context) Claims() (domain.Claims, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.claims, c.state == domain.SessionAuthenticated
}

// Token returns the active session token, or "" when not Authenticated.
func (c *Context) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Resolved is closed once the state has left Unknown.
func (c *Context) Resolved() <-chan struct{} {
	return c.resolved
}

func (c *Context) applyAuthenticated(token string, claims domain.Claims) *domain.Identity {
	identity := domain.NewIdentity(claims)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.headers != nil {
		c.headers.SetBearer(token)
	}
	c.state = domain.SessionAuthenticated
	c.identity = identity
	c.claims = claims
	c.token = token
	return identity
}

func (c *Context) applyUnauthenticated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.headers != nil {
		c.headers.Clear()
	}
	c.state = domain.SessionUnauthenticated
	c.identity = nil
	c.claims = domain.Claims{}
	c.token = ""
}

func (c *Context) resolveAnonymous(ctx context.Context) {
	c.applyUnauthenticated()
	c.publish(ctx, events.NewSessionEvent(events.EventSessionAnonymous, domain.SessionUnauthenticated, nil, "", ""))
}

func (c *Context) markResolved() {
	c.resolvedOnce.Do(func() { close(c.resolved) })
}

func (c *Context) publish(ctx context.Context, event events.Event) {
	if c.dispatcher == nil {
		return
	}
	// Subscribers see the transition even if the caller's context is done.
	if err := c.dispatcher.Publish(context.WithoutCancel(ctx), event); err != nil {
		c.logger.Warn("publishing session event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
