// Package app assembles the session core from configuration. The portal and
// the CLI share it so both drive the same token store and backend.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/academia-portal/internal/auth"
	"github.com/spec-kit/academia-portal/internal/cache"
	"github.com/spec-kit/academia-portal/internal/config"
	"github.com/spec-kit/academia-portal/internal/events"
	"github.com/spec-kit/academia-portal/internal/exchange"
	"github.com/spec-kit/academia-portal/internal/guard"
	"github.com/spec-kit/academia-portal/internal/inbox"
	"github.com/spec-kit/academia-portal/internal/navigation"
	"github.com/spec-kit/academia-portal/internal/observability"
	"github.com/spec-kit/academia-portal/internal/realtime"
	"github.com/spec-kit/academia-portal/internal/session"
	"github.com/spec-kit/academia-portal/internal/tokenstore"
	"github.com/spec-kit/academia-portal/internal/transport"
)

// Options override parts of the assembly. Zero values use the configuration.
type Options struct {
	Store   tokenstore.Store
	Metrics *observability.Metrics
}

// Runtime is one assembled session core.
type Runtime struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Routes     navigation.Routes
	Table      *guard.Table
	History    *navigation.History
	Headers    *transport.Headers
	Dispatcher events.Dispatcher
	Store      tokenstore.Store
	Session    *session.Context

	// Notifications is invalidated by the realtime gate and read through Inbox.
	Notifications *cache.Notifications
	Inbox         *inbox.Service

	closeStore func()
}

// Build wires every session component. Close releases the token store.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}

	store, closeStore := opts.Store, func() {}
	if store == nil {
		var err error
		store, closeStore, err = tokenstore.Open(ctx, cfg, observability.Component(logger, "tokenstore"))
		if err != nil {
			return nil, fmt.Errorf("open token store: %w", err)
		}
	}

	routes := navigation.RoutesFromConfig(cfg.Routes)
	history := navigation.NewHistory(routes.Login)
	navLogger := observability.Component(logger, "navigation")
	history.OnNavigate(func(route string) {
		navLogger.Debug("navigated", zap.String("route", route))
	})
	headers := transport.NewHeaders()
	dispatcher := events.NewInMemoryDispatcher(observability.Component(logger, "events"))

	httpClient := transport.NewHTTPClient(headers, cfg.API.Timeout())
	exchanger := exchange.New(httpClient, cfg.API.LoginURL(), observability.Component(logger, "exchange"))

	sess := session.New(session.Deps{
		Store:      store,
		Exchanger:  exchanger,
		Decoder:    auth.NewDecoder(),
		Headers:    headers,
		Navigator:  history,
		Dispatcher: dispatcher,
		Routes:     routes,
		Metrics:    metrics,
		Logger:     observability.Component(logger, "session"),
	})

	notifications, err := cache.NewNotifications(cfg.Realtime.CacheSize)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("notification cache: %w", err)
	}
	// A new session owner must never see the previous owner's notifications.
	events.SubscribeSession(dispatcher, func(context.Context, events.Event) error {
		notifications.Reset()
		return nil
	})
	feed := inbox.NewClient(httpClient, cfg.API.NotificationsURL(), observability.Component(logger, "inbox"))
	inboxService := inbox.NewService(notifications, feed.Fetch, sess, observability.Component(logger, "inbox"))
	notifications.OnInvalidate(inboxService.Refresh)

	return &Runtime{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		Routes:     routes,
		Table:      guard.DefaultTable(),
		History:    history,
		Headers:    headers,
		Dispatcher: dispatcher,
		Store:      store,
		Session:    sess,

		Notifications: notifications,
		Inbox:         inboxService,

		closeStore: closeStore,
	}, nil
}

// NewGate builds the realtime gate and attaches it to session events. It must
// be called before Session.Start so a restored session opens the channel.
// A nil connector dials the configured STOMP broker.
func (r *Runtime) NewGate(connector realtime.Connector) *realtime.Gate {
	if connector == nil {
		connector = &realtime.StompConnector{
			URL:            r.Config.Realtime.URL,
			ConnectTimeout: r.Config.Realtime.ConnectTimeout(),
			Logger:         observability.Component(r.Logger, "stomp"),
		}
	}
	gate := realtime.NewGate(realtime.GateDeps{
		Connector:     connector,
		Notifications: r.Notifications,
		TopicTemplate: r.Config.Realtime.TopicTemplate,
		Metrics:       r.Metrics,
		Logger:        observability.Component(r.Logger, "realtime"),
	})
	gate.Attach(r.Dispatcher)
	return gate
}

// Close releases the token store connection.
func (r *Runtime) Close() {
	if r.closeStore != nil {
		r.closeStore()
	}
}
