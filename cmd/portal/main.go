package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/academia-portal/internal/api/http"
	"github.com/spec-kit/academia-portal/internal/api/http/handlers"
	"github.com/spec-kit/academia-portal/internal/app"
	"github.com/spec-kit/academia-portal/internal/config"
	"github.com/spec-kit/academia-portal/internal/guard"
	"github.com/spec-kit/academia-portal/internal/observability"
	"github.com/spec-kit/academia-portal/internal/tokenstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := app.Build(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Fatal("failed to assemble session core", zap.Error(err))
	}
	defer rt.Close()

	checks := []handlers.Check{handlers.ResolvedCheck("session", rt.Session.Resolved())}
	if pinger, ok := rt.Store.(tokenstore.Pinger); ok {
		checks = append(checks, handlers.Check{Name: "token_store", Probe: pinger.Ping})
	}

	var channel handlers.ChannelStatus
	gateDone := make(chan struct{})
	if cfg.Realtime.Enabled {
		gate := rt.NewGate(nil)
		channel = gate
		go func() {
			defer close(gateDone)
			if err := gate.Run(ctx); err != nil {
				logger.Error("realtime gate stopped", zap.Error(err))
			}
		}()
	} else {
		close(gateDone)
	}

	server := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(server, logger, rt.Metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks...),
		Session:       handlers.NewSessionHandler(rt.Session, rt.History),
		Notifications: handlers.NewNotificationHandler(rt.Inbox),
		Debug:         handlers.NewDebugHandler(rt.Metrics, channel),
		Guard:         guard.Middleware(rt.Session, rt.Table, rt.Routes, rt.Metrics, observability.Component(logger, "guard")),
		Table:         rt.Table,
		Routes:        rt.Routes,
	})

	go func() {
		if err := server.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("portal listening", zap.String("addr", cfg.App.Addr()))

	// Guarded views answer "loading" until the stored session is restored.
	go func() {
		if err := rt.Session.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("session restore failed", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = server.Shutdown()
	cancel()
	<-gateDone
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
