package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/academia-portal/internal/config"
	"github.com/spec-kit/academia-portal/internal/devserver"
	"github.com/spec-kit/academia-portal/internal/observability"
	"github.com/spec-kit/academia-portal/internal/repository"
	"github.com/spec-kit/academia-portal/internal/service"
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

	authService := service.NewAuthService(cfg.AuthStub, repository.NewMemoryAccountRepository())
	if err := devserver.SeedAccounts(context.Background(), authService, cfg.AuthStub.SeedPassword); err != nil {
		logger.Fatal("failed to seed accounts", zap.Error(err))
	}

	app := devserver.NewApp(authService, observability.Component(logger, "authstub"), observability.NewMetrics(), cfg.App.RequestTimeout())

	go func() {
		if err := app.Listen(cfg.AuthStub.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("auth stub listening", zap.String("addr", cfg.AuthStub.Addr()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	_ = app.Shutdown()
}
