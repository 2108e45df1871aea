// Package main запускает HTTP-сервер магазина цифровых товаров.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/digitalstore/internal/config"
	"github.com/mmeshcher/digitalstore/internal/handler"
	"github.com/mmeshcher/digitalstore/internal/mailer"
	"github.com/mmeshcher/digitalstore/internal/metrics"
	"github.com/mmeshcher/digitalstore/internal/middleware"
	"github.com/mmeshcher/digitalstore/internal/payment"
	"github.com/mmeshcher/digitalstore/internal/repository"
	"github.com/mmeshcher/digitalstore/internal/service"
	"github.com/mmeshcher/digitalstore/internal/storage"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	opts := service.Options{
		Metrics:     metrics.New(),
		FrontendURL: cfg.FrontendURL,
	}

	if cfg.StripeSecretKey != "" {
		opts.Gateway = payment.NewClient(cfg.StripeAddress, cfg.StripeSecretKey)
	} else {
		sugar.Warn("payment gateway is not configured, payment intents are disabled")
	}

	if cfg.SMTPHost != "" {
		opts.Mailer = mailer.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom, cfg.FrontendURL)
	} else {
		sugar.Warn("SMTP is not configured, transactional emails are disabled")
	}

	if cfg.StorageUploadURL != "" {
		opts.Storage = storage.NewClient(cfg.StorageUploadURL)
	} else {
		sugar.Warn("object storage is not configured, image uploads are disabled")
	}

	svc := service.NewService(repo, logger, opts)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting digitalstore server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
