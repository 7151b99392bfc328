package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/judyrop/storefront-api/config"
	"github.com/judyrop/storefront-api/internal/api"
	"github.com/judyrop/storefront-api/internal/auth"
	"github.com/judyrop/storefront-api/internal/logger"
	"github.com/judyrop/storefront-api/internal/metrics"
	"github.com/judyrop/storefront-api/internal/middleware"
	"github.com/judyrop/storefront-api/internal/notify"
	"github.com/judyrop/storefront-api/internal/schema"
	"github.com/judyrop/storefront-api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer appLogger.Sync()

	gin.SetMode(cfg.Server.GinMode)

	st, err := store.Open(cfg.Database)
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer st.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Database.Name))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.AutoMigrate {
		if err := st.Migrate(ctx); err != nil {
			appLogger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	verifier, err := auth.NewVerifier(ctx, cfg.OIDC)
	if err != nil {
		appLogger.Fatal("Could not initialise OIDC verifier", zap.Error(err))
	}
	if verifier != nil {
		appLogger.Info("Accepting OIDC bearer tokens", zap.String("issuer", cfg.OIDC.Issuer))
	}

	var notifier notify.Notifier = notify.NewLogNotifier(appLogger)
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTPNotifier(cfg.SMTP)
	} else {
		appLogger.Warn("SMTP_HOST not set, notifications are only logged")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	}()

	router := api.SetupRouter(api.Dependencies{
		Store:       st,
		Validator:   schema.New(cfg.Schema.Dir),
		Sessions:    auth.NewSessions(cfg.Session),
		Hasher:      auth.NewHasher(cfg.Password),
		Verifier:    verifier,
		Notifier:    notifier,
		MailFrom:    cfg.SMTP.Username,
		Metrics:     metrics.New(),
		RateLimiter: limiter,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      appLogger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	appLogger.Info("Starting HTTP server", zap.String("addr", cfg.Server.Addr))

	// Graceful Shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("forced shutdown", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
