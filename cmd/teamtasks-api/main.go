package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimitrije/teamtasks-api/internal/config"
	"github.com/dimitrije/teamtasks-api/internal/database"
	"github.com/dimitrije/teamtasks-api/internal/logger"
	"github.com/dimitrije/teamtasks-api/internal/ratelimit"
	"github.com/dimitrije/teamtasks-api/internal/server"
	"github.com/dimitrije/teamtasks-api/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	limiter := newLimiter(ctx, cfg, log)

	hasher := services.NewPasswordHasher(services.DefaultBcryptCost)
	resetService := services.NewResetTokenService(db, hasher, cfg.ResetTokenExpiry)
	emailService := services.NewEmailService(cfg.SMTP)

	if !emailService.IsConfigured() {
		log.Warn("SMTP is not configured, emails will not be sent")
	}

	app := server.NewRouter(server.Deps{
		DB:          db,
		JWT:         services.NewJWTService(cfg.JWTSecret, cfg.JWTExpiry),
		Hasher:      hasher,
		Resets:      resetService,
		Email:       emailService,
		Limiter:     limiter,
		AuthLimit:   cfg.RateLimit.Auth,
		FrontendURL: cfg.FrontendBaseURL,
		Production:  cfg.IsProduction(),
		Log:         log,
	})

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go cleanupResetTokens(cleanupCtx, resetService, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
}

// newLimiter shares counters through Redis when REDIS_URL is set and keeps
// them in process otherwise.
func newLimiter(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) ratelimit.Limiter {
	if cfg.RedisURL == "" {
		return ratelimit.NewMemory(cfg.RateLimit.Window)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).Warn("Redis unreachable, rate limiting falls back to memory until it recovers")
	}

	return ratelimit.NewRedis(client, cfg.RateLimit.Window, log)
}

func cleanupResetTokens(ctx context.Context, resets *services.ResetTokenService, log logrus.FieldLogger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := resets.CleanupExpired(ctx)
			if err != nil {
				log.WithError(err).Warn("failed to clean up reset tokens")
				continue
			}
			if removed > 0 {
				log.WithField("removed", removed).Info("expired reset tokens removed")
			}
		}
	}
}
