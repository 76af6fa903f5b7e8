package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wasteboard/frontend/login"
	"wasteboard/infrastructure/audit"
	"wasteboard/infrastructure/cache"
	httpserver "wasteboard/infrastructure/http"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/session"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/infrastructure/token"
)

const sessionSweepInterval = 10 * time.Minute

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	secret := cfg.API.JWTSecret
	if secret == "" {
		secret = token.RandomSecret()
		slog.Warn("api.jwt_secret not set; API tokens will not survive a restart")
	}
	issuer, err := token.NewIssuer(secret, cfg.API.TokenTTL)
	if err != nil {
		return fmt.Errorf("api token issuer: %w", err)
	}

	sessionCache := cache.NewUserSessionCache()
	userCache := cache.NewUserCache()
	rbacCache := cache.NewRbacRolesCache()
	rbacSvc := rbac.New(rbacCache)
	auditSvc := audit.NewService()

	server := httpserver.NewServer(httpserver.Options{
		Addr:            cfg.HTTP.Addr,
		Session:         session.Policy{TTL: cfg.Session.TTL, Secure: cfg.Session.SecureCookie},
		Limits:          listing.Limits{DefaultPageSize: cfg.Listing.DefaultPageSize, MaxPageSize: cfg.Listing.MaxPageSize},
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		Tokens:          issuer,
		CORSOrigins:     cfg.API.CORSOrigins,
	}, db, sessionCache, userCache, rbacSvc, rbacCache, auditSvc)
	if err := server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	slog.Info("wasteboard listening", slog.String("addr", server.ListenAddr()))

	go sweepSessions(ctx, db, sessionCache, sessionSweepInterval)

	<-ctx.Done()
	slog.Info("shutting down")
	if err := server.Stop(); err != nil {
		slog.Error("graceful shutdown error", slog.Any("err", err))
		return err
	}
	return nil
}

// sweepSessions drops expired sessions from the table and the cache until ctx ends.
func sweepSessions(ctx context.Context, db *sqlite.DB, sessions *cache.UserSessionCache, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := login.DeleteExpiredSessions(ctx, db, now)
			if err != nil {
				slog.Error("session sweep failed", slog.Any("err", err))
				continue
			}
			cached := sessions.Sweep(now)
			if n > 0 || cached > 0 {
				slog.Debug("expired sessions removed", slog.Int64("rows", n), slog.Int("cached", cached))
			}
		}
	}
}
