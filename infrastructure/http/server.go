package http

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	loginflow "wasteboard/frontend/login"
	sessioncontext "wasteboard/frontend/shared/context"
	"wasteboard/infrastructure/audit"
	"wasteboard/infrastructure/cache"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/collector"
	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/http/api"
	"wasteboard/infrastructure/inventory"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/profile"
	"wasteboard/infrastructure/rbac"
	sessioncookie "wasteboard/infrastructure/session"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/infrastructure/token"
	"wasteboard/infrastructure/transfer"
	"wasteboard/models"
)

//go:embed assets/*
var assets embed.FS

const defaultShutdownTimeout = 2 * time.Second

// Options carries the configurable parts of the server.
type Options struct {
	Addr            string
	Session         sessioncookie.Policy
	Limits          listing.Limits
	ShutdownTimeout time.Duration
	// Tokens enables the JSON API when non-nil.
	Tokens      *token.Issuer
	CORSOrigins []string
}

// Server bundles dependencies and route wiring.
type Server struct {
	Addr   string
	ln     net.Listener
	server *http.Server
	router *chi.Mux
	opts   Options

	DB           *sqlite.DB
	SessionCache *cache.UserSessionCache
	UserCache    *cache.UserCache
	RbacCache    *cache.RbacRolesCache
	Rbac         *rbac.Rbac
	Audit        *audit.Service

	Requests   *dropreq.Service
	Transfers  *transfer.Service
	Catalog    *catalog.Service
	Collectors *collector.Service
	Inventory  *inventory.Service
	Profiles   *profile.Service
}

// NewServer creates a new http server.
func NewServer(opts Options, db *sqlite.DB, sessionCache *cache.UserSessionCache, userCache *cache.UserCache, r *rbac.Rbac, rbacCache *cache.RbacRolesCache, auditSvc *audit.Service) *Server {
	if opts.Limits.DefaultPageSize <= 0 {
		opts.Limits = listing.DefaultLimits
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	s := &Server{
		Addr:         opts.Addr,
		router:       chi.NewRouter(),
		opts:         opts,
		DB:           db,
		SessionCache: sessionCache,
		UserCache:    userCache,
		RbacCache:    rbacCache,
		Rbac:         r,
		Audit:        auditSvc,
		Requests:     dropreq.New(db, auditSvc),
		Transfers:    transfer.New(db, auditSvc),
		Catalog:      catalog.New(db, auditSvc),
		Collectors:   collector.New(db, auditSvc),
		Inventory:    inventory.New(db),
		Profiles:     profile.New(db, auditSvc),
		server: &http.Server{
			MaxHeaderBytes:    1 << 20,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	// Secure headers first.
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-XSS-Protection", "1; mode=block")
			next.ServeHTTP(w, r)
		})
	})

	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Compress(5))
	s.router.Use(s.CSRFMiddleware)

	// Root only redirects: to the role's home when signed in, to /login otherwise.
	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sessionCookie, err := r.Cookie(sessioncookie.CookieName)
		if err != nil || sessionCookie.Value == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		session, ok := s.resolveSession(r.Context(), sessionCookie.Value)
		if !ok || session.Expired() {
			http.SetCookie(w, s.opts.Session.Cookie("", true))
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, rbac.HomePath(session.User.Role), http.StatusSeeOther)
	})

	s.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Serve assets from embedded FS.
	var assetsFS fs.FS = assets
	if sub, err := fs.Sub(assets, "assets"); err == nil {
		assetsFS = sub
	} else {
		slog.Error("assets subfs init failed; serving fallback fs", slog.Any("err", err))
	}
	s.router.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(assetsFS))))

	s.RegisterLoginRoutes()

	s.router.Route("/dashboard", func(r chi.Router) {
		r.Use(s.AuthenticateMiddleware)
		s.RegisterSharedRoutes(r)
		s.RegisterCustomerRoutes(r)
		s.RegisterWastebankUnitRoutes(r)
		s.RegisterWastebankCentralRoutes(r)
		s.RegisterCollectorCentralRoutes(r)
		s.RegisterCollectorUnitRoutes(r)
		s.RegisterExportRoutes(r)
		s.RegisterAdminRoutes(r)
	})

	if opts.Tokens != nil {
		s.router.Mount(api.Prefix, api.New(api.Deps{
			DB:          db,
			Tokens:      opts.Tokens,
			Users:       userCache,
			Requests:    s.Requests,
			Transfers:   s.Transfers,
			Catalog:     s.Catalog,
			Collectors:  s.Collectors,
			Inventory:   s.Inventory,
			Profiles:    s.Profiles,
			Limits:      opts.Limits,
			CORSOrigins: opts.CORSOrigins,
		}).Routes())
	}

	s.server.Handler = s.router
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// AuthenticateMiddleware loads session and applies RBAC checks.
func (s *Server) AuthenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionCookie, err := r.Cookie(sessioncookie.CookieName)
		if err != nil || sessionCookie.Value == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		sessionToken := sessionCookie.Value
		session, ok := s.resolveSession(r.Context(), sessionToken)
		if !ok {
			slog.Warn("session not found", slog.String("method", r.Method), slog.String("path", r.URL.Path))
			http.SetCookie(w, s.opts.Session.Cookie("", true))
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		if session.Expired() {
			http.SetCookie(w, s.opts.Session.Cookie("", true))
			s.SessionCache.DeleteSessionBySessionToken(sessionToken)
			if err := loginflow.DeleteSessionByToken(r.Context(), s.DB, sessionToken); err != nil {
				slog.Error("cannot delete session from DB", slog.String("session_id", sessionToken), slog.Any("err", err))
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		if len(session.UserRoles) == 0 {
			session.UserRoles = []string{session.User.Role}
		}
		if session.User.Role == rbac.RoleAdmin {
			session.ScreenPermissions = s.RbacCache.GetAllRouteNames()
		} else {
			session.ScreenPermissions = s.RbacCache.ScreenCodes(session.UserRoles)
		}

		if !s.Rbac.Allowed(session.UserRoles, r.URL.Path, r.Method) {
			slog.Warn("rbac denied", slog.Int64("user_id", session.UserID), slog.String("role", session.User.Role),
				slog.String("method", r.Method), slog.String("path", r.URL.Path))
			if r.Method == http.MethodGet && !strings.HasPrefix(r.URL.Path, rbac.HomePath(session.User.Role)) {
				http.Redirect(w, r, rbac.HomePath(session.User.Role)+"?error=you+do+not+have+access+to+that+page", http.StatusSeeOther)
				return
			}
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		ctx := sessioncontext.NewContextWithSession(r.Context(), session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) resolveSession(ctx context.Context, token string) (session models.Session, ok bool) {
	if cached, found := s.SessionCache.FindSessionBySessionToken(token); found {
		return cached, true
	}

	dbSession, err := loginflow.LoadSessionByToken(ctx, s.DB, token)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("load session from db failed", slog.String("session_id", token), slog.Any("err", err))
		}
		return session, false
	}
	if !dbSession.User.Active {
		return session, false
	}

	s.SessionCache.AddSession(dbSession)
	s.UserCache.Add(dbSession.User)
	return dbSession, true
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	var err error
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", slog.Any("err", err))
		}
	}()
	return nil
}

// ListenAddr reports the bound address once started.
func (s *Server) ListenAddr() string {
	if s.ln == nil {
		return s.Addr
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.ln == nil {
		return fmt.Errorf("HTTP server has not been started or is already stopped")
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %v", err)
	}
	s.ln = nil
	return nil
}
