// Package api serves the JSON REST surface mounted under /api/v1, authenticated with bearer tokens.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/uptrace/bun"

	sessioncontext "wasteboard/frontend/shared/context"
	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/cache"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/collector"
	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/inventory"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/profile"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/infrastructure/token"
	"wasteboard/infrastructure/transfer"
	"wasteboard/models"
)

const Prefix = "/api/v1"

// maxBody bounds JSON request bodies.
const maxBody = 1 << 20

type Deps struct {
	DB          *sqlite.DB
	Tokens      *token.Issuer
	Users       *cache.UserCache
	Requests    *dropreq.Service
	Transfers   *transfer.Service
	Catalog     *catalog.Service
	Collectors  *collector.Service
	Inventory   *inventory.Service
	Profiles    *profile.Service
	Limits      listing.Limits
	CORSOrigins []string
}

type API struct {
	Deps
}

func New(d Deps) *API {
	if d.Limits.DefaultPageSize <= 0 {
		d.Limits = listing.DefaultLimits
	}
	return &API{Deps: d}
}

// Routes returns the v1 router; mount it at Prefix.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	if len(a.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: a.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}).Handler)
	}
	r.Post("/auth/token", a.issueToken)

	r.Group(func(r chi.Router) {
		r.Use(a.authenticate)
		r.Get("/me", a.getMe)
		r.Put("/me", a.putMe)

		r.Get("/catalog", a.getCatalog)
		r.Get("/units", a.getUnits)
		r.Get("/prices", a.getPrices)
		r.Put("/prices", a.putPrice)
		r.Get("/collectors", a.getCollectors)
		r.Get("/inventory", a.getInventory)

		r.Get("/drop-requests", a.listDropRequests)
		r.Post("/drop-requests", a.createDropRequest)
		r.Get("/drop-requests/{id}", a.getDropRequest)
		r.Post("/drop-requests/{id}/{action}", a.dropRequestAction)

		r.Get("/transfer-requests", a.listTransfers)
		r.Post("/transfer-requests", a.createTransfer)
		r.Get("/transfer-requests/{id}", a.getTransfer)
		r.Post("/transfer-requests/{id}/{action}", a.transferAction)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	return r
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("api: request failed", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("err", err))
	}
	writeJSON(w, status, errorBody{Error: apperr.UserMessage(err, "internal error")})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="wasteboard"`)
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: msg})
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("invalid JSON body: %v", err)
	}
	return nil
}

// authenticate verifies the bearer token and puts the user's session into the context.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			unauthorized(w, "missing bearer token")
			return
		}
		claims, err := a.Tokens.Verify(strings.TrimSpace(raw))
		if err != nil {
			unauthorized(w, err.Error())
			return
		}
		user, err := a.loadUser(r.Context(), claims.UserID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				slog.Error("api: load user failed", slog.Int64("user_id", claims.UserID), slog.Any("err", err))
			}
			unauthorized(w, "unknown user")
			return
		}
		if !user.Active || user.Role != claims.Role {
			unauthorized(w, "token no longer valid for this account")
			return
		}
		session := models.Session{ID: claims.ID, UserID: user.ID, User: user, UserRoles: []string{user.Role}, ExpiresAt: claims.ExpiresAt}
		next.ServeHTTP(w, r.WithContext(sessioncontext.NewContextWithSession(r.Context(), session)))
	})
}

func (a *API) loadUser(ctx context.Context, id int64) (models.User, error) {
	if a.Users != nil {
		if u, ok := a.Users.GetByID(id); ok {
			return u, nil
		}
	}
	var user models.User
	err := a.DB.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&user).Where("id = ?", id).Limit(1).Scan(ctx)
	})
	if err != nil {
		return user, err
	}
	if a.Users != nil {
		a.Users.Add(user)
	}
	return user, nil
}

func actor(r *http.Request) models.Actor {
	act, _ := sessioncontext.ActorFromContext(r.Context())
	return act
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      string    `json:"role"`
}
