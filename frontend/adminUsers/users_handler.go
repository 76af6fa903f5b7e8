package adminusers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"wasteboard/frontend/login"
	"wasteboard/frontend/shared/context"
	"wasteboard/frontend/shared/nav"
	"wasteboard/infrastructure/argon"
	"wasteboard/infrastructure/audit"
	"wasteboard/infrastructure/cache"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/sqlite"
)

const basePath = "/dashboard/admin/users"

// UsersPageQueryHandler renders the admin users list page.
func UsersPageQueryHandler(db *sqlite.DB, limits listing.Limits) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		q := listing.Parse(r.URL.Query(), limits)
		role := strings.TrimSpace(r.URL.Query().Get("role"))
		if !rbac.IsValidRole(role) {
			role = ""
		}
		data, err := LoadUsersPageData(r.Context(), db, q, role, basePath)
		if err != nil {
			slog.Error("admin users: failed to load data", slog.Any("err", err))
			http.Error(w, "failed to load users", http.StatusInternalServerError)
			return
		}

		data.Nav = nav.BuildTopNavData(session, r.URL.Path)
		data.Status = r.URL.Query().Get("status")
		data.ErrorMessage = r.URL.Query().Get("error")

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := UsersListPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render users page", http.StatusInternalServerError)
			return
		}
	}
}

func CreateUserCommandHandler(db *sqlite.DB, userCache *cache.UserCache, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, basePath+"?error="+url.QueryEscape("invalid form data"), http.StatusSeeOther)
			return
		}

		in := CreateInput{
			Username:    r.FormValue("username"),
			Password:    r.FormValue("password"),
			Role:        r.FormValue("role"),
			DisplayName: r.FormValue("display_name"),
		}
		if raw := strings.TrimSpace(r.FormValue("unit_id")); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				http.Redirect(w, r, basePath+"?error="+url.QueryEscape("invalid unit selection"), http.StatusSeeOther)
				return
			}
			in.UnitID = &id
		}

		user, err := CreateUser(r.Context(), db, auditSvc, session.UserID, in)
		if err != nil {
			// Validation and policy errors are safe to show as-is.
			msg := err.Error()
			if !isUserError(err) {
				slog.Error("admin users: create failed", slog.String("username", in.Username), slog.Any("err", err))
				msg = "failed to create user"
			}
			http.Redirect(w, r, basePath+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
			return
		}
		userCache.Add(user)

		http.Redirect(w, r, basePath+"?status="+url.QueryEscape("user "+user.Username+" created"), http.StatusSeeOther)
	}
}

// SetUserActiveCommandHandler activates or deactivates {id}; deactivation drops the user's sessions.
func SetUserActiveCommandHandler(db *sqlite.DB, sessionCache *cache.UserSessionCache, userCache *cache.UserCache, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || userID <= 0 {
			http.Redirect(w, r, basePath+"?error="+url.QueryEscape("invalid user"), http.StatusSeeOther)
			return
		}
		active := r.FormValue("active") == "1"

		user, err := SetUserActive(r.Context(), db, auditSvc, session.UserID, userID, active)
		if err != nil {
			msg := err.Error()
			if !isUserError(err) {
				slog.Error("admin users: toggle failed", slog.Int64("user_id", userID), slog.Any("err", err))
				msg = "failed to update user"
			}
			http.Redirect(w, r, basePath+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
			return
		}

		if active {
			userCache.Add(user)
			sessionCache.UpdateUser(user)
		} else {
			userCache.Invalidate(user.ID)
			sessionCache.DeleteSessionsByUserID(user.ID)
			if err := login.DeleteSessionsByUserID(r.Context(), db, user.ID); err != nil {
				slog.Error("admin users: drop sessions failed", slog.Int64("user_id", user.ID), slog.Any("err", err))
			}
		}

		status := "user " + user.Username + " deactivated"
		if active {
			status = "user " + user.Username + " activated"
		}
		http.Redirect(w, r, basePath+"?status="+url.QueryEscape(status), http.StatusSeeOther)
	}
}

func isUserError(err error) bool {
	for _, known := range []error{
		ErrUsernameRequired, ErrPasswordRequired, ErrInvalidRole, ErrUnitRequired,
		ErrUnitNotAllowed, ErrUnitKindMismatch, ErrUsernameExists, ErrUserNotFound, ErrSelfDeactivation,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return errors.Is(err, argon.ErrPasswordPolicy)
}
