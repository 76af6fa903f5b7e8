package login

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wasteboard/infrastructure/cache"
	"wasteboard/infrastructure/rbac"
	sessioncookie "wasteboard/infrastructure/session"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/models"
)

// CreateLoginHandler authenticates the user and issues a session cookie.
func CreateLoginHandler(db *sqlite.DB, sessionCache *cache.UserSessionCache, userCache *cache.UserCache, policy sessioncookie.Policy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, "/login?error="+url.QueryEscape("invalid form data"), http.StatusSeeOther)
			return
		}

		username := strings.TrimSpace(r.FormValue("username"))
		password := strings.TrimSpace(r.FormValue("password"))
		if username == "" || password == "" {
			http.Redirect(w, r, "/login?error="+url.QueryEscape("username and password are required"), http.StatusSeeOther)
			return
		}

		user, err := Authenticate(r.Context(), db, username, password)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				http.Redirect(w, r, "/login?error="+url.QueryEscape("invalid username or password"), http.StatusSeeOther)
			case errors.Is(err, ErrInactiveUser):
				http.Redirect(w, r, "/login?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
			default:
				slog.Error("authenticate failed", slog.String("username", username), slog.Any("err", err))
				http.Redirect(w, r, "/login?error="+url.QueryEscape("authentication failed"), http.StatusSeeOther)
			}
			return
		}

		session, err := newSession(user, policy.Expiry(time.Now()))
		if err != nil {
			slog.Error("session token failed", slog.Int64("user_id", user.ID), slog.Any("err", err))
			http.Redirect(w, r, "/login?error="+url.QueryEscape("failed to create session"), http.StatusSeeOther)
			return
		}
		if err := persistSession(r.Context(), db, session); err != nil {
			slog.Error("persist session failed", slog.Int64("user_id", user.ID), slog.Any("err", err))
			http.Redirect(w, r, "/login?error="+url.QueryEscape("failed to create session"), http.StatusSeeOther)
			return
		}

		sessionCache.AddSession(session)
		userCache.Add(user)

		http.SetCookie(w, policy.Cookie(session.ID, false))
		http.Redirect(w, r, rbac.HomePath(user.Role), http.StatusSeeOther)
	}
}

func newSession(user models.User, expiresAt time.Time) (models.Session, error) {
	id, err := newSessionToken()
	if err != nil {
		return models.Session{}, err
	}
	return models.Session{
		ID:        id,
		UserID:    user.ID,
		User:      user,
		UserRoles: []string{user.Role},
		ExpiresAt: expiresAt,
	}, nil
}
