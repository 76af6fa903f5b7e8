package login

import (
	"log/slog"
	"net/http"

	"wasteboard/infrastructure/cache"
	sessioncookie "wasteboard/infrastructure/session"
	"wasteboard/infrastructure/sqlite"
)

// LogoutHandler removes session state and clears cookie.
func LogoutHandler(db *sqlite.DB, sessionCache *cache.UserSessionCache, policy sessioncookie.Policy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessioncookie.CookieName)
		if err == nil && cookie.Value != "" {
			sessionCache.DeleteSessionBySessionToken(cookie.Value)
			if err := DeleteSessionByToken(r.Context(), db, cookie.Value); err != nil {
				slog.Error("delete session on logout failed", slog.Any("err", err))
			}
		}
		http.SetCookie(w, policy.Cookie("", true))
		http.Redirect(w, r, "/login?status=signed+out", http.StatusSeeOther)
	}
}
