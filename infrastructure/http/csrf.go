package http

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"wasteboard/frontend/shared/html"
	"wasteboard/infrastructure/http/api"
)

// CSRFMiddleware enforces a double-submit token on unsafe dashboard requests.
// The JSON API is exempt: it authenticates with bearer tokens, not cookies.
func (s *Server) CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, api.Prefix+"/") {
			next.ServeHTTP(w, r)
			return
		}
		token, err := s.csrfToken(w, r)
		if err != nil {
			slog.Error("csrf token failed", slog.Any("err", err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}

		provided := strings.TrimSpace(r.Header.Get(html.CSRFCookie))
		if provided == "" {
			provided = strings.TrimSpace(r.FormValue("_csrf"))
		}
		if provided == "" || subtle.ConstantTimeCompare([]byte(token), []byte(provided)) != 1 {
			slog.Warn("csrf rejected", slog.String("method", r.Method), slog.String("path", r.URL.Path))
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// csrfToken returns the request's token, issuing a cookie when there is none.
func (s *Server) csrfToken(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(html.CSRFCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return c.Value, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	http.SetCookie(w, &http.Cookie{
		Name:     html.CSRFCookie,
		Value:    token,
		Path:     "/",
		Secure:   s.opts.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}
