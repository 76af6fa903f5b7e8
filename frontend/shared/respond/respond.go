// Package respond holds the redirect-with-notice and render helpers every page handler uses.
package respond

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"wasteboard/frontend/shared/context"
	"wasteboard/frontend/shared/html"
	"wasteboard/frontend/shared/nav"
	"wasteboard/infrastructure/apperr"
)

// Status redirects to path with a ?status= notice.
func Status(w http.ResponseWriter, r *http.Request, path, msg string) {
	http.Redirect(w, r, withParam(path, "status", msg), http.StatusSeeOther)
}

// Error redirects to path with a ?error= notice built from err.
// Unclassified errors are logged and shown as fallback.
func Error(w http.ResponseWriter, r *http.Request, path string, err error, fallback string) {
	if apperr.HTTPStatus(err) == http.StatusInternalServerError {
		slog.Error(fallback, slog.String("path", r.URL.Path), slog.Any("err", err))
	}
	http.Redirect(w, r, withParam(path, "error", apperr.UserMessage(err, fallback)), http.StatusSeeOther)
}

// Message redirects to path with a literal ?error= notice.
func Message(w http.ResponseWriter, r *http.Request, path, msg string) {
	http.Redirect(w, r, withParam(path, "error", msg), http.StatusSeeOther)
}

func withParam(path, key, value string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + key + "=" + url.QueryEscape(value)
}

// HTML renders c with the html content type.
func HTML(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render page failed", slog.String("path", r.URL.Path), slog.Any("err", err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

// Page renders body inside the dashboard layout for the request session,
// picking up the ?status= and ?error= notices.
func Page(w http.ResponseWriter, r *http.Request, title string, body templ.Component) {
	session, _ := context.GetSessionFromContext(r.Context())
	HTML(w, r, html.RenderLayout(html.Page{
		Title:  title,
		Nav:    nav.BuildTopNavData(session, r.URL.Path),
		Status: r.URL.Query().Get("status"),
		Error:  r.URL.Query().Get("error"),
		Body:   body,
	}))
}

// LoadFailed answers a page whose data could not be read.
func LoadFailed(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("load page data failed", slog.String("path", r.URL.Path), slog.Any("err", err))
		http.Error(w, "failed to load page", status)
		return
	}
	http.Error(w, apperr.UserMessage(err, "failed to load page"), status)
}

// ID parses the {name} route parameter as a positive id.
func ID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// FormID parses a positive id form field.
func FormID(r *http.Request, field string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.FormValue(field)), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
