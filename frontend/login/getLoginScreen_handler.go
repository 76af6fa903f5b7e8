package login

import (
	"net/http"

	"wasteboard/frontend/shared/respond"
)

// GetLoginScreenHandler renders the sign-in form with any flash carried in the query.
func GetLoginScreenHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Cache-Control", "no-store")
	respond.HTML(w, r, GetLoginScreen(q.Get("status"), q.Get("error")))
}
