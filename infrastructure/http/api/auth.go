package api

import (
	"database/sql"
	"errors"
	"net/http"

	"wasteboard/frontend/login"
)

func (a *API) issueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := login.Authenticate(r.Context(), a.DB, req.Username, req.Password)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		unauthorized(w, "invalid username or password")
		return
	case errors.Is(err, login.ErrInactiveUser):
		unauthorized(w, err.Error())
		return
	case err != nil:
		writeError(w, r, err)
		return
	}
	signed, exp, err := a.Tokens.Issue(user.ID, user.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: signed, ExpiresAt: exp, Role: user.Role})
}
