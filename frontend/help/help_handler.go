package help

import (
	"net/http"

	sessioncontext "wasteboard/frontend/shared/context"
	"wasteboard/frontend/shared/nav"
	"wasteboard/frontend/shared/respond"
)

func HelpPageQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessioncontext.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		data := PageData{
			Nav:      nav.BuildTopNavData(session, r.URL.Path),
			Role:     session.User.Role,
			Sections: SectionsFor(session.User.Role),
		}
		respond.HTML(w, r, HelpPage(data))
	}
}
