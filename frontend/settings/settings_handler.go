package settings

import (
	"net/http"

	"wasteboard/frontend/shared/context"
	"wasteboard/frontend/shared/nav"
	"wasteboard/frontend/shared/respond"
	"wasteboard/infrastructure/cache"
	"wasteboard/infrastructure/profile"
)

const basePath = "/dashboard/profile"

// ProfilePageQueryHandler renders the signed-in user's profile and notification settings.
func ProfilePageQueryHandler(svc *profile.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		p, err := svc.Load(r.Context(), session.UserID)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		respond.HTML(w, r, ProfilePage(PageData{
			Nav:          nav.BuildTopNavData(session, r.URL.Path),
			Profile:      p,
			Status:       r.URL.Query().Get("status"),
			ErrorMessage: r.URL.Query().Get("error"),
		}))
	}
}

// ProfileUpdateCommandHandler saves contact details and refreshes cached sessions.
func ProfileUpdateCommandHandler(svc *profile.Service, sessionCache *cache.UserSessionCache, userCache *cache.UserCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := context.GetSessionFromContext(r.Context())
		if err := r.ParseForm(); err != nil {
			respond.Message(w, r, basePath, "invalid form data")
			return
		}
		user, err := svc.Update(r.Context(), session.UserID, profile.UpdateInput{
			DisplayName:  r.FormValue("display_name"),
			Phone:        r.FormValue("phone"),
			Address:      r.FormValue("address"),
			EmailEnabled: r.FormValue("email_enabled") != "",
		})
		if err != nil {
			respond.Error(w, r, basePath, err, "save failed")
			return
		}
		sessionCache.UpdateUser(user)
		userCache.Add(user)
		respond.Status(w, r, basePath, "profile saved")
	}
}

func ChangePasswordCommandHandler(svc *profile.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := context.GetSessionFromContext(r.Context())
		if err := r.ParseForm(); err != nil {
			respond.Message(w, r, basePath, "invalid form data")
			return
		}
		next := r.FormValue("new_password")
		if next != r.FormValue("confirm_password") {
			respond.Message(w, r, basePath, "new passwords do not match")
			return
		}
		if err := svc.ChangePassword(r.Context(), session.UserID, r.FormValue("current_password"), next); err != nil {
			respond.Error(w, r, basePath, err, "password change failed")
			return
		}
		respond.Status(w, r, basePath, "password changed")
	}
}
