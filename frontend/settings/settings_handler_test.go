package settings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	sessioncontext "wasteboard/frontend/shared/context"
	"wasteboard/infrastructure/audit"
	"wasteboard/infrastructure/cache"
	"wasteboard/infrastructure/profile"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/testdb"
	"wasteboard/models"
)

func post(t *testing.T, h http.Handler, path string, form url.Values, session models.Session) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = req.WithContext(sessioncontext.NewContextWithSession(req.Context(), session))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProfileUpdateRefreshesSessionCache(t *testing.T) {
	db := testdb.Open(t)
	user := testdb.User(t, db, "ani", rbac.RoleCustomer, nil)
	svc := profile.New(db, audit.NewService())
	sessions := cache.NewUserSessionCache()
	session := models.Session{ID: "tok", UserID: user.ID, User: user}
	sessions.AddSession(session)

	rec := post(t, ProfileUpdateCommandHandler(svc, sessions, cache.NewUserCache()), basePath, url.Values{
		"display_name":  {"Ani Lestari"},
		"phone":         {"+62 812-000"},
		"address":       {"Jl. Kenanga 4"},
		"email_enabled": {"1"},
	}, session)
	if loc := rec.Header().Get("Location"); loc != basePath+"?status=profile+saved" {
		t.Fatalf("unexpected redirect %s", loc)
	}
	cached, _ := sessions.FindSessionBySessionToken("tok")
	if cached.User.DisplayName != "Ani Lestari" {
		t.Fatalf("expected refreshed cached user, got %+v", cached.User)
	}
	p, err := svc.Load(context.Background(), user.ID)
	if err != nil || !p.EmailEnabled || p.Address != "Jl. Kenanga 4" {
		t.Fatalf("unexpected profile %+v err=%v", p, err)
	}
}

func TestChangePasswordMismatch(t *testing.T) {
	db := testdb.Open(t)
	user := testdb.User(t, db, "ani", rbac.RoleCustomer, nil)
	svc := profile.New(db, audit.NewService())

	rec := post(t, ChangePasswordCommandHandler(svc), basePath+"/password", url.Values{
		"current_password": {"x"},
		"new_password":     {"Sampah2026"},
		"confirm_password": {"Sampah2027"},
	}, models.Session{UserID: user.ID, User: user})
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "error=new+passwords+do+not+match") {
		t.Fatalf("unexpected redirect %s", loc)
	}
}

func TestProfilePageRenders(t *testing.T) {
	db := testdb.Open(t)
	user := testdb.User(t, db, "ani", rbac.RoleCustomer, nil)
	req := httptest.NewRequest(http.MethodGet, basePath+"?status=profile+saved", nil)
	req = req.WithContext(sessioncontext.NewContextWithSession(req.Context(), models.Session{UserID: user.ID, User: user}))
	rec := httptest.NewRecorder()
	ProfilePageQueryHandler(profile.New(db, nil)).ServeHTTP(rec, req)

	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, "profile saved") || !strings.Contains(body, `value="ani"`) {
		t.Fatalf("unexpected page %d: %s", rec.Code, body)
	}
}
