package help

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sessioncontext "wasteboard/frontend/shared/context"
	"wasteboard/infrastructure/rbac"
	"wasteboard/models"
)

func TestEveryRoleHasHelp(t *testing.T) {
	for _, role := range rbac.Roles() {
		if len(SectionsFor(role)) == 0 {
			t.Fatalf("role %s has no help sections", role)
		}
	}
}

func TestHelpPageShowsRoleTopics(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/dashboard/help", nil)
	req = req.WithContext(sessioncontext.NewContextWithSession(req.Context(), models.Session{User: models.User{Username: "k", Role: rbac.RoleCollectorUnit}}))
	rec := httptest.NewRecorder()
	HelpPageQueryHandler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "Start a task") || strings.Contains(body, "Administration") {
		t.Fatalf("unexpected help body: %s", body)
	}
}

func TestHelpPageRequiresSession(t *testing.T) {
	rec := httptest.NewRecorder()
	HelpPageQueryHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/help", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected login redirect, got %d %s", rec.Code, rec.Header().Get("Location"))
	}
}
