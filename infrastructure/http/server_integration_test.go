package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"wasteboard/frontend/login"
	"wasteboard/frontend/shared/html"
	"wasteboard/infrastructure/audit"
	"wasteboard/infrastructure/cache"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
	sessioncookie "wasteboard/infrastructure/session"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/infrastructure/testdb"
	"wasteboard/infrastructure/token"
	"wasteboard/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

const (
	adminPassword    = "Admin123!Wasteboard"
	customerPassword = "Customer123!"
	staffPassword    = "Staff12345!"
)

type integrationEnv struct {
	server *httptest.Server
	db     *sqlite.DB
	unit   models.Unit
	pet    models.WasteType
}

func setupIntegrationServer(t *testing.T) (*integrationEnv, *http.Client) {
	t.Helper()
	db := testdb.Open(t)
	ctx := context.Background()

	unit := testdb.Unit(t, db, "Melati", orgunit.KindWastebankUnit)
	cat := testdb.Category(t, db, "Plastic")
	pet := testdb.WasteType(t, db, cat.ID, "PET", 3000)

	seeds := []struct {
		username, role, password string
		unitID                   *int64
	}{
		{"admin", rbac.RoleAdmin, adminPassword, nil},
		{"siti", rbac.RoleCustomer, customerPassword, nil},
		{"melati", rbac.RoleWastebankUnit, staffPassword, &unit.ID},
	}
	for _, u := range seeds {
		if err := login.UpsertUserPasswordHash(ctx, db, u.username, u.role, u.unitID, u.password); err != nil {
			t.Fatalf("seed %s user: %v", u.username, err)
		}
	}

	issuer, err := token.NewIssuer("integration-secret-0123456789", time.Hour)
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}

	sessionCache := cache.NewUserSessionCache()
	userCache := cache.NewUserCache()
	rbacCache := cache.NewRbacRolesCache()
	rbacSvc := rbac.New(rbacCache)
	auditSvc := audit.NewService()

	s := NewServer(Options{Addr: "127.0.0.1:0", Session: sessioncookie.Policy{TTL: time.Hour}, Tokens: issuer},
		db, sessionCache, userCache, rbacSvc, rbacCache, auditSvc)
	ts := httptest.NewServer(s.Handler())
	env := &integrationEnv{server: ts, db: db, unit: unit, pet: pet}
	t.Cleanup(ts.Close)

	return env, newHTTPClient(t)
}

func newHTTPClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	t.Cleanup(client.CloseIdleConnections)
	return client
}

func postForm(t *testing.T, client *http.Client, baseURL, path string, data url.Values) *http.Response {
	t.Helper()
	if data == nil {
		data = url.Values{}
	}
	if token := csrfToken(t, client, baseURL); token != "" {
		data.Set("_csrf", token)
	}
	resp, err := client.PostForm(baseURL+path, data)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func get(t *testing.T, client *http.Client, baseURL, path string) *http.Response {
	t.Helper()
	resp, err := client.Get(baseURL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func csrfToken(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("parse base url: %v", err)
	}
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == html.CSRFCookie {
			return c.Value
		}
	}
	return ""
}

func loginAs(t *testing.T, client *http.Client, baseURL, username, password, wantHome string) {
	t.Helper()

	resp := get(t, client, baseURL, "/login")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected login page 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = postForm(t, client, baseURL, "/login", url.Values{
		"username": {username},
		"password": {password},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected login 303, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != wantHome {
		t.Fatalf("expected login redirect to %s, got %s", wantHome, got)
	}
}

func countRows(t *testing.T, db *sqlite.DB, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := db.R.NewRaw(query, args...).Scan(context.Background(), &n); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}

func TestCSRFPostWithoutTokenRejected(t *testing.T) {
	env, client := setupIntegrationServer(t)

	// No GET first: no CSRF token available in cookie or form.
	resp, err := client.PostForm(env.server.URL+"/login", url.Values{
		"username": {"admin"},
		"password": {adminPassword},
	})
	if err != nil {
		t.Fatalf("post login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for missing csrf, got %d", resp.StatusCode)
	}
}

func TestLoginRedirectsToRoleHome(t *testing.T) {
	env, _ := setupIntegrationServer(t)
	loginAs(t, newHTTPClient(t), env.server.URL, "admin", adminPassword, "/dashboard/admin/users")
	loginAs(t, newHTTPClient(t), env.server.URL, "siti", customerPassword, "/dashboard/customer")

	client := newHTTPClient(t)
	loginAs(t, client, env.server.URL, "melati", staffPassword, "/dashboard/wastebank-unit")
	resp := get(t, client, env.server.URL, "/")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/dashboard/wastebank-unit" {
		t.Fatalf("expected root to redirect home, got %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestDashboardRequiresSession(t *testing.T) {
	env, client := setupIntegrationServer(t)

	resp := get(t, client, env.server.URL, "/dashboard/customer")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestRoleGuardKeepsCustomersOutOfStaffPages(t *testing.T) {
	env, client := setupIntegrationServer(t)
	loginAs(t, client, env.server.URL, "siti", customerPassword, "/dashboard/customer")

	resp := get(t, client, env.server.URL, "/dashboard/wastebank-unit/prices")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || !strings.HasPrefix(resp.Header.Get("Location"), "/dashboard/customer?error=") {
		t.Fatalf("expected redirect home with error, got %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = postForm(t, client, env.server.URL, "/dashboard/wastebank-unit/prices/"+strconv.FormatInt(env.pet.ID, 10), url.Values{"price_per_kg": {"1"}})
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for customer price edit, got %d", resp.StatusCode)
	}

	resp = get(t, client, env.server.URL, "/dashboard/admin/users")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected admin page to be denied, got %d", resp.StatusCode)
	}
}

func TestLogoutDropsSession(t *testing.T) {
	env, client := setupIntegrationServer(t)
	loginAs(t, client, env.server.URL, "siti", customerPassword, "/dashboard/customer")
	if n := countRows(t, env.db, `SELECT COUNT(*) FROM sessions`); n != 1 {
		t.Fatalf("expected 1 session row, got %d", n)
	}

	resp := postForm(t, client, env.server.URL, "/logout", nil)
	_ = resp.Body.Close()
	if n := countRows(t, env.db, `SELECT COUNT(*) FROM sessions`); n != 0 {
		t.Fatalf("expected sessions cleared, got %d", n)
	}
	resp = get(t, client, env.server.URL, "/dashboard/customer")
	_ = resp.Body.Close()
	if !strings.HasPrefix(resp.Header.Get("Location"), "/login?status=") {
		t.Fatalf("expected redirect to /login after logout, got %s", resp.Header.Get("Location"))
	}
}

func TestServerEndToEndDropOffFlow(t *testing.T) {
	env, customer := setupIntegrationServer(t)
	base := env.server.URL
	loginAs(t, customer, base, "siti", customerPassword, "/dashboard/customer")

	page := readBody(t, get(t, customer, base, "/dashboard/customer/requests/new"))
	if !strings.Contains(page, "Melati") {
		t.Fatalf("expected unit option on new request form")
	}

	resp := postForm(t, customer, base, "/dashboard/customer/requests", url.Values{
		"unit_id":        {strconv.FormatInt(env.unit.ID, 10)},
		"delivery_type":  {"dropoff"},
		"scheduled_date": {time.Now().Format("2006-01-02")},
		"waste_type_id":  {strconv.FormatInt(env.pet.ID, 10)},
		"estimated_kg":   {"2,5"},
	})
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || !strings.Contains(resp.Header.Get("Location"), "status=") {
		t.Fatalf("expected request created, got %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}
	var requestID, itemID int64
	if err := env.db.R.NewRaw(`SELECT dr.id, dri.id FROM drop_requests dr JOIN drop_request_items dri ON dri.drop_request_id = dr.id`).
		Scan(context.Background(), &requestID, &itemID); err != nil {
		t.Fatalf("load created request: %v", err)
	}

	staff := newHTTPClient(t)
	loginAs(t, staff, base, "melati", staffPassword, "/dashboard/wastebank-unit")
	list := readBody(t, get(t, staff, base, "/dashboard/wastebank-unit"))
	if !strings.Contains(list, "siti") {
		t.Fatalf("expected incoming request from siti on unit dashboard")
	}

	detailPath := "/dashboard/wastebank-unit/requests/" + strconv.FormatInt(requestID, 10)
	resp = postForm(t, staff, base, detailPath+"/receive", url.Values{
		"kg_" + strconv.FormatInt(itemID, 10): {"2.4"},
	})
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || !strings.Contains(resp.Header.Get("Location"), "status=") {
		t.Fatalf("expected receive success, got %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}

	stock := readBody(t, get(t, staff, base, "/dashboard/wastebank-unit/stock"))
	if !strings.Contains(stock, "PET") {
		t.Fatalf("expected PET on stock page")
	}

	resp = postForm(t, customer, base, "/dashboard/customer/requests/"+strconv.FormatInt(requestID, 10)+"/rate", url.Values{"rating": {"5"}})
	_ = resp.Body.Close()
	if !strings.Contains(resp.Header.Get("Location"), "status=") {
		t.Fatalf("expected rating saved, got %s", resp.Header.Get("Location"))
	}

	resp = get(t, customer, base, "/dashboard/exports/drop-requests.csv")
	csvBody := readBody(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(csvBody, "2.400") {
		t.Fatalf("expected csv with actual weight, got %d %q", resp.StatusCode, csvBody)
	}
	if n := countRows(t, env.db, `SELECT COUNT(*) FROM export_runs`); n != 1 {
		t.Fatalf("expected one export run, got %d", n)
	}
	if n := countRows(t, env.db, `SELECT COUNT(*) FROM audit_logs WHERE entity_type = 'drop_request'`); n < 3 {
		t.Fatalf("expected create, receive and rate audit rows, got %d", n)
	}
}

func TestAPIMountedWithoutCSRF(t *testing.T) {
	env, client := setupIntegrationServer(t)

	body, _ := json.Marshal(map[string]string{"username": "siti", "password": customerPassword})
	resp, err := client.Post(env.server.URL+"/api/v1/auth/token", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post token: %v", err)
	}
	raw := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected token 200, got %d %s", resp.StatusCode, raw)
	}
	var tok struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(raw), &tok); err != nil || tok.Token == "" {
		t.Fatalf("decode token: %v %q", err, raw)
	}

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("get me: %v", err)
	}
	if me := readBody(t, resp); resp.StatusCode != http.StatusOK || !strings.Contains(me, `"username": "siti"`) {
		t.Fatalf("expected profile, got %d %s", resp.StatusCode, me)
	}
}
