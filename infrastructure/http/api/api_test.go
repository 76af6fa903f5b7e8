package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wasteboard/frontend/login"
	"wasteboard/infrastructure/cache"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/collector"
	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/inventory"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/profile"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/testdb"
	"wasteboard/infrastructure/token"
	"wasteboard/infrastructure/transfer"
	"wasteboard/models"
)

type fixture struct {
	api      *API
	handler  http.Handler
	unit     models.Unit
	pet      models.WasteType
	staff    models.User
	customer models.User
	other    models.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testdb.Open(t)
	issuer, err := token.NewIssuer("0123456789abcdef0123", time.Hour)
	require.NoError(t, err)
	a := New(Deps{
		DB:         db,
		Tokens:     issuer,
		Users:      cache.NewUserCache(),
		Requests:   dropreq.New(db, nil),
		Transfers:  transfer.New(db, nil),
		Catalog:    catalog.New(db, nil),
		Collectors: collector.New(db, nil),
		Inventory:  inventory.New(db),
		Profiles:   profile.New(db, nil),
		Limits:     listing.DefaultLimits,
	})
	unit := testdb.Unit(t, db, "Melati", orgunit.KindWastebankUnit)
	cat := testdb.Category(t, db, "Plastic")
	return fixture{
		api:      a,
		handler:  a.Routes(),
		unit:     unit,
		pet:      testdb.WasteType(t, db, cat.ID, "PET", 3000),
		staff:    testdb.User(t, db, "melati", rbac.RoleWastebankUnit, &unit.ID),
		customer: testdb.User(t, db, "siti", rbac.RoleCustomer, nil),
		other:    testdb.User(t, db, "rina", rbac.RoleCustomer, nil),
	}
}

func (f fixture) bearer(t *testing.T, u models.User) string {
	t.Helper()
	signed, _, err := f.api.Tokens.Issue(u.ID, u.Role)
	require.NoError(t, err)
	return signed
}

func (f fixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestTokenEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, login.UpsertUserPasswordHash(ctx, f.api.DB, "dewi", rbac.RoleCustomer, nil, "correct-horse-7"))

	rec := f.do(t, http.MethodPost, "/auth/token", "", tokenRequest{Username: "dewi", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/token", "", tokenRequest{Username: "dewi", Password: "correct-horse-7"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok := decodeBody[tokenResponse](t, rec)
	require.Equal(t, rbac.RoleCustomer, tok.Role)
	require.True(t, tok.ExpiresAt.After(time.Now()))

	rec = f.do(t, http.MethodGet, "/me", tok.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody[profile.Profile](t, rec)
	require.Equal(t, "dewi", me.Username)

	rec = f.do(t, http.MethodPut, "/me", tok.Token, profile.UpdateInput{DisplayName: "Dewi S", Phone: "0812", Address: "Jl. Mawar 3"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Dewi S", decodeBody[profile.Profile](t, rec).DisplayName)
}

func TestBearerRequired(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/drop-requests", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")

	rec = f.do(t, http.MethodGet, "/drop-requests", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Deactivated accounts lose API access even with an unexpired token.
	tok := f.bearer(t, f.customer)
	_, err := f.api.DB.W.ExecContext(context.Background(), `UPDATE users SET active = 0 WHERE id = ?`, f.customer.ID)
	require.NoError(t, err)
	rec = f.do(t, http.MethodGet, "/drop-requests", tok, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDropRequestLifecycleOverAPI(t *testing.T) {
	f := newFixture(t)
	cust := f.bearer(t, f.customer)
	staff := f.bearer(t, f.staff)

	rec := f.do(t, http.MethodPost, "/drop-requests", cust, createDropRequest{
		UnitID:        f.unit.ID,
		DeliveryType:  dropreq.DeliveryDropoff,
		ScheduledDate: "yesterday",
		Items:         []dropreq.ItemInput{{WasteTypeID: f.pet.ID, EstimatedGrams: 2000}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "YYYY-MM-DD")

	rec = f.do(t, http.MethodPost, "/drop-requests", cust, createDropRequest{
		UnitID:        f.unit.ID,
		DeliveryType:  dropreq.DeliveryDropoff,
		ScheduledDate: time.Now().UTC().Format(listing.DateLayout),
		Items:         []dropreq.ItemInput{{WasteTypeID: f.pet.ID, EstimatedGrams: 2000}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[dropRequestDetail](t, rec)
	id := created.Request.ID
	require.Equal(t, dropreq.StatusPending, created.Request.Status)
	require.Contains(t, created.Actions, dropreq.ActionCancel)
	require.Equal(t, fmt.Sprintf("%s/drop-requests/%d", Prefix, id), rec.Header().Get("Location"))

	// Requests of other customers are invisible.
	rec = f.do(t, http.MethodGet, "/drop-requests", f.bearer(t, f.other), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decodeBody[dropRequestList](t, rec).Items)
	rec = f.do(t, http.MethodGet, fmt.Sprintf("/drop-requests/%d", id), f.bearer(t, f.other), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/drop-requests/%d", id), staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody[dropRequestDetail](t, rec)
	require.Contains(t, detail.Actions, dropreq.ActionReceive)
	require.Len(t, detail.Request.Items, 1)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/drop-requests/%d/explode", id), staff, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	weights := dropreq.Weights{detail.Request.Items[0].ID: 1500}
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/drop-requests/%d/receive", id), staff, dropRequestActionBody{Weights: weights})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decodeBody[dropRequestDetail](t, rec)
	require.Equal(t, dropreq.StatusCompleted, done.Request.Status)
	require.EqualValues(t, 1500, done.Request.ActualGrams)
	require.EqualValues(t, 4500, done.Request.TotalValue)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/drop-requests/%d/rate", id), cust, dropRequestActionBody{Rating: 9})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/drop-requests/%d/rate", id), cust, dropRequestActionBody{Rating: 5, Comment: "fast"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/drop-requests/%d/rate", id), cust, dropRequestActionBody{Rating: 4})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodGet, "/drop-requests?status=completed", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[dropRequestList](t, rec)
	require.Len(t, list.Items, 1)
	require.Equal(t, 1, list.Pagination.TotalCount)
	require.EqualValues(t, 1500, list.Summary.CompletedGrams)
	require.Equal(t, 1, list.Summary.RatedCount)

	rec = f.do(t, http.MethodGet, "/inventory", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1500, decodeBody[inventory.Stock](t, rec).TotalGrams)
}

func TestPricesAndRoleChecks(t *testing.T) {
	f := newFixture(t)
	staff := f.bearer(t, f.staff)
	cust := f.bearer(t, f.customer)

	rec := f.do(t, http.MethodPut, "/prices", staff, priceRequest{WasteTypeID: f.pet.ID, PricePerKg: 3500})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"price_per_kg": 3500`)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/catalog?unit_id=%d", f.unit.ID), cust, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	prices := decodeBody[catalogResponse](t, rec).Prices
	require.Len(t, prices, 1)
	require.True(t, prices[0].Overridden)

	rec = f.do(t, http.MethodPut, "/prices", staff, priceRequest{WasteTypeID: f.pet.ID, Reset: true})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"price_per_kg": 3000`)

	rec = f.do(t, http.MethodPut, "/prices", cust, priceRequest{UnitID: f.unit.ID, WasteTypeID: f.pet.ID, PricePerKg: 1})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/collectors", cust, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/units?kind=moon", cust, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodGet, "/units?kind="+orgunit.KindWastebankUnit, cust, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `"Melati"`))
}
