package collectorcentral

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	droprequests "wasteboard/frontend/dropRequests"
	sessioncontext "wasteboard/frontend/shared/context"
	"wasteboard/infrastructure/cache"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/collector"
	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/profile"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/testdb"
	"wasteboard/models"
)

type fixture struct {
	app       http.Handler
	svc       droprequests.Services
	sessions  *cache.UserSessionCache
	collector models.User
	lead      models.Actor
	pickup    models.DropRequest
	dropoff   models.DropRequest
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testdb.Open(t)
	ctx := context.Background()
	svc := droprequests.Services{
		DB:         db,
		Requests:   dropreq.New(db, nil),
		Collectors: collector.New(db, nil),
		Catalog:    catalog.New(db, nil),
		Profiles:   profile.New(db, nil),
	}
	bank := testdb.Unit(t, db, "Melati", orgunit.KindWastebankUnit)
	fleet := testdb.Unit(t, db, "Fleet North", orgunit.KindCollectorUnit)
	lead := testdb.User(t, db, "lead", rbac.RoleCollectorCentral, &fleet.ID)
	budi := testdb.User(t, db, "budi", rbac.RoleCollectorUnit, &fleet.ID)
	cust := testdb.User(t, db, "cust", rbac.RoleCustomer, nil)
	cat := testdb.Category(t, db, "Paper")
	carton := testdb.WasteType(t, db, cat.ID, "Carton", 1500)

	customer := models.Actor{UserID: cust.ID, Role: rbac.RoleCustomer}
	create := func(delivery string) models.DropRequest {
		dr, err := svc.Requests.Create(ctx, customer, dropreq.CreateInput{
			UnitID:        bank.ID,
			DeliveryType:  delivery,
			PickupAddress: "Jl. Mawar 3",
			ScheduledDate: time.Now().UTC(),
			Items:         []dropreq.ItemInput{{WasteTypeID: carton.ID, EstimatedGrams: 4000}},
		})
		require.NoError(t, err)
		return dr
	}
	pickup := create(dropreq.DeliveryPickup)
	dropoff := create(dropreq.DeliveryDropoff)

	sessions := cache.NewUserSessionCache()
	users := cache.NewUserCache()
	sessions.AddSession(models.Session{ID: "budi-tok", UserID: budi.ID, User: budi, ExpiresAt: time.Now().Add(time.Hour)})

	r := chi.NewRouter()
	session := models.Session{ID: "lead-tok", UserID: lead.ID, User: lead, ExpiresAt: time.Now().Add(time.Hour)}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(sessioncontext.NewContextWithSession(req.Context(), session)))
		})
	})
	r.Get(QueuePath, QueuePageQueryHandler(svc, listing.DefaultLimits))
	r.Post(RequestsPath+"/{id}/assign", AssignCommandHandler(svc))
	r.Get(BasePath, CollectorsPageQueryHandler(svc.Collectors, listing.DefaultLimits))
	r.Post(BasePath+"/collectors/{id}/active", SetActiveCommandHandler(db, svc.Collectors, sessions, users))

	return fixture{app: r, svc: svc, sessions: sessions, collector: budi, lead: models.Actor{UserID: lead.ID, Role: rbac.RoleCollectorCentral, UnitID: &fleet.ID}, pickup: pickup, dropoff: dropoff}
}

func post(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestQueueShowsOnlyUnassignedPickups(t *testing.T) {
	f := newFixture(t)

	rec := get(f.app, QueuePath)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, f.pickup.Reference)
	require.NotContains(t, body, f.dropoff.Reference)
	require.Contains(t, body, fmt.Sprintf(`action="%s/%d/assign"`, RequestsPath, f.pickup.ID))
	require.Contains(t, body, `name="return_to" value="/dashboard/collector-central/queue`)

	rec = post(f.app, fmt.Sprintf("%s/%d/assign", RequestsPath, f.pickup.ID), url.Values{
		"collector_id": {fmt.Sprint(f.collector.ID)},
		"return_to":    {QueuePath},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, QueuePath+"?status=collector+assigned", rec.Header().Get("Location"))

	rec = get(f.app, QueuePath)
	require.NotContains(t, rec.Body.String(), f.pickup.Reference)
}

func TestDeactivateCollector(t *testing.T) {
	f := newFixture(t)
	path := ActivePath(f.collector.ID)

	page := get(f.app, BasePath)
	require.Equal(t, http.StatusOK, page.Code)
	require.Contains(t, page.Body.String(), "@budi")
	require.Contains(t, page.Body.String(), "Deactivate")

	lead := f.lead
	require.NoError(t, f.svc.Requests.Assign(context.Background(), lead, f.pickup.ID, f.collector.ID))
	rec := post(f.app, path, url.Values{"active": {"0"}})
	require.Contains(t, rec.Header().Get("Location"), "error=")
	_, ok := f.sessions.FindSessionBySessionToken("budi-tok")
	require.True(t, ok)

	require.NoError(t, f.svc.Requests.Cancel(context.Background(), lead, f.pickup.ID, "customer away"))
	rec = post(f.app, path, url.Values{"active": {"0"}})
	require.Equal(t, BasePath+"?status=budi+deactivated", rec.Header().Get("Location"))
	_, ok = f.sessions.FindSessionBySessionToken("budi-tok")
	require.False(t, ok)

	page = get(f.app, BasePath+"?status=inactive")
	require.Contains(t, page.Body.String(), "@budi")
	require.Contains(t, page.Body.String(), "Activate")
}
