package collectorunit

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

func TestTaskLifecycle(t *testing.T) {
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
	fleet := testdb.Unit(t, db, "Fleet", orgunit.KindCollectorUnit)
	lead := testdb.User(t, db, "lead", rbac.RoleCollectorCentral, &fleet.ID)
	budi := testdb.User(t, db, "budi", rbac.RoleCollectorUnit, &fleet.ID)
	other := testdb.User(t, db, "andi", rbac.RoleCollectorUnit, &fleet.ID)
	cust := testdb.User(t, db, "cust", rbac.RoleCustomer, nil)
	cat := testdb.Category(t, db, "Metal")
	can := testdb.WasteType(t, db, cat.ID, "Aluminium can", 12000)

	create := func() models.DropRequest {
		dr, err := svc.Requests.Create(ctx, models.Actor{UserID: cust.ID, Role: rbac.RoleCustomer}, dropreq.CreateInput{
			UnitID:        bank.ID,
			DeliveryType:  dropreq.DeliveryPickup,
			PickupAddress: "Jl. Melati 9",
			ScheduledDate: time.Now().UTC(),
			Items:         []dropreq.ItemInput{{WasteTypeID: can.ID, EstimatedGrams: 1500}},
		})
		require.NoError(t, err)
		return dr
	}
	mine, theirs := create(), create()
	dispatcher := models.Actor{UserID: lead.ID, Role: rbac.RoleCollectorCentral, UnitID: &fleet.ID}
	require.NoError(t, svc.Requests.Assign(ctx, dispatcher, mine.ID, budi.ID))
	require.NoError(t, svc.Requests.Assign(ctx, dispatcher, theirs.ID, other.ID))

	session := models.Session{ID: "tok", UserID: budi.ID, User: budi, ExpiresAt: time.Now().Add(time.Hour)}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(sessioncontext.NewContextWithSession(req.Context(), session)))
		})
	})
	r.Get(BasePath, TasksPageQueryHandler(svc, listing.DefaultLimits))
	r.Get(TasksPath+"/{id}", TaskDetailPageQueryHandler(svc))
	r.Post(TasksPath+"/{id}/start", StartCommandHandler(svc))
	r.Post(TasksPath+"/{id}/complete", CompleteCommandHandler(svc))

	list := get(r, BasePath)
	require.Equal(t, http.StatusOK, list.Code)
	require.Contains(t, list.Body.String(), mine.Reference)
	require.NotContains(t, list.Body.String(), theirs.Reference)
	require.Contains(t, list.Body.String(), fmt.Sprintf(`action="%s/%d/start"`, TasksPath, mine.ID))

	require.Equal(t, http.StatusNotFound, get(r, fmt.Sprintf("%s/%d", TasksPath, theirs.ID)).Code)

	rec := post(r, fmt.Sprintf("%s/%d/start", TasksPath, mine.ID), url.Values{"return_to": {BasePath}})
	require.Equal(t, BasePath+"?status=collection+started", rec.Header().Get("Location"))

	d, err := svc.Requests.LoadDetail(ctx, models.Actor{UserID: budi.ID, Role: rbac.RoleCollectorUnit, UnitID: &fleet.ID}, mine.ID)
	require.NoError(t, err)
	require.Equal(t, dropreq.StatusCollecting, d.Status)

	detail := get(r, fmt.Sprintf("%s/%d", TasksPath, mine.ID))
	require.Contains(t, detail.Body.String(), fmt.Sprintf(`name="kg_%d"`, d.Items[0].ID))

	rec = post(r, fmt.Sprintf("%s/%d/complete", TasksPath, mine.ID), url.Values{fmt.Sprintf("kg_%d", d.Items[0].ID): {"1,75"}})
	require.Equal(t, fmt.Sprintf("%s/%d?status=collection+completed", TasksPath, mine.ID), rec.Header().Get("Location"))

	d, err = svc.Requests.LoadDetail(ctx, models.Actor{UserID: budi.ID, Role: rbac.RoleCollectorUnit}, mine.ID)
	require.NoError(t, err)
	require.Equal(t, dropreq.StatusCompleted, d.Status)
	require.Equal(t, int64(1750), *d.Items[0].ActualGrams)
	require.Equal(t, int64(21000), *d.Items[0].Value)
}
