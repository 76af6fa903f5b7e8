package transfers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	sessioncontext "wasteboard/frontend/shared/context"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/inventory"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/testdb"
	"wasteboard/infrastructure/transfer"
	"wasteboard/models"
)

const (
	unitBase    = "/dashboard/wastebank-unit/transfers"
	centralBase = "/dashboard/wastebank-central/transfers"
)

type fixture struct {
	svc       Services
	unitApp   http.Handler
	centerApp http.Handler
	dst       models.Unit
	pet       models.WasteType
	staff     models.Actor
}

func mount(svc Services, base string, user models.User) http.Handler {
	session := models.Session{ID: "tok-" + user.Username, UserID: user.ID, User: user, ExpiresAt: time.Now().Add(time.Hour)}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(sessioncontext.NewContextWithSession(req.Context(), session)))
		})
	})
	r.Get(base, ListPageQueryHandler(svc, base, "Transfers", listing.DefaultLimits))
	r.Get(base+"/new", NewPageQueryHandler(svc, base))
	r.Post(base, CreateCommandHandler(svc, base))
	r.Get(base+"/{id}", DetailPageQueryHandler(svc, base))
	for _, a := range []string{transfer.ActionApprove, transfer.ActionReject, transfer.ActionShip, transfer.ActionReceive, transfer.ActionCancel} {
		r.Post(base+"/{id}/"+a, ActionCommandHandler(svc, base, a))
	}
	return r
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testdb.Open(t)
	ctx := context.Background()
	svc := Services{DB: db, Transfers: transfer.New(db, nil), Catalog: catalog.New(db, nil), Inventory: inventory.New(db)}

	centralUnit := testdb.Unit(t, db, "Central", orgunit.KindWastebankCentral)
	src := testdb.Unit(t, db, "Melati", orgunit.KindWastebankUnit)
	staff := testdb.User(t, db, "melati", rbac.RoleWastebankUnit, &src.ID)
	central := testdb.User(t, db, "central", rbac.RoleWastebankCentral, &centralUnit.ID)
	cust := testdb.User(t, db, "cust", rbac.RoleCustomer, nil)
	cat := testdb.Category(t, db, "Plastic")
	pet := testdb.WasteType(t, db, cat.ID, "PET", 3000)

	staffActor := models.Actor{UserID: staff.ID, Role: rbac.RoleWastebankUnit, UnitID: &src.ID}
	drops := dropreq.New(db, nil)
	dr, err := drops.Create(ctx, models.Actor{UserID: cust.ID, Role: rbac.RoleCustomer}, dropreq.CreateInput{
		UnitID:        src.ID,
		DeliveryType:  dropreq.DeliveryDropoff,
		ScheduledDate: time.Now().UTC(),
		Items:         []dropreq.ItemInput{{WasteTypeID: pet.ID, EstimatedGrams: 5000}},
	})
	require.NoError(t, err)
	d, err := drops.LoadDetail(ctx, staffActor, dr.ID)
	require.NoError(t, err)
	require.NoError(t, drops.Receive(ctx, staffActor, dr.ID, dropreq.Weights{d.Items[0].ID: 5000}))

	return fixture{
		svc:       svc,
		unitApp:   mount(svc, unitBase, staff),
		centerApp: mount(svc, centralBase, central),
		dst:       centralUnit,
		pet:       pet,
		staff:     staffActor,
	}
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func getPage(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestTransferFlowThroughPages(t *testing.T) {
	f := newFixture(t)

	form := getPage(f.unitApp, unitBase+"/new")
	require.Equal(t, http.StatusOK, form.Code)
	require.Contains(t, form.Body.String(), "From: <strong>Melati</strong>")
	require.Contains(t, form.Body.String(), "5 kg")

	rec := postForm(f.unitApp, unitBase, url.Values{
		"source_unit_id":      {"999"},
		"destination_unit_id": {strconv.FormatInt(f.dst.ID, 10)},
		"waste_type_id":       {strconv.FormatInt(f.pet.ID, 10)},
		"kg":                  {"2"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "status=transfer+TR-")

	rows, total, err := f.svc.Transfers.List(context.Background(), f.staff, listing.Query{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	tr := rows[0]
	require.Equal(t, *f.staff.UnitID, tr.SourceUnitID)
	id := strconv.FormatInt(tr.ID, 10)

	list := getPage(f.centerApp, centralBase+"?status=pending")
	require.Equal(t, http.StatusOK, list.Code)
	require.Contains(t, list.Body.String(), tr.Reference)
	require.Contains(t, list.Body.String(), centralBase+"/"+id+"/approve")

	rec = postForm(f.centerApp, centralBase+"/"+id+"/reject", url.Values{})
	require.Equal(t, centralBase+"/"+id+"?error=a+reason+is+required+to+reject+a+transfer", rec.Header().Get("Location"))

	rec = postForm(f.centerApp, centralBase+"/"+id+"/approve", url.Values{"return_to": {centralBase + "?status=pending"}})
	require.Equal(t, centralBase+"?status=pending&status=transfer+approved", rec.Header().Get("Location"))

	detail := getPage(f.unitApp, unitBase+"/"+id)
	require.Equal(t, http.StatusOK, detail.Code)
	require.Contains(t, detail.Body.String(), unitBase+"/"+id+"/ship")

	rec = postForm(f.unitApp, unitBase+"/"+id+"/ship", url.Values{})
	require.Equal(t, unitBase+"/"+id+"?status=transfer+shipped", rec.Header().Get("Location"))

	rec = postForm(f.unitApp, unitBase+"/"+id+"/receive", url.Values{})
	require.Contains(t, rec.Header().Get("Location"), "error=forbidden")
}

func TestCreateFormErrors(t *testing.T) {
	f := newFixture(t)
	rec := postForm(f.unitApp, unitBase, url.Values{"waste_type_id": {"1"}, "kg": {"1"}})
	require.Equal(t, unitBase+"/new?error=choose+a+destination", rec.Header().Get("Location"))

	rec = postForm(f.unitApp, unitBase, url.Values{
		"destination_unit_id": {strconv.FormatInt(f.dst.ID, 10)},
		"waste_type_id":       {strconv.FormatInt(f.pet.ID, 10)},
		"kg":                  {"abc"},
	})
	require.Contains(t, rec.Header().Get("Location"), unitBase+"/new?error=line+1")
}
