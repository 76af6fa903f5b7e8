package exports

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	sessioncontext "wasteboard/frontend/shared/context"
	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/testdb"
	"wasteboard/infrastructure/transfer"
	"wasteboard/models"
)

type fixture struct {
	svc      Services
	staff    models.User
	customer models.User
	other    models.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testdb.Open(t)
	ctx := context.Background()
	svc := Services{DB: db, Requests: dropreq.New(db, nil), Transfers: transfer.New(db, nil)}
	melati := testdb.Unit(t, db, "Melati", orgunit.KindWastebankUnit)
	staff := testdb.User(t, db, "melati", rbac.RoleWastebankUnit, &melati.ID)
	cust := testdb.User(t, db, "siti", rbac.RoleCustomer, nil)
	other := testdb.User(t, db, "rina", rbac.RoleCustomer, nil)
	cat := testdb.Category(t, db, "Plastic")
	pet := testdb.WasteType(t, db, cat.ID, "PET", 3000)

	for _, c := range []models.User{cust, cust, other} {
		_, err := svc.Requests.Create(ctx, models.Actor{UserID: c.ID, Role: rbac.RoleCustomer}, dropreq.CreateInput{
			UnitID:        melati.ID,
			DeliveryType:  dropreq.DeliveryDropoff,
			ScheduledDate: time.Now().UTC(),
			Items:         []dropreq.ItemInput{{WasteTypeID: pet.ID, EstimatedGrams: 1250}},
		})
		require.NoError(t, err)
	}
	return fixture{svc: svc, staff: staff, customer: cust, other: other}
}

func download(t *testing.T, h http.Handler, user models.User, path string) *httptest.ResponseRecorder {
	t.Helper()
	session := models.Session{ID: "tok", UserID: user.ID, User: user, ExpiresAt: time.Now().Add(time.Hour)}
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(sessioncontext.NewContextWithSession(req.Context(), session))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func exportRuns(t *testing.T, svc Services) int {
	t.Helper()
	var n int
	require.NoError(t, svc.DB.R.NewRaw(`SELECT COUNT(1) FROM export_runs`).Scan(context.Background(), &n))
	return n
}

func TestDropRequestsCSVIsScopedToCustomer(t *testing.T) {
	f := newFixture(t)

	rec := download(t, DropRequestsCSVHandler(f.svc), f.customer, Path+"/drop-requests.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), `filename="drop-requests-`)

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, dropRequestHeader, records[0])
	require.Equal(t, "siti", records[1][3])
	require.Equal(t, "1.250", records[1][9])
	require.Equal(t, 1, exportRuns(t, f.svc))

	rec = download(t, DropRequestsCSVHandler(f.svc), f.staff, Path+"/drop-requests.csv?status=completed")
	records, err = csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestWorkbookHasThreeSheets(t *testing.T) {
	f := newFixture(t)

	rec := download(t, WorkbookHandler(f.svc), f.staff, Path+"/workbook.xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))

	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	require.Equal(t, []string{SheetDropRequests, SheetItems, SheetTransfers}, book.GetSheetList())

	rows, err := book.GetRows(SheetDropRequests)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	items, err := book.GetRows(SheetItems)
	require.NoError(t, err)
	require.Len(t, items, 4)
	require.Equal(t, "PET", items[1][1])
	transfers, err := book.GetRows(SheetTransfers)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
}

func TestExportsPageHidesTransfersFromCustomers(t *testing.T) {
	f := newFixture(t)

	rec := download(t, ExportsPageQueryHandler(), f.customer, Path+"?from=2026-01-01")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "transfers.csv")
	require.Contains(t, rec.Body.String(), "drop-requests.csv?from=2026-01-01")

	rec = download(t, ExportsPageQueryHandler(), f.staff, Path)
	require.Contains(t, rec.Body.String(), "transfers.csv")
}
