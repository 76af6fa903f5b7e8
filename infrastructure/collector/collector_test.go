package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/testdb"
	"wasteboard/models"
)

func TestListStatsSortAndSetActive(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	bank := testdb.Unit(t, db, "Melati", orgunit.KindWastebankUnit)
	field := testdb.Unit(t, db, "North", orgunit.KindCollectorUnit)
	cust := testdb.User(t, db, "cust", rbac.RoleCustomer, nil)
	andi := testdb.User(t, db, "andi", rbac.RoleCollectorUnit, &field.ID)
	budi := testdb.User(t, db, "budi", rbac.RoleCollectorUnit, &field.ID)
	cici := testdb.User(t, db, "cici", rbac.RoleCollectorUnit, &field.ID)
	disp := testdb.User(t, db, "dispatch", rbac.RoleCollectorCentral, nil)
	cat := testdb.Category(t, db, "Paper")
	box := testdb.WasteType(t, db, cat.ID, "Cardboard", 1000)

	n := 0
	drop := func(collectorID int64, status string, rating any, grams any) {
		t.Helper()
		n++
		var id int64
		err := db.W.NewRaw(`INSERT INTO drop_requests (reference, customer_id, unit_id, delivery_type, pickup_address, scheduled_date, status, assigned_collector_id, rating)
VALUES (?, ?, ?, 'pickup', 'x', '2026-10-01', ?, ?, ?) RETURNING id`, "DR-T"+string(rune('A'+n)), cust.ID, bank.ID, status, collectorID, rating).Scan(ctx, &id)
		require.NoError(t, err)
		_, err = db.W.NewRaw(`INSERT INTO drop_request_items (drop_request_id, waste_type_id, estimated_grams, actual_grams) VALUES (?, ?, 1000, ?)`, id, box.ID, grams).Exec(ctx)
		require.NoError(t, err)
	}
	drop(andi.ID, "completed", 5, 1200)
	drop(andi.ID, "completed", 3, 800)
	drop(budi.ID, "completed", nil, 3000)
	drop(budi.ID, "completed", nil, 100)
	drop(budi.ID, "completed", 2, 100)
	drop(cici.ID, "assigned", nil, nil)

	svc := New(db, nil)
	q := listing.Query{}.Normalize(listing.DefaultLimits)

	rows, p, sum, err := svc.List(ctx, q, "/dashboard/collector-central")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, 3, p.TotalCount)
	require.Equal(t, "andi", rows[0].Name)
	require.Equal(t, 2, rows[0].Completed)
	require.Equal(t, int64(2000), rows[0].CollectedGrams)
	require.InDelta(t, 4.0, rows[0].AverageRating, 0.001)
	require.Equal(t, "North", rows[0].UnitName)
	require.Equal(t, 3, sum.Total)
	require.Equal(t, 1, sum.OpenTasks)
	require.InDelta(t, 3.0, sum.AverageRating, 0.001)

	bySort := q
	bySort.Sort = SortCompleted
	rows, _, _, err = svc.List(ctx, bySort, "")
	require.NoError(t, err)
	require.Equal(t, "budi", rows[0].Name)

	bySort.Sort = SortRating
	rows, _, _, err = svc.List(ctx, bySort, "")
	require.NoError(t, err)
	require.Equal(t, "andi", rows[0].Name)

	paged := q
	paged.PageSize = 2
	paged.Page = 2
	rows, p, _, err = svc.List(ctx, paged, "/c")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, p.HasPrev)
	require.False(t, p.HasNext)

	dispatcher := models.Actor{UserID: disp.ID, Role: rbac.RoleCollectorCentral}
	_, err = svc.SetActive(ctx, models.Actor{UserID: cust.ID, Role: rbac.RoleCustomer}, budi.ID, false)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.SetActive(ctx, dispatcher, cici.ID, false)
	require.ErrorIs(t, err, apperr.ErrConflict)
	_, err = svc.SetActive(ctx, dispatcher, cust.ID, false)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	u, err := svc.SetActive(ctx, dispatcher, budi.ID, false)
	require.NoError(t, err)
	require.False(t, u.Active)

	inactive := q
	inactive.Status = FilterInactive
	rows, _, _, err = svc.List(ctx, inactive, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "budi", rows[0].Name)

	opts, err := svc.Options(ctx)
	require.NoError(t, err)
	require.Len(t, opts, 2)
	require.Equal(t, "cici", opts[1].Name)
	require.Equal(t, 1, opts[1].ActiveTasks)

	search := q
	search.Search = "AND"
	rows, _, _, err = svc.List(ctx, search, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
