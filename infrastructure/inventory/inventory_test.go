package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/testdb"
	"wasteboard/models"
)

func TestStockNetsDropsAndTransfers(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	src := testdb.Unit(t, db, "Melati", orgunit.KindWastebankUnit)
	dst := testdb.Unit(t, db, "Mawar", orgunit.KindWastebankUnit)
	cust := testdb.User(t, db, "cust", rbac.RoleCustomer, nil)
	staff := testdb.User(t, db, "staff", rbac.RoleWastebankUnit, &src.ID)
	cat := testdb.Category(t, db, "Metal")
	alu := testdb.WasteType(t, db, cat.ID, "Aluminium", 12000)
	testdb.Price(t, db, src.ID, alu.ID, 15000, staff.ID)

	exec := func(q string, args ...any) {
		t.Helper()
		_, err := db.W.NewRaw(q, args...).Exec(ctx)
		require.NoError(t, err)
	}
	exec(`INSERT INTO drop_requests (id, reference, customer_id, unit_id, delivery_type, scheduled_date, status) VALUES (1, 'DR-1', ?, ?, 'dropoff', '2026-10-01', 'completed')`, cust.ID, src.ID)
	exec(`INSERT INTO drop_request_items (drop_request_id, waste_type_id, estimated_grams, actual_grams) VALUES (1, ?, 1000, 1500)`, alu.ID)
	exec(`INSERT INTO drop_requests (id, reference, customer_id, unit_id, delivery_type, scheduled_date, status) VALUES (2, 'DR-2', ?, ?, 'dropoff', '2026-10-01', 'pending')`, cust.ID, src.ID)
	exec(`INSERT INTO drop_request_items (drop_request_id, waste_type_id, estimated_grams) VALUES (2, ?, 9000)`, alu.ID)
	exec(`INSERT INTO transfer_requests (id, reference, source_unit_id, destination_unit_id, status, requested_by) VALUES (1, 'TR-1', ?, ?, 'in_transit', ?)`, src.ID, dst.ID, staff.ID)
	exec(`INSERT INTO transfer_request_items (transfer_request_id, waste_type_id, grams) VALUES (1, ?, 400)`, alu.ID)
	exec(`INSERT INTO transfer_requests (id, reference, source_unit_id, destination_unit_id, status, requested_by) VALUES (2, 'TR-2', ?, ?, 'approved', ?)`, src.ID, dst.ID, staff.ID)
	exec(`INSERT INTO transfer_request_items (transfer_request_id, waste_type_id, grams) VALUES (2, ?, 300)`, alu.ID)

	svc := New(db)
	actor := models.Actor{UserID: staff.ID, Role: rbac.RoleWastebankUnit, UnitID: &src.ID}
	st, err := svc.Stock(ctx, actor, src.ID)
	require.NoError(t, err)
	require.Len(t, st.Rows, 1)
	require.Equal(t, int64(1100), st.Rows[0].Grams)
	require.Equal(t, int64(15000), st.Rows[0].PricePerKg)
	require.Equal(t, int64(16500), st.TotalValue)

	_, err = svc.Stock(ctx, actor, dst.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	admin := models.Actor{Role: rbac.RoleAdmin}
	// in transit stock belongs to nobody until received
	dstStock, err := svc.Stock(ctx, admin, dst.ID)
	require.NoError(t, err)
	require.Empty(t, dstStock.Rows)

	err = db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		avail, err := Available(ctx, tx, src.ID, 0)
		require.NoError(t, err)
		require.Equal(t, int64(800), avail[alu.ID])

		avail, err = Available(ctx, tx, src.ID, 2)
		require.NoError(t, err)
		require.Equal(t, int64(1100), avail[alu.ID])
		return nil
	})
	require.NoError(t, err)
}

func TestStockRejectsNonWastebank(t *testing.T) {
	db := testdb.Open(t)
	buyer := testdb.Unit(t, db, "Buyer", orgunit.KindIndustry)
	_, err := New(db).Stock(context.Background(), models.Actor{Role: rbac.RoleAdmin}, buyer.ID)
	require.ErrorIs(t, err, apperr.ErrValidation)
}
