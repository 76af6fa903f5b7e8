package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/inventory"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/infrastructure/testdb"
	"wasteboard/models"
)

type fixture struct {
	db       *sqlite.DB
	svc      *Service
	src      models.Unit
	dst      models.Unit
	industry models.Unit
	srcStaff models.Actor
	dstStaff models.Actor
	central  models.Actor
	pet      models.WasteType
}

// newFixture stocks src with 5000 g of PET through a received drop-off.
func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testdb.Open(t)
	ctx := context.Background()

	centralUnit := testdb.Unit(t, db, "Central", orgunit.KindWastebankCentral)
	src := testdb.Unit(t, db, "Melati", orgunit.KindWastebankUnit)
	dst := testdb.Unit(t, db, "Mawar", orgunit.KindWastebankUnit)
	industry := testdb.Unit(t, db, "Plastik Jaya", orgunit.KindIndustry)

	srcStaff := testdb.User(t, db, "melati", rbac.RoleWastebankUnit, &src.ID)
	dstStaff := testdb.User(t, db, "mawar", rbac.RoleWastebankUnit, &dst.ID)
	central := testdb.User(t, db, "central", rbac.RoleWastebankCentral, &centralUnit.ID)
	cust := testdb.User(t, db, "cust", rbac.RoleCustomer, nil)

	cat := testdb.Category(t, db, "Plastic")
	pet := testdb.WasteType(t, db, cat.ID, "PET", 3000)

	f := fixture{
		db:       db,
		svc:      New(db, nil),
		src:      src,
		dst:      dst,
		industry: industry,
		srcStaff: models.Actor{UserID: srcStaff.ID, Role: rbac.RoleWastebankUnit, UnitID: &src.ID},
		dstStaff: models.Actor{UserID: dstStaff.ID, Role: rbac.RoleWastebankUnit, UnitID: &dst.ID},
		central:  models.Actor{UserID: central.ID, Role: rbac.RoleWastebankCentral, UnitID: &centralUnit.ID},
		pet:      pet,
	}

	drops := dropreq.New(db, nil)
	customer := models.Actor{UserID: cust.ID, Role: rbac.RoleCustomer}
	dr, err := drops.Create(ctx, customer, dropreq.CreateInput{
		UnitID:        src.ID,
		DeliveryType:  dropreq.DeliveryDropoff,
		ScheduledDate: time.Now().UTC(),
		Items:         []dropreq.ItemInput{{WasteTypeID: pet.ID, EstimatedGrams: 5000}},
	})
	require.NoError(t, err)
	d, err := drops.LoadDetail(ctx, f.srcStaff, dr.ID)
	require.NoError(t, err)
	require.NoError(t, drops.Receive(ctx, f.srcStaff, dr.ID, dropreq.Weights{d.Items[0].ID: 5000}))
	return f
}

func (f fixture) stock(t *testing.T, unitID int64) int64 {
	t.Helper()
	st, err := inventory.New(f.db).Stock(context.Background(), f.central, unitID)
	require.NoError(t, err)
	return st.Grams()[f.pet.ID]
}

func TestCreateValidatesUnitsAndStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	items := []ItemInput{{WasteTypeID: f.pet.ID, Grams: 1000}}

	_, err := f.svc.Create(ctx, f.srcStaff, CreateInput{SourceUnitID: f.src.ID, DestinationUnitID: f.src.ID, Items: items})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.Create(ctx, f.srcStaff, CreateInput{SourceUnitID: f.industry.ID, DestinationUnitID: f.src.ID, Items: items})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.Create(ctx, f.dstStaff, CreateInput{SourceUnitID: f.src.ID, DestinationUnitID: f.dst.ID, Items: items})
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.Create(ctx, f.srcStaff, CreateInput{SourceUnitID: f.src.ID, DestinationUnitID: f.dst.ID, Items: []ItemInput{{WasteTypeID: f.pet.ID, Grams: 6000}}})
	require.ErrorIs(t, err, apperr.ErrValidation)
	require.Contains(t, err.Error(), "5000 g available")
	_, err = f.svc.Create(ctx, f.srcStaff, CreateInput{SourceUnitID: f.src.ID, DestinationUnitID: f.dst.ID, Items: []ItemInput{{WasteTypeID: f.pet.ID, Grams: catalog.MaxGrams + 1}}})
	require.ErrorIs(t, err, apperr.ErrValidation)
	require.Contains(t, err.Error(), "cannot exceed")

	first, err := f.svc.Create(ctx, f.srcStaff, CreateInput{SourceUnitID: f.src.ID, DestinationUnitID: f.dst.ID, Items: []ItemInput{{WasteTypeID: f.pet.ID, Grams: 3000}}})
	require.NoError(t, err)
	require.Equal(t, StatusPending, first.Status)

	// 3000 g is reserved by the pending transfer
	_, err = f.svc.Create(ctx, f.srcStaff, CreateInput{SourceUnitID: f.src.ID, DestinationUnitID: f.industry.ID, Items: []ItemInput{{WasteTypeID: f.pet.ID, Grams: 2500}}})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.Create(ctx, f.srcStaff, CreateInput{SourceUnitID: f.src.ID, DestinationUnitID: f.industry.ID, Items: []ItemInput{{WasteTypeID: f.pet.ID, Grams: 2000}}})
	require.NoError(t, err)
}

func TestLifecycleMovesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tr, err := f.svc.Create(ctx, f.srcStaff, CreateInput{SourceUnitID: f.src.ID, DestinationUnitID: f.dst.ID, Items: []ItemInput{{WasteTypeID: f.pet.ID, Grams: 2000}}})
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Ship(ctx, f.srcStaff, tr.ID), apperr.ErrInvalidTransition)
	require.ErrorIs(t, f.svc.Approve(ctx, f.srcStaff, tr.ID), apperr.ErrForbidden)
	require.NoError(t, f.svc.Approve(ctx, f.central, tr.ID))
	require.ErrorIs(t, f.svc.Approve(ctx, f.central, tr.ID), apperr.ErrInvalidTransition)

	require.Equal(t, int64(5000), f.stock(t, f.src.ID))
	require.ErrorIs(t, f.svc.Ship(ctx, f.dstStaff, tr.ID), apperr.ErrForbidden)
	require.NoError(t, f.svc.Ship(ctx, f.srcStaff, tr.ID))
	require.Equal(t, int64(3000), f.stock(t, f.src.ID))
	require.Equal(t, int64(0), f.stock(t, f.dst.ID))

	require.ErrorIs(t, f.svc.Cancel(ctx, f.srcStaff, tr.ID), apperr.ErrInvalidTransition)
	require.ErrorIs(t, f.svc.Receive(ctx, f.srcStaff, tr.ID), apperr.ErrForbidden)
	require.NoError(t, f.svc.Receive(ctx, f.dstStaff, tr.ID))
	require.Equal(t, int64(2000), f.stock(t, f.dst.ID))

	d, err := f.svc.LoadDetail(ctx, f.dstStaff, tr.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, d.Status)
	require.Equal(t, "Mawar", d.DestinationName)
	require.Len(t, d.Items, 1)
}

func TestIndustryReceiveByCentralAndReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sale, err := f.svc.Create(ctx, f.srcStaff, CreateInput{SourceUnitID: f.src.ID, DestinationUnitID: f.industry.ID, Items: []ItemInput{{WasteTypeID: f.pet.ID, Grams: 1000}}})
	require.NoError(t, err)
	require.NoError(t, f.svc.Approve(ctx, f.central, sale.ID))
	require.NoError(t, f.svc.Ship(ctx, f.central, sale.ID))
	require.NoError(t, f.svc.Receive(ctx, f.central, sale.ID))
	require.Equal(t, int64(4000), f.stock(t, f.src.ID))

	other, err := f.svc.Create(ctx, f.srcStaff, CreateInput{SourceUnitID: f.src.ID, DestinationUnitID: f.dst.ID, Items: []ItemInput{{WasteTypeID: f.pet.ID, Grams: 1000}}})
	require.NoError(t, err)
	require.ErrorIs(t, f.svc.Reject(ctx, f.central, other.ID, " "), apperr.ErrValidation)
	require.NoError(t, f.svc.Reject(ctx, f.central, other.ID, "route closed"))
	require.ErrorIs(t, f.svc.Cancel(ctx, f.srcStaff, other.ID), apperr.ErrInvalidTransition)

	third, err := f.svc.Create(ctx, f.srcStaff, CreateInput{SourceUnitID: f.src.ID, DestinationUnitID: f.dst.ID, Items: []ItemInput{{WasteTypeID: f.pet.ID, Grams: 500}}})
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(ctx, f.srcStaff, third.ID))

	q := listing.Query{}.Normalize(listing.DefaultLimits)
	rows, total, err := f.svc.List(ctx, f.dstStaff, q)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, rows, 2)

	_, total, err = f.svc.List(ctx, f.central, q.WithStatus(StatusRejected))
	require.NoError(t, err)
	require.Equal(t, 1, total)

	search := q
	search.Search = "jaya"
	rows, total, err = f.svc.List(ctx, f.central, search)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, orgunit.KindIndustry, rows[0].DestinationKind)

	sum, err := f.svc.Summary(ctx, f.srcStaff, q)
	require.NoError(t, err)
	require.Equal(t, 3, sum.Total)
	require.Equal(t, 1, sum.Count(StatusReceived))
	require.Equal(t, 1, sum.Count(StatusRejected))
	require.Equal(t, 1, sum.Count(StatusCancelled))
	require.Equal(t, int64(1000), sum.MovedGrams)

	_, err = f.svc.LoadDetail(ctx, f.dstStaff, sale.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestShipRechecksStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, f.srcStaff, CreateInput{SourceUnitID: f.src.ID, DestinationUnitID: f.dst.ID, Items: []ItemInput{{WasteTypeID: f.pet.ID, Grams: 4000}}})
	require.NoError(t, err)
	require.NoError(t, f.svc.Approve(ctx, f.central, a.ID))

	// a weight correction lowers stock behind the approved transfer
	_, err = f.db.W.NewRaw(`UPDATE drop_request_items SET actual_grams = 3000`).Exec(ctx)
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Ship(ctx, f.srcStaff, a.ID), apperr.ErrValidation)
}
