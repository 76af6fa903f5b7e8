package stock

import (
	"context"
	"errors"
	"strings"
	"testing"

	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/audit"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/testdb"
	"wasteboard/models"
)

func TestImportPricesCSV_InvalidHeader(t *testing.T) {
	db := testdb.Open(t)
	cat := catalog.New(db, audit.NewService())
	_, err := ImportPricesCSV(context.Background(), cat, models.Actor{Role: rbac.RoleAdmin}, 1, strings.NewReader("sku,description\nA,Alpha\n"))
	if !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("expected invalid header error, got %v", err)
	}
}

func TestImportPricesCSV_UpdatesAndCounts(t *testing.T) {
	db := testdb.Open(t)
	cat := catalog.New(db, audit.NewService())
	unit := testdb.Unit(t, db, "Melati", orgunit.KindWastebankUnit)
	staff := testdb.User(t, db, "staff", rbac.RoleWastebankUnit, &unit.ID)
	plastic := testdb.Category(t, db, "Plastic")
	pet := testdb.WasteType(t, db, plastic.ID, "PET bottles", 3000)
	hdpe := testdb.WasteType(t, db, plastic.ID, "HDPE", 2500)
	testdb.Price(t, db, unit.ID, hdpe.ID, 2700, staff.ID)
	actor := models.Actor{UserID: staff.ID, Role: rbac.RoleWastebankUnit, UnitID: &unit.ID}

	csvData := "waste_type,price_per_kg\n" +
		"pet bottles,3.500\n" +
		"HDPE,2700\n" +
		"Glass,100\n" +
		"PET bottles,abc\n" +
		"onlyname\n"
	summary, err := ImportPricesCSV(context.Background(), cat, actor, unit.ID, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if summary.Updated != 1 || summary.Unchanged != 1 || summary.Errors != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	table, err := cat.PriceTable(context.Background(), unit.ID)
	if err != nil {
		t.Fatalf("price table: %v", err)
	}
	for _, row := range table {
		if row.ID == pet.ID && (row.PricePerKg != 3500 || !row.Overridden) {
			t.Fatalf("PET price not imported: %+v", row)
		}
	}
}

func TestImportPricesCSV_RejectsOtherUnit(t *testing.T) {
	db := testdb.Open(t)
	cat := catalog.New(db, audit.NewService())
	unit := testdb.Unit(t, db, "Melati", orgunit.KindWastebankUnit)
	other := testdb.Unit(t, db, "Mawar", orgunit.KindWastebankUnit)
	plastic := testdb.Category(t, db, "Plastic")
	testdb.WasteType(t, db, plastic.ID, "PET bottles", 3000)
	actor := models.Actor{UserID: 9, Role: rbac.RoleWastebankUnit, UnitID: &other.ID}

	_, err := ImportPricesCSV(context.Background(), cat, actor, unit.ID, strings.NewReader("waste_type,price_per_kg\nPET bottles,10\n"))
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
