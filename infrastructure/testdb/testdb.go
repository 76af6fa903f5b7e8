// Package testdb opens migrated throwaway databases and seeds rows for package tests.
package testdb

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/uptrace/bun"

	"wasteboard/infrastructure/sqlite"
	"wasteboard/models"
)

// Open returns a migrated database in t.TempDir, closed on cleanup.
func Open(t testing.TB) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := sqlite.ApplyMigrations(context.Background(), db, MigrationsDir(t)); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

// MigrationsDir resolves infrastructure/sqlite/migrations from this source file.
func MigrationsDir(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	return filepath.Join(filepath.Dir(file), "..", "sqlite", "migrations")
}

func insert(t testing.TB, db *sqlite.DB, model any) {
	t.Helper()
	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(model).Exec(ctx)
		return err
	})
	if err != nil {
		t.Fatalf("insert %T: %v", model, err)
	}
}

func Unit(t testing.TB, db *sqlite.DB, name, kind string) models.Unit {
	t.Helper()
	u := models.Unit{Name: name, Code: name + "-" + kind, Kind: kind}
	insert(t, db, &u)
	return u
}

// User inserts an active user. The password hash is a placeholder, so these users cannot log in.
func User(t testing.TB, db *sqlite.DB, username, role string, unitID *int64) models.User {
	t.Helper()
	u := models.User{Username: username, PasswordHash: "x", Role: role, UnitID: unitID, DisplayName: username, Active: true}
	insert(t, db, &u)
	return u
}

func Category(t testing.TB, db *sqlite.DB, name string) models.WasteCategory {
	t.Helper()
	c := models.WasteCategory{Name: name}
	insert(t, db, &c)
	return c
}

func WasteType(t testing.TB, db *sqlite.DB, categoryID int64, name string, basePricePerKg int64) models.WasteType {
	t.Helper()
	wt := models.WasteType{CategoryID: categoryID, Name: name, BasePricePerKg: basePricePerKg, Active: true}
	insert(t, db, &wt)
	return wt
}

func Price(t testing.TB, db *sqlite.DB, unitID, typeID, pricePerKg, by int64) {
	t.Helper()
	p := models.WastePrice{UnitID: unitID, WasteTypeID: typeID, PricePerKg: pricePerKg, UpdatedBy: by}
	insert(t, db, &p)
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}
