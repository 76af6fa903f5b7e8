// Package catalog manages waste categories, waste types and per-unit price overrides.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/audit"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/models"
)

type Service struct {
	db    *sqlite.DB
	audit *audit.Service
}

func New(db *sqlite.DB, auditSvc *audit.Service) *Service {
	if auditSvc == nil {
		auditSvc = audit.NewService()
	}
	return &Service{db: db, audit: auditSvc}
}

// TypeRow is a waste type joined with its category name.
type TypeRow struct {
	ID             int64  `bun:"id" json:"id"`
	CategoryID     int64  `bun:"category_id" json:"category_id"`
	CategoryName   string `bun:"category_name" json:"category"`
	Name           string `bun:"name" json:"name"`
	BasePricePerKg int64  `bun:"base_price_per_kg" json:"base_price_per_kg"`
	Active         bool   `bun:"active" json:"active"`
}

// PriceRow is the effective price of one type at one unit.
type PriceRow struct {
	TypeRow
	PricePerKg int64 `bun:"price_per_kg" json:"price_per_kg"`
	Overridden bool  `bun:"overridden" json:"overridden"`
}

const (
	// MaxGrams bounds a single weighed or requested line (one thousand tonnes).
	MaxGrams = 1_000_000_000
	// MaxPricePerKg bounds base prices and overrides.
	MaxPricePerKg = 1_000_000_000
)

// ValueOf prices weightGrams at pricePerKg, rounding half up.
// Products that do not fit in an int64 are reported as a validation error.
func ValueOf(weightGrams, pricePerKg int64) (int64, error) {
	if weightGrams <= 0 || pricePerKg <= 0 {
		return 0, nil
	}
	hi, lo := bits.Mul64(uint64(weightGrams), uint64(pricePerKg))
	if hi != 0 || lo > math.MaxInt64-500 {
		return 0, apperr.Validation("value of %d g at %d per kg is out of range", weightGrams, pricePerKg)
	}
	return int64(lo+500) / 1000, nil
}

func checkPrice(pricePerKg int64) error {
	if pricePerKg < 0 {
		return apperr.Validation("price cannot be negative")
	}
	if pricePerKg > MaxPricePerKg {
		return apperr.Validation("price cannot exceed %d per kg", MaxPricePerKg)
	}
	return nil
}

func (s *Service) ListCategories(ctx context.Context) ([]models.WasteCategory, error) {
	cats := make([]models.WasteCategory, 0)
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&cats).OrderExpr("name COLLATE NOCASE ASC").Scan(ctx)
	})
	return cats, err
}

func (s *Service) CreateCategory(ctx context.Context, actor models.Actor, name string) (models.WasteCategory, error) {
	var cat models.WasteCategory
	if !canManageCatalog(actor) {
		return cat, apperr.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return cat, apperr.Validation("category name is required")
	}
	err := s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		cat = models.WasteCategory{Name: name}
		if _, err := tx.NewInsert().Model(&cat).Exec(ctx); err != nil {
			if sqlite.IsUniqueViolation(err) {
				return fmt.Errorf("%w: category %q already exists", apperr.ErrConflict, name)
			}
			return err
		}
		return s.audit.WriteID(ctx, tx, actor.UserID, "catalog.category.create", "waste_category", cat.ID, nil, cat)
	})
	return cat, err
}

// ListTypes returns types, optionally restricted to one category, inactive ones included.
func (s *Service) ListTypes(ctx context.Context, categoryID int64) ([]TypeRow, error) {
	rows := make([]TypeRow, 0)
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		q := `
SELECT wt.id, wt.category_id, wc.name AS category_name, wt.name, wt.base_price_per_kg, wt.active
FROM waste_types wt
JOIN waste_categories wc ON wc.id = wt.category_id`
		args := []any{}
		if categoryID > 0 {
			q += ` WHERE wt.category_id = ?`
			args = append(args, categoryID)
		}
		q += ` ORDER BY wc.name COLLATE NOCASE ASC, wt.name COLLATE NOCASE ASC`
		return tx.NewRaw(q, args...).Scan(ctx, &rows)
	})
	return rows, err
}

type TypeInput struct {
	CategoryID     int64
	Name           string
	BasePricePerKg int64
}

func (s *Service) CreateType(ctx context.Context, actor models.Actor, in TypeInput) (models.WasteType, error) {
	var wt models.WasteType
	if !canManageCatalog(actor) {
		return wt, apperr.ErrForbidden
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return wt, apperr.Validation("waste type name is required")
	}
	if err := checkPrice(in.BasePricePerKg); err != nil {
		return wt, err
	}
	err := s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var cats int
		if err := tx.NewRaw(`SELECT COUNT(1) FROM waste_categories WHERE id = ?`, in.CategoryID).Scan(ctx, &cats); err != nil {
			return err
		}
		if cats == 0 {
			return apperr.Validation("category not found")
		}
		wt = models.WasteType{CategoryID: in.CategoryID, Name: name, BasePricePerKg: in.BasePricePerKg, Active: true}
		if _, err := tx.NewInsert().Model(&wt).Exec(ctx); err != nil {
			if sqlite.IsUniqueViolation(err) {
				return fmt.Errorf("%w: waste type %q already exists in this category", apperr.ErrConflict, name)
			}
			return err
		}
		return s.audit.WriteID(ctx, tx, actor.UserID, "catalog.type.create", "waste_type", wt.ID, nil, wt)
	})
	return wt, err
}

// UpdateType changes a type's base price and active flag.
func (s *Service) UpdateType(ctx context.Context, actor models.Actor, typeID, basePricePerKg int64, active bool) error {
	if !canManageCatalog(actor) {
		return apperr.ErrForbidden
	}
	if err := checkPrice(basePricePerKg); err != nil {
		return err
	}
	return s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var before models.WasteType
		err := tx.NewSelect().Model(&before).Where("id = ?", typeID).Limit(1).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("waste type %d: %w", typeID, apperr.ErrNotFound)
		}
		if err != nil {
			return err
		}
		after := before
		after.BasePricePerKg = basePricePerKg
		after.Active = active
		after.UpdatedAt = time.Now().UTC()
		if _, err := tx.NewUpdate().Model(&after).Column("base_price_per_kg", "active", "updated_at").WherePK().Exec(ctx); err != nil {
			return err
		}
		return s.audit.WriteID(ctx, tx, actor.UserID, "catalog.type.update", "waste_type", typeID, before, after)
	})
}

// PriceTable lists active types with the price in effect at unitID.
func (s *Service) PriceTable(ctx context.Context, unitID int64) ([]PriceRow, error) {
	rows := make([]PriceRow, 0)
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		rows, err = PriceTableTx(ctx, tx, unitID)
		return err
	})
	return rows, err
}

// PriceTableTx is PriceTable inside an existing transaction.
func PriceTableTx(ctx context.Context, tx bun.Tx, unitID int64) ([]PriceRow, error) {
	rows := make([]PriceRow, 0)
	err := tx.NewRaw(`
SELECT wt.id, wt.category_id, wc.name AS category_name, wt.name, wt.base_price_per_kg, wt.active,
       COALESCE(wp.price_per_kg, wt.base_price_per_kg) AS price_per_kg,
       CASE WHEN wp.id IS NULL THEN 0 ELSE 1 END AS overridden
FROM waste_types wt
JOIN waste_categories wc ON wc.id = wt.category_id
LEFT JOIN waste_prices wp ON wp.waste_type_id = wt.id AND wp.unit_id = ?
WHERE wt.active = 1
ORDER BY wc.name COLLATE NOCASE ASC, wt.name COLLATE NOCASE ASC`, unitID).Scan(ctx, &rows)
	return rows, err
}

// EffectivePrices maps waste type id to the price per kg in effect at unitID, inactive types included.
func EffectivePrices(ctx context.Context, tx bun.Tx, unitID int64) (map[int64]int64, error) {
	rows := make([]struct {
		ID    int64 `bun:"id"`
		Price int64 `bun:"price"`
	}, 0)
	err := tx.NewRaw(`
SELECT wt.id, COALESCE(wp.price_per_kg, wt.base_price_per_kg) AS price
FROM waste_types wt
LEFT JOIN waste_prices wp ON wp.waste_type_id = wt.id AND wp.unit_id = ?`, unitID).Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int64, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Price
	}
	return out, nil
}

// SetPrice stores an override of typeID's price at unitID.
func (s *Service) SetPrice(ctx context.Context, actor models.Actor, unitID, typeID, pricePerKg int64) error {
	if err := checkPrice(pricePerKg); err != nil {
		return err
	}
	return s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := checkPriceScope(ctx, tx, actor, unitID); err != nil {
			return err
		}
		var typeCount int
		if err := tx.NewRaw(`SELECT COUNT(1) FROM waste_types WHERE id = ?`, typeID).Scan(ctx, &typeCount); err != nil {
			return err
		}
		if typeCount == 0 {
			return fmt.Errorf("waste type %d: %w", typeID, apperr.ErrNotFound)
		}

		var before *models.WastePrice
		var existing models.WastePrice
		err := tx.NewSelect().Model(&existing).Where("unit_id = ? AND waste_type_id = ?", unitID, typeID).Limit(1).Scan(ctx)
		switch {
		case err == nil:
			before = &existing
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		after := models.WastePrice{UnitID: unitID, WasteTypeID: typeID, PricePerKg: pricePerKg, UpdatedBy: actor.UserID, UpdatedAt: time.Now().UTC()}
		if _, err := tx.NewInsert().Model(&after).
			On("CONFLICT (unit_id, waste_type_id) DO UPDATE").
			Set("price_per_kg = EXCLUDED.price_per_kg").
			Set("updated_by = EXCLUDED.updated_by").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return err
		}
		return s.audit.Write(ctx, tx, actor.UserID, "price.set", "waste_price", fmt.Sprintf("%d:%d", unitID, typeID), before, after)
	})
}

// ResetPrice removes unitID's override so the base price applies again.
func (s *Service) ResetPrice(ctx context.Context, actor models.Actor, unitID, typeID int64) error {
	return s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := checkPriceScope(ctx, tx, actor, unitID); err != nil {
			return err
		}
		var existing models.WastePrice
		err := tx.NewSelect().Model(&existing).Where("unit_id = ? AND waste_type_id = ?", unitID, typeID).Limit(1).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.WastePrice)(nil)).Where("id = ?", existing.ID).Exec(ctx); err != nil {
			return err
		}
		return s.audit.Write(ctx, tx, actor.UserID, "price.reset", "waste_price", fmt.Sprintf("%d:%d", unitID, typeID), existing, nil)
	})
}

func checkPriceScope(ctx context.Context, tx bun.Tx, actor models.Actor, unitID int64) error {
	unit, err := orgunit.LoadByIDTx(ctx, tx, unitID)
	if err != nil {
		return err
	}
	if !orgunit.IsWastebank(unit.Kind) {
		return apperr.Validation("prices apply to waste bank units only")
	}
	switch actor.Role {
	case rbac.RoleAdmin, rbac.RoleWastebankCentral:
		return nil
	case rbac.RoleWastebankUnit:
		if actor.InUnit(unitID) {
			return nil
		}
	}
	return apperr.ErrForbidden
}

func canManageCatalog(actor models.Actor) bool {
	return actor.Role == rbac.RoleAdmin || actor.Role == rbac.RoleWastebankCentral
}
