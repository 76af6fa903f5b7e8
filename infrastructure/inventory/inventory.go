// Package inventory derives per-unit waste stock from completed drop requests and transfers.
package inventory

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/models"
)

// StockRow is the net weight of one waste type held by a unit.
type StockRow struct {
	WasteTypeID  int64  `bun:"waste_type_id" json:"waste_type_id"`
	TypeName     string `bun:"type_name" json:"type_name"`
	CategoryName string `bun:"category_name" json:"category_name"`
	Grams        int64  `bun:"grams" json:"grams"`
	PricePerKg   int64  `bun:"price_per_kg" json:"price_per_kg"`
	Value        int64  `bun:"-" json:"value"`
}

// Stock is a unit's inventory with totals.
type Stock struct {
	UnitID     int64      `json:"unit_id"`
	Rows       []StockRow `json:"rows"`
	TotalGrams int64      `json:"total_grams"`
	TotalValue int64      `json:"total_value"`
}

const stockSQL = `
WITH movements AS (
  SELECT i.waste_type_id AS type_id, COALESCE(i.actual_grams, 0) AS grams
  FROM drop_request_items i
  JOIN drop_requests dr ON dr.id = i.drop_request_id
  WHERE dr.unit_id = ?0 AND dr.status = 'completed'
  UNION ALL
  SELECT ti.waste_type_id, ti.grams
  FROM transfer_request_items ti
  JOIN transfer_requests tr ON tr.id = ti.transfer_request_id
  WHERE tr.destination_unit_id = ?0 AND tr.status = 'received'
  UNION ALL
  SELECT ti.waste_type_id, -ti.grams
  FROM transfer_request_items ti
  JOIN transfer_requests tr ON tr.id = ti.transfer_request_id
  WHERE tr.source_unit_id = ?0 AND tr.status IN ('in_transit', 'received')
)
SELECT m.type_id AS waste_type_id,
       MAX(wt.name) AS type_name,
       MAX(wc.name) AS category_name,
       SUM(m.grams) AS grams,
       MAX(COALESCE(wp.price_per_kg, wt.base_price_per_kg)) AS price_per_kg
FROM movements m
JOIN waste_types wt ON wt.id = m.type_id
JOIN waste_categories wc ON wc.id = wt.category_id
LEFT JOIN waste_prices wp ON wp.waste_type_id = wt.id AND wp.unit_id = ?0
GROUP BY m.type_id
HAVING SUM(m.grams) <> 0
ORDER BY MAX(wc.name) COLLATE NOCASE ASC, MAX(wt.name) COLLATE NOCASE ASC`

// StockByType computes unitID's stock inside tx.
func StockByType(ctx context.Context, tx bun.Tx, unitID int64) (Stock, error) {
	st := Stock{UnitID: unitID, Rows: make([]StockRow, 0)}
	if err := tx.NewRaw(stockSQL, unitID).Scan(ctx, &st.Rows); err != nil {
		return st, err
	}
	for i := range st.Rows {
		value, err := catalog.ValueOf(st.Rows[i].Grams, st.Rows[i].PricePerKg)
		if err != nil {
			return st, err
		}
		st.Rows[i].Value = value
		st.TotalGrams += st.Rows[i].Grams
		st.TotalValue += st.Rows[i].Value
	}
	return st, nil
}

// Grams maps waste type id to stock grams.
func (s Stock) Grams() map[int64]int64 {
	out := make(map[int64]int64, len(s.Rows))
	for _, r := range s.Rows {
		out[r.WasteTypeID] = r.Grams
	}
	return out
}

// Reserved sums grams committed by unitID's pending or approved outgoing transfers, excluding excludeTransferID.
func Reserved(ctx context.Context, tx bun.Tx, unitID, excludeTransferID int64) (map[int64]int64, error) {
	rows := make([]struct {
		TypeID int64 `bun:"type_id"`
		Grams  int64 `bun:"grams"`
	}, 0)
	err := tx.NewRaw(`
SELECT ti.waste_type_id AS type_id, SUM(ti.grams) AS grams
FROM transfer_request_items ti
JOIN transfer_requests tr ON tr.id = ti.transfer_request_id
WHERE tr.source_unit_id = ? AND tr.status IN ('pending', 'approved') AND tr.id <> ?
GROUP BY ti.waste_type_id`, unitID, excludeTransferID).Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int64, len(rows))
	for _, r := range rows {
		out[r.TypeID] = r.Grams
	}
	return out, nil
}

// Available returns stock minus reservations per waste type.
func Available(ctx context.Context, tx bun.Tx, unitID, excludeTransferID int64) (map[int64]int64, error) {
	st, err := StockByType(ctx, tx, unitID)
	if err != nil {
		return nil, err
	}
	reserved, err := Reserved(ctx, tx, unitID, excludeTransferID)
	if err != nil {
		return nil, err
	}
	avail := st.Grams()
	for typeID, g := range reserved {
		avail[typeID] -= g
	}
	return avail, nil
}

type Service struct {
	db *sqlite.DB
}

func New(db *sqlite.DB) *Service {
	return &Service{db: db}
}

// Stock returns unitID's inventory if actor may see it.
func (s *Service) Stock(ctx context.Context, actor models.Actor, unitID int64) (Stock, error) {
	var st Stock
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		unit, err := orgunit.LoadByIDTx(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if !orgunit.IsWastebank(unit.Kind) {
			return apperr.Validation("%s does not hold stock", unit.Name)
		}
		if !canView(actor, unitID) {
			return fmt.Errorf("unit %d stock: %w", unitID, apperr.ErrForbidden)
		}
		st, err = StockByType(ctx, tx, unitID)
		return err
	})
	return st, err
}

func canView(actor models.Actor, unitID int64) bool {
	switch actor.Role {
	case rbac.RoleAdmin, rbac.RoleWastebankCentral:
		return true
	case rbac.RoleWastebankUnit:
		return actor.InUnit(unitID)
	}
	return false
}
