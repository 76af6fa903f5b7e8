package dropreq

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/rbac"
	"wasteboard/models"
)

const rowSelect = `
SELECT dr.id, dr.reference, dr.customer_id,
       COALESCE(NULLIF(cu.display_name, ''), cu.username) AS customer_name,
       dr.unit_id, un.name AS unit_name,
       dr.delivery_type, dr.pickup_address, dr.scheduled_date, dr.status,
       dr.assigned_collector_id,
       COALESCE(NULLIF(co.display_name, ''), co.username, '') AS collector_name,
       dr.rating, dr.created_at,
       (SELECT COUNT(1) FROM drop_request_items i WHERE i.drop_request_id = dr.id) AS item_count,
       COALESCE((SELECT SUM(i.estimated_grams) FROM drop_request_items i WHERE i.drop_request_id = dr.id), 0) AS estimated_grams,
       COALESCE((SELECT SUM(i.actual_grams) FROM drop_request_items i WHERE i.drop_request_id = dr.id), 0) AS actual_grams,
       COALESCE((SELECT SUM(i.value) FROM drop_request_items i WHERE i.drop_request_id = dr.id), 0) AS total_value
FROM drop_requests dr
JOIN users cu ON cu.id = dr.customer_id
JOIN units un ON un.id = dr.unit_id
LEFT JOIN users co ON co.id = dr.assigned_collector_id`

// whereClause builds the role scope plus filter predicates. withStatus=false drops the status filter for tab counts.
func whereClause(actor models.Actor, f Filter, withStatus bool) (string, []any) {
	where := make([]string, 0, 8)
	args := make([]any, 0, 8)

	switch actor.Role {
	case rbac.RoleCustomer:
		where = append(where, "dr.customer_id = ?")
		args = append(args, actor.UserID)
	case rbac.RoleWastebankUnit:
		if actor.UnitID == nil {
			where = append(where, "1 = 0")
		} else {
			where = append(where, "dr.unit_id = ?")
			args = append(args, *actor.UnitID)
		}
	case rbac.RoleCollectorUnit:
		where = append(where, "dr.assigned_collector_id = ?")
		args = append(args, actor.UserID)
	case rbac.RoleAdmin, rbac.RoleWastebankCentral, rbac.RoleCollectorCentral:
	default:
		where = append(where, "1 = 0")
	}

	if withStatus && f.Status != "" {
		where = append(where, "dr.status = ?")
		args = append(args, f.Status)
	}
	if f.From != nil {
		where = append(where, "dr.scheduled_date >= ?")
		args = append(args, *f.From)
	}
	if to := f.ToExclusive(); to != nil {
		where = append(where, "dr.scheduled_date < ?")
		args = append(args, *to)
	}
	if f.CategoryID > 0 {
		where = append(where, `EXISTS (SELECT 1 FROM drop_request_items fi JOIN waste_types ft ON ft.id = fi.waste_type_id WHERE fi.drop_request_id = dr.id AND ft.category_id = ?)`)
		args = append(args, f.CategoryID)
	}
	if f.UnitID > 0 {
		where = append(where, "dr.unit_id = ?")
		args = append(args, f.UnitID)
	}
	if f.Delivery != "" {
		where = append(where, "dr.delivery_type = ?")
		args = append(args, f.Delivery)
	}
	if f.Unassigned {
		where = append(where, "dr.assigned_collector_id IS NULL")
	}
	if f.Search != "" {
		like := listing.LikePattern(f.Search)
		where = append(where, `(LOWER(dr.reference) LIKE ? ESCAPE '\' OR LOWER(dr.pickup_address) LIKE ? ESCAPE '\' OR LOWER(cu.display_name) LIKE ? ESCAPE '\' OR LOWER(cu.username) LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like, like)
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func orderClause(sort string) string {
	switch sort {
	case "scheduled":
		return " ORDER BY dr.scheduled_date ASC, dr.id ASC"
	case "oldest":
		return " ORDER BY dr.created_at ASC, dr.id ASC"
	default:
		return " ORDER BY dr.created_at DESC, dr.id DESC"
	}
}

// List returns one page of requests visible to actor and the total match count.
func (s *Service) List(ctx context.Context, actor models.Actor, f Filter) ([]Row, int, error) {
	rows := make([]Row, 0)
	var total int
	clause, args := whereClause(actor, f, true)
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		countSQL := `SELECT COUNT(1) FROM drop_requests dr JOIN users cu ON cu.id = dr.customer_id` + clause
		if err := tx.NewRaw(countSQL, args...).Scan(ctx, &total); err != nil {
			return err
		}
		q := rowSelect + clause + orderClause(f.Sort) + ` LIMIT ? OFFSET ?`
		return tx.NewRaw(q, append(args, f.PageSize, f.Offset())...).Scan(ctx, &rows)
	})
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Summary aggregates every request matched by f regardless of f.Status.
func (s *Service) Summary(ctx context.Context, actor models.Actor, f Filter) (Summary, error) {
	sum := Summary{ByStatus: make(map[string]int, len(Statuses()))}
	clause, args := whereClause(actor, f, false)
	base := ` FROM drop_requests dr JOIN users cu ON cu.id = dr.customer_id` + clause
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		counts := make([]struct {
			Status string `bun:"status"`
			N      int    `bun:"n"`
		}, 0)
		if err := tx.NewRaw(`SELECT dr.status, COUNT(1) AS n`+base+` GROUP BY dr.status`, args...).Scan(ctx, &counts); err != nil {
			return err
		}
		for _, c := range counts {
			sum.ByStatus[c.Status] = c.N
			sum.Total += c.N
		}

		var totals struct {
			Grams int64 `bun:"grams"`
			Value int64 `bun:"value"`
		}
		totalsSQL := `SELECT COALESCE(SUM(i.actual_grams), 0) AS grams, COALESCE(SUM(i.value), 0) AS value
FROM drop_request_items i
WHERE i.drop_request_id IN (SELECT dr.id` + base + appendPredicate(clause, "dr.status = 'completed'") + `)`
		if err := tx.NewRaw(totalsSQL, args...).Scan(ctx, &totals); err != nil {
			return err
		}
		sum.CompletedGrams = totals.Grams
		sum.CompletedValue = totals.Value

		var rating struct {
			Avg sql.NullFloat64 `bun:"avg"`
			N   int             `bun:"n"`
		}
		ratingSQL := `SELECT AVG(dr.rating) AS avg, COUNT(dr.rating) AS n` + base
		if err := tx.NewRaw(ratingSQL, args...).Scan(ctx, &rating); err != nil {
			return err
		}
		if rating.Avg.Valid {
			sum.AverageRating = rating.Avg.Float64
		}
		sum.RatedCount = rating.N
		return nil
	})
	return sum, err
}

func appendPredicate(clause, pred string) string {
	if clause == "" {
		return " WHERE " + pred
	}
	return " AND " + pred
}

// LoadDetail returns a request with its items. Requests outside actor's scope read as not found.
func (s *Service) LoadDetail(ctx context.Context, actor models.Actor, id int64) (Detail, error) {
	var d Detail
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		dr, err := loadRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if !Visible(actor, dr) {
			return fmt.Errorf("drop request %d: %w", id, apperr.ErrNotFound)
		}
		if err := tx.NewRaw(rowSelect+` WHERE dr.id = ?`, id).Scan(ctx, &d.Row); err != nil {
			return err
		}
		d.Notes = dr.Notes
		d.CancelReason = dr.CancelReason
		d.RatingComment = dr.RatingComment
		d.AssignedAt = dr.AssignedAt
		d.StartedAt = dr.StartedAt
		d.CompletedAt = dr.CompletedAt
		d.CancelledAt = dr.CancelledAt
		d.Items, err = loadItemRows(ctx, tx, id)
		return err
	})
	return d, err
}

// Export returns every matching request and its items, unpaginated.
func (s *Service) Export(ctx context.Context, actor models.Actor, f Filter) ([]Row, []ExportItem, error) {
	rows := make([]Row, 0)
	items := make([]ExportItem, 0)
	clause, args := whereClause(actor, f, true)
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewRaw(rowSelect+clause+orderClause(f.Sort), args...).Scan(ctx, &rows); err != nil {
			return err
		}
		itemSQL := `
SELECT dr.reference, i.id, i.waste_type_id, wt.name AS type_name, wc.name AS category_name,
       i.estimated_grams, i.actual_grams, i.price_per_kg, i.value
FROM drop_request_items i
JOIN waste_types wt ON wt.id = i.waste_type_id
JOIN waste_categories wc ON wc.id = wt.category_id
JOIN drop_requests dr ON dr.id = i.drop_request_id
JOIN users cu ON cu.id = dr.customer_id` + clause + `
ORDER BY dr.id ASC, i.id ASC`
		return tx.NewRaw(itemSQL, args...).Scan(ctx, &items)
	})
	if err != nil {
		return nil, nil, err
	}
	return rows, items, nil
}

func loadRequest(ctx context.Context, tx bun.Tx, id int64) (models.DropRequest, error) {
	var dr models.DropRequest
	err := tx.NewSelect().Model(&dr).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return dr, fmt.Errorf("drop request %d: %w", id, apperr.ErrNotFound)
	}
	return dr, err
}

func loadItems(ctx context.Context, tx bun.Tx, id int64) ([]models.DropRequestItem, error) {
	items := make([]models.DropRequestItem, 0)
	err := tx.NewSelect().Model(&items).Where("drop_request_id = ?", id).OrderExpr("id ASC").Scan(ctx)
	return items, err
}

func loadItemRows(ctx context.Context, tx bun.Tx, id int64) ([]ItemRow, error) {
	rows := make([]ItemRow, 0)
	err := tx.NewRaw(`
SELECT i.id, i.waste_type_id, wt.name AS type_name, wc.name AS category_name,
       i.estimated_grams, i.actual_grams, i.price_per_kg, i.value
FROM drop_request_items i
JOIN waste_types wt ON wt.id = i.waste_type_id
JOIN waste_categories wc ON wc.id = wt.category_id
WHERE i.drop_request_id = ?
ORDER BY i.id ASC`, id).Scan(ctx, &rows)
	return rows, err
}
