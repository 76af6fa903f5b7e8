package transfer

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/rbac"
	"wasteboard/models"
)

const rowSelect = `
SELECT tr.id, tr.reference,
       tr.source_unit_id, su.name AS source_name,
       tr.destination_unit_id, du.name AS destination_name, du.kind AS destination_kind,
       tr.status, COALESCE(NULLIF(ru.display_name, ''), ru.username, '') AS requested_by_name,
       tr.notes, tr.reject_reason, tr.created_at,
       (SELECT COUNT(1) FROM transfer_request_items i WHERE i.transfer_request_id = tr.id) AS item_count,
       COALESCE((SELECT SUM(i.grams) FROM transfer_request_items i WHERE i.transfer_request_id = tr.id), 0) AS total_grams
FROM transfer_requests tr
JOIN units su ON su.id = tr.source_unit_id
JOIN units du ON du.id = tr.destination_unit_id
LEFT JOIN users ru ON ru.id = tr.requested_by`

const fromClause = `
FROM transfer_requests tr
JOIN units su ON su.id = tr.source_unit_id
JOIN units du ON du.id = tr.destination_unit_id`

func whereClause(actor models.Actor, q listing.Query, withStatus bool) (string, []any) {
	where := make([]string, 0, 6)
	args := make([]any, 0, 8)

	switch {
	case isCentral(actor):
	case actor.Role == rbac.RoleWastebankUnit && actor.UnitID != nil:
		where = append(where, "(tr.source_unit_id = ? OR tr.destination_unit_id = ?)")
		args = append(args, *actor.UnitID, *actor.UnitID)
	default:
		where = append(where, "1 = 0")
	}

	if withStatus && q.Status != "" {
		where = append(where, "tr.status = ?")
		args = append(args, q.Status)
	}
	if q.From != nil {
		where = append(where, "tr.created_at >= ?")
		args = append(args, *q.From)
	}
	if to := q.ToExclusive(); to != nil {
		where = append(where, "tr.created_at < ?")
		args = append(args, *to)
	}
	if q.UnitID > 0 {
		where = append(where, "(tr.source_unit_id = ? OR tr.destination_unit_id = ?)")
		args = append(args, q.UnitID, q.UnitID)
	}
	if q.CategoryID > 0 {
		where = append(where, `EXISTS (SELECT 1 FROM transfer_request_items fi JOIN waste_types ft ON ft.id = fi.waste_type_id WHERE fi.transfer_request_id = tr.id AND ft.category_id = ?)`)
		args = append(args, q.CategoryID)
	}
	if q.Search != "" {
		like := listing.LikePattern(q.Search)
		where = append(where, `(LOWER(tr.reference) LIKE ? ESCAPE '\' OR LOWER(su.name) LIKE ? ESCAPE '\' OR LOWER(du.name) LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (s *Service) List(ctx context.Context, actor models.Actor, q listing.Query) ([]Row, int, error) {
	rows := make([]Row, 0)
	var total int
	clause, args := whereClause(actor, q, true)
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewRaw(`SELECT COUNT(1)`+fromClause+clause, args...).Scan(ctx, &total); err != nil {
			return err
		}
		return tx.NewRaw(rowSelect+clause+` ORDER BY tr.created_at DESC, tr.id DESC LIMIT ? OFFSET ?`, append(args, q.PageSize, q.Offset())...).Scan(ctx, &rows)
	})
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Summary counts transfers by status and sums grams that have left their source.
func (s *Service) Summary(ctx context.Context, actor models.Actor, q listing.Query) (Summary, error) {
	sum := Summary{ByStatus: make(map[string]int, len(Statuses()))}
	clause, args := whereClause(actor, q, false)
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		counts := make([]struct {
			Status string `bun:"status"`
			N      int    `bun:"n"`
		}, 0)
		if err := tx.NewRaw(`SELECT tr.status, COUNT(1) AS n`+fromClause+clause+` GROUP BY tr.status`, args...).Scan(ctx, &counts); err != nil {
			return err
		}
		for _, c := range counts {
			sum.ByStatus[c.Status] = c.N
			sum.Total += c.N
		}
		moved := clause
		if moved == "" {
			moved = " WHERE "
		} else {
			moved += " AND "
		}
		moved += "tr.status IN ('in_transit', 'received')"
		return tx.NewRaw(`SELECT COALESCE(SUM(i.grams), 0) FROM transfer_request_items i WHERE i.transfer_request_id IN (SELECT tr.id`+fromClause+moved+`)`, args...).Scan(ctx, &sum.MovedGrams)
	})
	return sum, err
}

func (s *Service) LoadDetail(ctx context.Context, actor models.Actor, id int64) (Detail, error) {
	var d Detail
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		tr, err := loadRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if !Visible(actor, tr) {
			return fmt.Errorf("transfer request %d: %w", id, apperr.ErrNotFound)
		}
		if err := tx.NewRaw(rowSelect+` WHERE tr.id = ?`, id).Scan(ctx, &d.Row); err != nil {
			return err
		}
		d.Items, err = loadItemRows(ctx, tx, `i.transfer_request_id = ?`, id)
		return err
	})
	return d, err
}

// Export returns every matching transfer, unpaginated.
func (s *Service) Export(ctx context.Context, actor models.Actor, q listing.Query) ([]Row, error) {
	rows := make([]Row, 0)
	clause, args := whereClause(actor, q, true)
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(rowSelect+clause+` ORDER BY tr.created_at DESC, tr.id DESC`, args...).Scan(ctx, &rows)
	})
	return rows, err
}

func loadItemRows(ctx context.Context, tx bun.Tx, where string, args ...any) ([]ItemRow, error) {
	rows := make([]ItemRow, 0)
	err := tx.NewRaw(`
SELECT i.id, i.waste_type_id, wt.name AS type_name, wc.name AS category_name, i.grams
FROM transfer_request_items i
JOIN waste_types wt ON wt.id = i.waste_type_id
JOIN waste_categories wc ON wc.id = wt.category_id
WHERE `+where+`
ORDER BY i.id ASC`, args...).Scan(ctx, &rows)
	return rows, err
}
