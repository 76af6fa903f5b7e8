package dropreq

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/models"
)

// transition loads the request, runs check and apply inside one write tx, then audits before/after.
func (s *Service) transition(ctx context.Context, actor models.Actor, id int64, action string, apply func(ctx context.Context, tx bun.Tx, dr *models.DropRequest) error) error {
	return s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		dr, err := loadRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if !Visible(actor, dr) {
			return fmt.Errorf("drop request %d: %w", id, apperr.ErrNotFound)
		}
		before := dr
		if err := apply(ctx, tx, &dr); err != nil {
			return err
		}
		return s.audit.WriteID(ctx, tx, actor.UserID, "drop_request."+action, entityType, id, before, dr)
	})
}

// guardedUpdate runs an UPDATE that only matches while status is one of from.
func guardedUpdate(ctx context.Context, tx bun.Tx, dr *models.DropRequest, action string, from []string, columns ...string) error {
	res, err := tx.NewUpdate().Model(dr).Column(append(columns, "status", "updated_at")...).
		WherePK().
		Where("status IN (?)", bun.In(from)).
		Exec(ctx)
	if err != nil {
		return err
	}
	if sqlite.RowsAffected(res) != 1 {
		return apperr.Transition("drop request", "no longer "+strings.Join(from, " or "), action)
	}
	return nil
}

func statusIn(status string, allowed ...string) bool {
	for _, a := range allowed {
		if status == a {
			return true
		}
	}
	return false
}

// Assign gives a pickup request to an active field collector. Reassigning an assigned request is allowed.
func (s *Service) Assign(ctx context.Context, actor models.Actor, id, collectorID int64) error {
	return s.transition(ctx, actor, id, "assign", func(ctx context.Context, tx bun.Tx, dr *models.DropRequest) error {
		if !canDispatch(actor, *dr) {
			return apperr.ErrForbidden
		}
		from := []string{StatusPending, StatusAssigned}
		if !statusIn(dr.Status, from...) {
			return apperr.Transition("drop request", dr.Status, "assign")
		}
		if dr.DeliveryType != DeliveryPickup {
			return apperr.Validation("only pickup requests can be assigned to a collector")
		}
		collector, err := loadCollector(ctx, tx, collectorID)
		if err != nil {
			return err
		}
		if collector.Role != rbac.RoleCollectorUnit || !collector.Active {
			return apperr.Validation("%s is not an active collector", collector.Name())
		}
		now := s.now()
		dr.Status = StatusAssigned
		dr.AssignedCollectorID = &collector.ID
		dr.AssignedAt = &now
		dr.UpdatedAt = now
		return guardedUpdate(ctx, tx, dr, "assign", from, "assigned_collector_id", "assigned_at")
	})
}

func loadCollector(ctx context.Context, tx bun.Tx, id int64) (models.User, error) {
	var u models.User
	err := tx.NewSelect().Model(&u).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return u, apperr.Validation("collector not found")
	}
	return u, err
}

// Start marks the assigned collector on the way.
func (s *Service) Start(ctx context.Context, actor models.Actor, id int64) error {
	return s.transition(ctx, actor, id, "start", func(ctx context.Context, tx bun.Tx, dr *models.DropRequest) error {
		if !isAssignedCollector(actor, *dr) {
			return apperr.ErrForbidden
		}
		if dr.Status != StatusAssigned {
			return apperr.Transition("drop request", dr.Status, "start")
		}
		now := s.now()
		dr.Status = StatusCollecting
		dr.StartedAt = &now
		dr.UpdatedAt = now
		return guardedUpdate(ctx, tx, dr, "start", []string{StatusAssigned}, "started_at")
	})
}

// Complete records the weighed items of a pickup the collector is working on.
func (s *Service) Complete(ctx context.Context, actor models.Actor, id int64, weights Weights) error {
	return s.transition(ctx, actor, id, "complete", func(ctx context.Context, tx bun.Tx, dr *models.DropRequest) error {
		if !isAssignedCollector(actor, *dr) {
			return apperr.ErrForbidden
		}
		if dr.Status != StatusCollecting {
			return apperr.Transition("drop request", dr.Status, "complete")
		}
		return s.finalize(ctx, tx, dr, weights, "complete", []string{StatusCollecting})
	})
}

// Receive lets waste bank staff weigh a drop-off at the counter, or close a pickup the collector brought in.
func (s *Service) Receive(ctx context.Context, actor models.Actor, id int64, weights Weights) error {
	return s.transition(ctx, actor, id, "receive", func(ctx context.Context, tx bun.Tx, dr *models.DropRequest) error {
		if !canReceive(actor, *dr) {
			return apperr.ErrForbidden
		}
		switch {
		case dr.Status == StatusPending && dr.DeliveryType == DeliveryDropoff:
			return s.finalize(ctx, tx, dr, weights, "receive", []string{StatusPending})
		case dr.Status == StatusCollecting:
			return s.finalize(ctx, tx, dr, weights, "receive", []string{StatusCollecting})
		default:
			return apperr.Transition("drop request", dr.Status, "receive")
		}
	})
}

// finalize weighs every item, snapshots the unit's effective prices and completes the request.
func (s *Service) finalize(ctx context.Context, tx bun.Tx, dr *models.DropRequest, weights Weights, action string, from []string) error {
	items, err := loadItems(ctx, tx, dr.ID)
	if err != nil {
		return err
	}
	known := make(map[int64]struct{}, len(items))
	for _, it := range items {
		known[it.ID] = struct{}{}
	}
	for itemID := range weights {
		if _, ok := known[itemID]; !ok {
			return apperr.Validation("item %d does not belong to this request", itemID)
		}
	}
	var total int64
	for _, it := range items {
		g, ok := weights[it.ID]
		if !ok {
			return apperr.Validation("enter the measured weight for every item")
		}
		if g < 0 {
			return apperr.Validation("measured weight cannot be negative")
		}
		if g > catalog.MaxGrams {
			return apperr.Validation("measured weight cannot exceed %d kg", catalog.MaxGrams/1000)
		}
		total += g
	}
	if total <= 0 {
		return apperr.Validation("total measured weight must be greater than zero")
	}

	prices, err := catalog.EffectivePrices(ctx, tx, dr.UnitID)
	if err != nil {
		return err
	}
	now := s.now()
	dr.Status = StatusCompleted
	dr.CompletedAt = &now
	dr.UpdatedAt = now
	if err := guardedUpdate(ctx, tx, dr, action, from, "completed_at"); err != nil {
		return err
	}
	for i := range items {
		g := weights[items[i].ID]
		price := prices[items[i].WasteTypeID]
		value, err := catalog.ValueOf(g, price)
		if err != nil {
			return err
		}
		items[i].ActualGrams = &g
		items[i].PricePerKg = &price
		items[i].Value = &value
		if _, err := tx.NewUpdate().Model(&items[i]).Column("actual_grams", "price_per_kg", "value").WherePK().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Cancel withdraws a request that no collector has started on.
func (s *Service) Cancel(ctx context.Context, actor models.Actor, id int64, reason string) error {
	return s.transition(ctx, actor, id, "cancel", func(ctx context.Context, tx bun.Tx, dr *models.DropRequest) error {
		if !canCancel(actor, *dr) {
			return apperr.ErrForbidden
		}
		from := []string{StatusPending, StatusAssigned}
		if !statusIn(dr.Status, from...) {
			return apperr.Transition("drop request", dr.Status, "cancel")
		}
		now := s.now()
		dr.Status = StatusCancelled
		dr.CancelReason = strings.TrimSpace(reason)
		dr.CancelledAt = &now
		dr.UpdatedAt = now
		return guardedUpdate(ctx, tx, dr, "cancel", from, "cancel_reason", "cancelled_at")
	})
}

// Rate stores the customer's one-time 1..5 rating of a completed request.
func (s *Service) Rate(ctx context.Context, actor models.Actor, id int64, rating int64, comment string) error {
	if rating < 1 || rating > 5 {
		return apperr.Validation("rating must be between 1 and 5")
	}
	return s.transition(ctx, actor, id, "rate", func(ctx context.Context, tx bun.Tx, dr *models.DropRequest) error {
		if actor.Role != rbac.RoleCustomer || dr.CustomerID != actor.UserID {
			return apperr.ErrForbidden
		}
		if dr.Status != StatusCompleted {
			return apperr.Transition("drop request", dr.Status, "rate")
		}
		if dr.Rating != nil {
			return fmt.Errorf("%w: request already rated", apperr.ErrConflict)
		}
		dr.Rating = &rating
		dr.RatingComment = strings.TrimSpace(comment)
		dr.UpdatedAt = s.now()
		res, err := tx.NewUpdate().Model(dr).Column("rating", "rating_comment", "updated_at").
			WherePK().
			Where("status = ?", StatusCompleted).
			Where("rating IS NULL").
			Exec(ctx)
		if err != nil {
			return err
		}
		if sqlite.RowsAffected(res) != 1 {
			return fmt.Errorf("%w: request already rated", apperr.ErrConflict)
		}
		return nil
	})
}
