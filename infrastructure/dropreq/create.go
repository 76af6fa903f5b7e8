package dropreq

import (
	"context"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/refcode"
	"wasteboard/models"
)

// Create submits a new pending request for a customer.
func (s *Service) Create(ctx context.Context, actor models.Actor, in CreateInput) (models.DropRequest, error) {
	var dr models.DropRequest
	if actor.Role != rbac.RoleCustomer {
		return dr, apperr.ErrForbidden
	}
	delivery := strings.ToLower(strings.TrimSpace(in.DeliveryType))
	if delivery != DeliveryPickup && delivery != DeliveryDropoff {
		return dr, apperr.Validation("delivery type must be pickup or dropoff")
	}
	if len(in.Items) == 0 {
		return dr, apperr.Validation("add at least one waste item")
	}
	seen := make(map[int64]struct{}, len(in.Items))
	for _, it := range in.Items {
		if it.EstimatedGrams <= 0 {
			return dr, apperr.Validation("estimated weight must be greater than zero")
		}
		if it.EstimatedGrams > catalog.MaxGrams {
			return dr, apperr.Validation("estimated weight cannot exceed %d kg", catalog.MaxGrams/1000)
		}
		if _, dup := seen[it.WasteTypeID]; dup {
			return dr, apperr.Validation("each waste type can only be listed once")
		}
		seen[it.WasteTypeID] = struct{}{}
	}
	if in.ScheduledDate.IsZero() {
		return dr, apperr.Validation("scheduled date is required")
	}
	scheduled := truncateDay(in.ScheduledDate)
	if scheduled.Before(truncateDay(s.now())) {
		return dr, apperr.Validation("scheduled date cannot be in the past")
	}

	err := s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		unit, err := orgunit.LoadByIDTx(ctx, tx, in.UnitID)
		if err != nil {
			return apperr.Validation("waste bank unit not found")
		}
		if unit.Kind != orgunit.KindWastebankUnit {
			return apperr.Validation("requests must target a waste bank unit")
		}

		address := strings.TrimSpace(in.PickupAddress)
		if delivery == DeliveryPickup && address == "" {
			var profileAddress string
			if err := tx.NewRaw(`SELECT address FROM users WHERE id = ?`, actor.UserID).Scan(ctx, &profileAddress); err != nil {
				return err
			}
			address = strings.TrimSpace(profileAddress)
		}
		if delivery == DeliveryPickup && address == "" {
			return apperr.Validation("pickup address is required")
		}
		if delivery == DeliveryDropoff {
			address = ""
		}

		for _, it := range in.Items {
			var active int
			if err := tx.NewRaw(`SELECT COUNT(1) FROM waste_types WHERE id = ? AND active = 1`, it.WasteTypeID).Scan(ctx, &active); err != nil {
				return err
			}
			if active == 0 {
				return apperr.Validation("unknown or inactive waste type %d", it.WasteTypeID)
			}
		}

		ref, err := refcode.Unique(ctx, tx, "drop_requests", refcode.PrefixDropRequest)
		if err != nil {
			return err
		}
		now := s.now()
		dr = models.DropRequest{
			Reference:     ref,
			CustomerID:    actor.UserID,
			UnitID:        unit.ID,
			DeliveryType:  delivery,
			PickupAddress: address,
			ScheduledDate: scheduled,
			Status:        StatusPending,
			Notes:         strings.TrimSpace(in.Notes),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if _, err := tx.NewInsert().Model(&dr).Exec(ctx); err != nil {
			return err
		}
		items := make([]models.DropRequestItem, 0, len(in.Items))
		for _, it := range in.Items {
			items = append(items, models.DropRequestItem{
				DropRequestID:  dr.ID,
				WasteTypeID:    it.WasteTypeID,
				EstimatedGrams: it.EstimatedGrams,
			})
		}
		if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
			return err
		}
		return s.audit.WriteID(ctx, tx, actor.UserID, "drop_request.create", entityType, dr.ID, nil, map[string]any{
			"request": dr,
			"items":   items,
		})
	})
	return dr, err
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
