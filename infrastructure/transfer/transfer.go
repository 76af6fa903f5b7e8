// Package transfer moves waste stock between waste banks and out to industry buyers.
package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/audit"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/inventory"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/refcode"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/models"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusInTransit = "in_transit"
	StatusReceived  = "received"
	StatusCancelled = "cancelled"
)

const entityType = "transfer_request"

func Statuses() []string {
	return []string{StatusPending, StatusApproved, StatusInTransit, StatusReceived, StatusRejected, StatusCancelled}
}

func StatusLabel(status string) string {
	switch status {
	case StatusInTransit:
		return "In transit"
	case "":
		return ""
	default:
		return strings.ToUpper(status[:1]) + status[1:]
	}
}

type Service struct {
	db    *sqlite.DB
	audit *audit.Service
	now   func() time.Time
}

func New(db *sqlite.DB, auditSvc *audit.Service) *Service {
	if auditSvc == nil {
		auditSvc = audit.NewService()
	}
	return &Service{db: db, audit: auditSvc, now: func() time.Time { return time.Now().UTC() }}
}

type ItemInput struct {
	WasteTypeID int64 `json:"waste_type_id"`
	Grams       int64 `json:"grams"`
}

type CreateInput struct {
	SourceUnitID      int64       `json:"source_unit_id"`
	DestinationUnitID int64       `json:"destination_unit_id"`
	Notes             string      `json:"notes"`
	Items             []ItemInput `json:"items"`
}

type Row struct {
	ID                int64     `bun:"id" json:"id"`
	Reference         string    `bun:"reference" json:"reference"`
	SourceUnitID      int64     `bun:"source_unit_id" json:"source_unit_id"`
	SourceName        string    `bun:"source_name" json:"source_name"`
	DestinationUnitID int64     `bun:"destination_unit_id" json:"destination_unit_id"`
	DestinationName   string    `bun:"destination_name" json:"destination_name"`
	DestinationKind   string    `bun:"destination_kind" json:"destination_kind"`
	Status            string    `bun:"status" json:"status"`
	RequestedByName   string    `bun:"requested_by_name" json:"requested_by"`
	Notes             string    `bun:"notes" json:"notes"`
	RejectReason      string    `bun:"reject_reason" json:"reject_reason,omitempty"`
	TotalGrams        int64     `bun:"total_grams" json:"total_grams"`
	ItemCount         int       `bun:"item_count" json:"item_count"`
	CreatedAt         time.Time `bun:"created_at" json:"created_at"`
}

type ItemRow struct {
	ID           int64  `bun:"id" json:"id"`
	WasteTypeID  int64  `bun:"waste_type_id" json:"waste_type_id"`
	TypeName     string `bun:"type_name" json:"type_name"`
	CategoryName string `bun:"category_name" json:"category_name"`
	Grams        int64  `bun:"grams" json:"grams"`
}

type Detail struct {
	Row
	Items []ItemRow `json:"items"`
}

type Summary struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	MovedGrams int64          `json:"moved_grams"`
}

func (s Summary) Count(status string) int {
	if status == "" {
		return s.Total
	}
	return s.ByStatus[status]
}

func isCentral(actor models.Actor) bool {
	return actor.Role == rbac.RoleAdmin || actor.Role == rbac.RoleWastebankCentral
}

func isUnitStaff(actor models.Actor, unitID int64) bool {
	return (actor.Role == rbac.RoleWastebankUnit || actor.Role == rbac.RoleWastebankCentral) && actor.InUnit(unitID)
}

// Visible reports whether actor may see tr.
func Visible(actor models.Actor, tr models.TransferRequest) bool {
	if isCentral(actor) {
		return true
	}
	return isUnitStaff(actor, tr.SourceUnitID) || isUnitStaff(actor, tr.DestinationUnitID)
}

// Create files a pending transfer after checking the source has the stock available.
func (s *Service) Create(ctx context.Context, actor models.Actor, in CreateInput) (models.TransferRequest, error) {
	var tr models.TransferRequest
	if in.SourceUnitID == in.DestinationUnitID {
		return tr, apperr.Validation("source and destination must differ")
	}
	if len(in.Items) == 0 {
		return tr, apperr.Validation("add at least one waste item")
	}
	seen := make(map[int64]struct{}, len(in.Items))
	for _, it := range in.Items {
		if it.Grams <= 0 {
			return tr, apperr.Validation("transfer weight must be greater than zero")
		}
		if it.Grams > catalog.MaxGrams {
			return tr, apperr.Validation("transfer weight cannot exceed %d kg", catalog.MaxGrams/1000)
		}
		if _, dup := seen[it.WasteTypeID]; dup {
			return tr, apperr.Validation("each waste type can only be listed once")
		}
		seen[it.WasteTypeID] = struct{}{}
	}

	err := s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		src, err := orgunit.LoadByIDTx(ctx, tx, in.SourceUnitID)
		if err != nil {
			return apperr.Validation("source unit not found")
		}
		dst, err := orgunit.LoadByIDTx(ctx, tx, in.DestinationUnitID)
		if err != nil {
			return apperr.Validation("destination unit not found")
		}
		if !orgunit.IsWastebank(src.Kind) {
			return apperr.Validation("transfers must leave from a waste bank")
		}
		if !orgunit.IsWastebank(dst.Kind) && dst.Kind != orgunit.KindIndustry {
			return apperr.Validation("destination must be a waste bank or an industry buyer")
		}
		if !isCentral(actor) && !isUnitStaff(actor, src.ID) {
			return apperr.ErrForbidden
		}
		if err := checkAvailable(ctx, tx, src.ID, 0, in.Items); err != nil {
			return err
		}

		ref, err := refcode.Unique(ctx, tx, "transfer_requests", refcode.PrefixTransfer)
		if err != nil {
			return err
		}
		now := s.now()
		tr = models.TransferRequest{
			Reference:         ref,
			SourceUnitID:      src.ID,
			DestinationUnitID: dst.ID,
			Status:            StatusPending,
			RequestedBy:       actor.UserID,
			Notes:             strings.TrimSpace(in.Notes),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if _, err := tx.NewInsert().Model(&tr).Exec(ctx); err != nil {
			return err
		}
		items := make([]models.TransferRequestItem, 0, len(in.Items))
		for _, it := range in.Items {
			items = append(items, models.TransferRequestItem{TransferRequestID: tr.ID, WasteTypeID: it.WasteTypeID, Grams: it.Grams})
		}
		if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
			return err
		}
		return s.audit.WriteID(ctx, tx, actor.UserID, "transfer.create", entityType, tr.ID, nil, map[string]any{
			"request": tr,
			"items":   items,
		})
	})
	return tr, err
}

func checkAvailable(ctx context.Context, tx bun.Tx, unitID, excludeTransferID int64, items []ItemInput) error {
	avail, err := inventory.Available(ctx, tx, unitID, excludeTransferID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.Grams > avail[it.WasteTypeID] {
			var name string
			if err := tx.NewRaw(`SELECT name FROM waste_types WHERE id = ?`, it.WasteTypeID).Scan(ctx, &name); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return apperr.Validation("unknown waste type %d", it.WasteTypeID)
				}
				return err
			}
			have := avail[it.WasteTypeID]
			if have < 0 {
				have = 0
			}
			return apperr.Validation("insufficient %s stock: %d g available, %d g requested", name, have, it.Grams)
		}
	}
	return nil
}

func (s *Service) transition(ctx context.Context, actor models.Actor, id int64, action string, apply func(ctx context.Context, tx bun.Tx, tr *models.TransferRequest) error) error {
	return s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		tr, err := loadRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if !Visible(actor, tr) {
			return fmt.Errorf("transfer request %d: %w", id, apperr.ErrNotFound)
		}
		before := tr
		if err := apply(ctx, tx, &tr); err != nil {
			return err
		}
		return s.audit.WriteID(ctx, tx, actor.UserID, "transfer."+action, entityType, id, before, tr)
	})
}

func guardedUpdate(ctx context.Context, tx bun.Tx, tr *models.TransferRequest, action, from string, columns ...string) error {
	res, err := tx.NewUpdate().Model(tr).Column(append(columns, "status", "updated_at")...).
		WherePK().
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return err
	}
	if sqlite.RowsAffected(res) != 1 {
		return apperr.Transition("transfer", "no longer "+from, action)
	}
	return nil
}

func (s *Service) Approve(ctx context.Context, actor models.Actor, id int64) error {
	return s.transition(ctx, actor, id, "approve", func(ctx context.Context, tx bun.Tx, tr *models.TransferRequest) error {
		if !isCentral(actor) {
			return apperr.ErrForbidden
		}
		if tr.Status != StatusPending {
			return apperr.Transition("transfer", tr.Status, "approve")
		}
		now := s.now()
		tr.Status = StatusApproved
		tr.DecidedBy = &actor.UserID
		tr.DecidedAt = &now
		tr.UpdatedAt = now
		return guardedUpdate(ctx, tx, tr, "approve", StatusPending, "decided_by", "decided_at")
	})
}

func (s *Service) Reject(ctx context.Context, actor models.Actor, id int64, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperr.Validation("a reason is required to reject a transfer")
	}
	return s.transition(ctx, actor, id, "reject", func(ctx context.Context, tx bun.Tx, tr *models.TransferRequest) error {
		if !isCentral(actor) {
			return apperr.ErrForbidden
		}
		if tr.Status != StatusPending {
			return apperr.Transition("transfer", tr.Status, "reject")
		}
		now := s.now()
		tr.Status = StatusRejected
		tr.RejectReason = reason
		tr.DecidedBy = &actor.UserID
		tr.DecidedAt = &now
		tr.UpdatedAt = now
		return guardedUpdate(ctx, tx, tr, "reject", StatusPending, "reject_reason", "decided_by", "decided_at")
	})
}

// Ship dispatches an approved transfer, re-checking stock since other movements may have happened since approval.
func (s *Service) Ship(ctx context.Context, actor models.Actor, id int64) error {
	return s.transition(ctx, actor, id, "ship", func(ctx context.Context, tx bun.Tx, tr *models.TransferRequest) error {
		if !isCentral(actor) && !isUnitStaff(actor, tr.SourceUnitID) {
			return apperr.ErrForbidden
		}
		if tr.Status != StatusApproved {
			return apperr.Transition("transfer", tr.Status, "ship")
		}
		items, err := loadItems(ctx, tx, tr.ID)
		if err != nil {
			return err
		}
		inputs := make([]ItemInput, 0, len(items))
		for _, it := range items {
			inputs = append(inputs, ItemInput{WasteTypeID: it.WasteTypeID, Grams: it.Grams})
		}
		if err := checkAvailable(ctx, tx, tr.SourceUnitID, tr.ID, inputs); err != nil {
			return err
		}
		now := s.now()
		tr.Status = StatusInTransit
		tr.ShippedAt = &now
		tr.UpdatedAt = now
		return guardedUpdate(ctx, tx, tr, "ship", StatusApproved, "shipped_at")
	})
}

// Receive confirms arrival. Industry buyers have no staff, so central confirms for them.
func (s *Service) Receive(ctx context.Context, actor models.Actor, id int64) error {
	return s.transition(ctx, actor, id, "receive", func(ctx context.Context, tx bun.Tx, tr *models.TransferRequest) error {
		dst, err := orgunit.LoadByIDTx(ctx, tx, tr.DestinationUnitID)
		if err != nil {
			return err
		}
		allowed := isUnitStaff(actor, dst.ID) || actor.Role == rbac.RoleAdmin
		if dst.Kind == orgunit.KindIndustry && isCentral(actor) {
			allowed = true
		}
		if !allowed {
			return apperr.ErrForbidden
		}
		if tr.Status != StatusInTransit {
			return apperr.Transition("transfer", tr.Status, "receive")
		}
		now := s.now()
		tr.Status = StatusReceived
		tr.ReceivedAt = &now
		tr.UpdatedAt = now
		return guardedUpdate(ctx, tx, tr, "receive", StatusInTransit, "received_at")
	})
}

func (s *Service) Cancel(ctx context.Context, actor models.Actor, id int64) error {
	return s.transition(ctx, actor, id, "cancel", func(ctx context.Context, tx bun.Tx, tr *models.TransferRequest) error {
		if !isCentral(actor) && !isUnitStaff(actor, tr.SourceUnitID) {
			return apperr.ErrForbidden
		}
		if tr.Status != StatusPending && tr.Status != StatusApproved {
			return apperr.Transition("transfer", tr.Status, "cancel")
		}
		from := tr.Status
		now := s.now()
		tr.Status = StatusCancelled
		tr.CancelledAt = &now
		tr.UpdatedAt = now
		return guardedUpdate(ctx, tx, tr, "cancel", from, "cancelled_at")
	})
}

func loadRequest(ctx context.Context, tx bun.Tx, id int64) (models.TransferRequest, error) {
	var tr models.TransferRequest
	err := tx.NewSelect().Model(&tr).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return tr, fmt.Errorf("transfer request %d: %w", id, apperr.ErrNotFound)
	}
	return tr, err
}

func loadItems(ctx context.Context, tx bun.Tx, id int64) ([]models.TransferRequestItem, error) {
	items := make([]models.TransferRequestItem, 0)
	err := tx.NewSelect().Model(&items).Where("transfer_request_id = ?", id).OrderExpr("id ASC").Scan(ctx)
	return items, err
}

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionShip    = "ship"
	ActionReceive = "receive"
	ActionCancel  = "cancel"
)

// Actions lists the transitions actor may attempt on r in its current status.
func Actions(actor models.Actor, r Row) []string {
	out := make([]string, 0, 2)
	central := isCentral(actor)
	source := central || isUnitStaff(actor, r.SourceUnitID)
	switch r.Status {
	case StatusPending:
		if central {
			out = append(out, ActionApprove, ActionReject)
		}
		if source {
			out = append(out, ActionCancel)
		}
	case StatusApproved:
		if source {
			out = append(out, ActionShip, ActionCancel)
		}
	case StatusInTransit:
		receiver := isUnitStaff(actor, r.DestinationUnitID) || actor.Role == rbac.RoleAdmin
		if r.DestinationKind == orgunit.KindIndustry && central {
			receiver = true
		}
		if receiver {
			out = append(out, ActionReceive)
		}
	}
	return out
}
