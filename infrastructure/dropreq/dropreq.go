// Package dropreq implements the customer drop request lifecycle:
// pending → assigned → collecting → completed, with cancel and rating side paths.
package dropreq

import (
	"time"

	"wasteboard/infrastructure/audit"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/models"
)

const (
	StatusPending    = "pending"
	StatusAssigned   = "assigned"
	StatusCollecting = "collecting"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const (
	DeliveryPickup  = "pickup"
	DeliveryDropoff = "dropoff"
)

const entityType = "drop_request"

// Statuses lists statuses in lifecycle order, used for tabs.
func Statuses() []string {
	return []string{StatusPending, StatusAssigned, StatusCollecting, StatusCompleted, StatusCancelled}
}

func IsValidStatus(status string) bool {
	for _, s := range Statuses() {
		if s == status {
			return true
		}
	}
	return false
}

func StatusLabel(status string) string {
	switch status {
	case StatusPending:
		return "Pending"
	case StatusAssigned:
		return "Assigned"
	case StatusCollecting:
		return "Collecting"
	case StatusCompleted:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return status
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

// ItemInput is one line of a new request.
type ItemInput struct {
	WasteTypeID    int64 `json:"waste_type_id"`
	EstimatedGrams int64 `json:"estimated_grams"`
}

type CreateInput struct {
	UnitID        int64       `json:"unit_id"`
	DeliveryType  string      `json:"delivery_type"`
	PickupAddress string      `json:"pickup_address"`
	ScheduledDate time.Time   `json:"scheduled_date"`
	Notes         string      `json:"notes"`
	Items         []ItemInput `json:"items"`
}

// Weights maps drop request item id to measured grams.
type Weights map[int64]int64

// Filter is a list query plus drop-request specific narrowing.
type Filter struct {
	listing.Query
	Delivery   string
	Unassigned bool
}

// Row is a list entry with joined names and item totals.
type Row struct {
	ID                  int64     `bun:"id" json:"id"`
	Reference           string    `bun:"reference" json:"reference"`
	CustomerID          int64     `bun:"customer_id" json:"customer_id"`
	CustomerName        string    `bun:"customer_name" json:"customer_name"`
	UnitID              int64     `bun:"unit_id" json:"unit_id"`
	UnitName            string    `bun:"unit_name" json:"unit_name"`
	DeliveryType        string    `bun:"delivery_type" json:"delivery_type"`
	PickupAddress       string    `bun:"pickup_address" json:"pickup_address"`
	ScheduledDate       time.Time `bun:"scheduled_date" json:"scheduled_date"`
	Status              string    `bun:"status" json:"status"`
	AssignedCollectorID *int64    `bun:"assigned_collector_id" json:"assigned_collector_id,omitempty"`
	CollectorName       string    `bun:"collector_name" json:"collector_name,omitempty"`
	Rating              *int64    `bun:"rating" json:"rating,omitempty"`
	ItemCount           int       `bun:"item_count" json:"item_count"`
	EstimatedGrams      int64     `bun:"estimated_grams" json:"estimated_grams"`
	ActualGrams         int64     `bun:"actual_grams" json:"actual_grams"`
	TotalValue          int64     `bun:"total_value" json:"total_value"`
	CreatedAt           time.Time `bun:"created_at" json:"created_at"`
}

// ItemRow is an item joined with its type and category.
type ItemRow struct {
	ID             int64  `bun:"id" json:"id"`
	WasteTypeID    int64  `bun:"waste_type_id" json:"waste_type_id"`
	TypeName       string `bun:"type_name" json:"type_name"`
	CategoryName   string `bun:"category_name" json:"category_name"`
	EstimatedGrams int64  `bun:"estimated_grams" json:"estimated_grams"`
	ActualGrams    *int64 `bun:"actual_grams" json:"actual_grams,omitempty"`
	PricePerKg     *int64 `bun:"price_per_kg" json:"price_per_kg,omitempty"`
	Value          *int64 `bun:"value" json:"value,omitempty"`
}

// ExportItem is an item row tagged with its request reference.
type ExportItem struct {
	Reference string `bun:"reference"`
	ItemRow
}

// Detail is one request with its items.
type Detail struct {
	Row
	Notes         string     `json:"notes"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
	RatingComment string     `json:"rating_comment,omitempty"`
	AssignedAt    *time.Time `json:"assigned_at,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	Items         []ItemRow  `json:"items"`
}

// Summary aggregates the requests matched by a filter, ignoring its status.
type Summary struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	CompletedGrams int64          `json:"completed_grams"`
	CompletedValue int64          `json:"completed_value"`
	AverageRating  float64        `json:"average_rating"`
	RatedCount     int            `json:"rated_count"`
}

func (s Summary) Count(status string) int {
	if status == "" {
		return s.Total
	}
	return s.ByStatus[status]
}

// Visible reports whether actor may see dr at all.
func Visible(actor models.Actor, dr models.DropRequest) bool {
	switch actor.Role {
	case rbac.RoleCustomer:
		return dr.CustomerID == actor.UserID
	case rbac.RoleWastebankUnit:
		return actor.InUnit(dr.UnitID)
	case rbac.RoleCollectorUnit:
		return dr.AssignedCollectorID != nil && *dr.AssignedCollectorID == actor.UserID
	case rbac.RoleAdmin, rbac.RoleWastebankCentral, rbac.RoleCollectorCentral:
		return true
	default:
		return false
	}
}

func canDispatch(actor models.Actor, dr models.DropRequest) bool {
	switch actor.Role {
	case rbac.RoleAdmin, rbac.RoleCollectorCentral:
		return true
	case rbac.RoleWastebankUnit:
		return actor.InUnit(dr.UnitID)
	}
	return false
}

func isAssignedCollector(actor models.Actor, dr models.DropRequest) bool {
	return actor.Role == rbac.RoleCollectorUnit && dr.AssignedCollectorID != nil && *dr.AssignedCollectorID == actor.UserID
}

func canReceive(actor models.Actor, dr models.DropRequest) bool {
	return actor.Role == rbac.RoleAdmin || (actor.Role == rbac.RoleWastebankUnit && actor.InUnit(dr.UnitID))
}

func canCancel(actor models.Actor, dr models.DropRequest) bool {
	if actor.Role == rbac.RoleCustomer {
		return dr.CustomerID == actor.UserID
	}
	return canDispatch(actor, dr)
}

const (
	ActionAssign   = "assign"
	ActionStart    = "start"
	ActionComplete = "complete"
	ActionReceive  = "receive"
	ActionCancel   = "cancel"
	ActionRate     = "rate"
)

// Actions lists the transitions actor may attempt on r in its current status.
func Actions(actor models.Actor, r Row) []string {
	dr := models.DropRequest{
		ID:                  r.ID,
		CustomerID:          r.CustomerID,
		UnitID:              r.UnitID,
		DeliveryType:        r.DeliveryType,
		Status:              r.Status,
		AssignedCollectorID: r.AssignedCollectorID,
		Rating:              r.Rating,
	}
	out := make([]string, 0, 2)
	if !Visible(actor, dr) {
		return out
	}
	pendingOrAssigned := dr.Status == StatusPending || dr.Status == StatusAssigned
	if pendingOrAssigned && dr.DeliveryType == DeliveryPickup && canDispatch(actor, dr) {
		out = append(out, ActionAssign)
	}
	if dr.Status == StatusAssigned && isAssignedCollector(actor, dr) {
		out = append(out, ActionStart)
	}
	if dr.Status == StatusCollecting && isAssignedCollector(actor, dr) {
		out = append(out, ActionComplete)
	}
	if canReceive(actor, dr) && ((dr.Status == StatusPending && dr.DeliveryType == DeliveryDropoff) || dr.Status == StatusCollecting) {
		out = append(out, ActionReceive)
	}
	if pendingOrAssigned && canCancel(actor, dr) {
		out = append(out, ActionCancel)
	}
	if dr.Status == StatusCompleted && dr.Rating == nil && actor.Role == rbac.RoleCustomer && dr.CustomerID == actor.UserID {
		out = append(out, ActionRate)
	}
	return out
}

// Can reports whether action is among Actions(actor, r).
func Can(actor models.Actor, r Row, action string) bool {
	for _, a := range Actions(actor, r) {
		if a == action {
			return true
		}
	}
	return false
}
