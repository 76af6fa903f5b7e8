package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User represents an authenticated dashboard user.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Username     string    `bun:"username,unique,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Role         string    `bun:"role,notnull"`
	UnitID       *int64    `bun:"unit_id"`
	DisplayName  string    `bun:"display_name,notnull"`
	Phone        string    `bun:"phone,notnull"`
	Address      string    `bun:"address,notnull"`
	Active       bool      `bun:"active,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Name returns the display name, falling back to the username.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Session is used by middleware and auth handlers.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID                string         `bun:"id,pk"`
	UserID            int64          `bun:"user_id,notnull"`
	User              User           `bun:"rel:belongs-to,join:user_id=id"`
	UserRoles         []string       `bun:"-"`
	ScreenPermissions map[string]int `bun:"-"`
	ExpiresAt         time.Time      `bun:"expires_at,notnull"`
	CreatedAt         time.Time      `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt         time.Time      `bun:"updated_at,notnull,default:current_timestamp"`
}

// Expired returns true when the session expiry time has passed.
func (s Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Actor returns the authorization subject for the session user.
func (s Session) Actor() Actor {
	return Actor{UserID: s.UserID, Role: s.User.Role, UnitID: s.User.UnitID}
}

// Actor is the caller identity passed to domain services.
type Actor struct {
	UserID int64
	Role   string
	UnitID *int64
}

// InUnit reports whether the actor belongs to unitID.
func (a Actor) InUnit(unitID int64) bool {
	return a.UnitID != nil && *a.UnitID == unitID
}

// Unit is an organisational unit: a waste bank, a collection unit or an industry buyer.
type Unit struct {
	bun.BaseModel `bun:"table:units,alias:un"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Code      string    `bun:"code,notnull,unique"`
	Kind      string    `bun:"kind,notnull"`
	ParentID  *int64    `bun:"parent_id"`
	Address   string    `bun:"address,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// WasteCategory groups waste types (plastic, paper, metal...).
type WasteCategory struct {
	bun.BaseModel `bun:"table:waste_categories,alias:wc"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name,notnull,unique"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// WasteType is a sellable waste grade with a base price per kilogram.
type WasteType struct {
	bun.BaseModel `bun:"table:waste_types,alias:wt"`

	ID             int64     `bun:"id,pk,autoincrement"`
	CategoryID     int64     `bun:"category_id,notnull"`
	Name           string    `bun:"name,notnull"`
	BasePricePerKg int64     `bun:"base_price_per_kg,notnull"`
	Active         bool      `bun:"active,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// WastePrice overrides a type's base price for one waste bank unit.
type WastePrice struct {
	bun.BaseModel `bun:"table:waste_prices,alias:wp"`

	ID          int64     `bun:"id,pk,autoincrement"`
	UnitID      int64     `bun:"unit_id,notnull"`
	WasteTypeID int64     `bun:"waste_type_id,notnull"`
	PricePerKg  int64     `bun:"price_per_kg,notnull"`
	UpdatedBy   int64     `bun:"updated_by,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// DropRequest is a customer's pickup or drop-off submission.
type DropRequest struct {
	bun.BaseModel `bun:"table:drop_requests,alias:dr"`

	ID                  int64      `bun:"id,pk,autoincrement"`
	Reference           string     `bun:"reference,notnull,unique"`
	CustomerID          int64      `bun:"customer_id,notnull"`
	UnitID              int64      `bun:"unit_id,notnull"`
	DeliveryType        string     `bun:"delivery_type,notnull"`
	PickupAddress       string     `bun:"pickup_address,notnull"`
	ScheduledDate       time.Time  `bun:"scheduled_date,notnull"`
	Status              string     `bun:"status,notnull"`
	AssignedCollectorID *int64     `bun:"assigned_collector_id"`
	Notes               string     `bun:"notes,notnull"`
	CancelReason        string     `bun:"cancel_reason,notnull"`
	Rating              *int64     `bun:"rating"`
	RatingComment       string     `bun:"rating_comment,notnull"`
	AssignedAt          *time.Time `bun:"assigned_at"`
	StartedAt           *time.Time `bun:"started_at"`
	CompletedAt         *time.Time `bun:"completed_at"`
	CancelledAt         *time.Time `bun:"cancelled_at"`
	CreatedAt           time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt           time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// DropRequestItem is one waste line of a drop request.
type DropRequestItem struct {
	bun.BaseModel `bun:"table:drop_request_items,alias:dri"`

	ID             int64  `bun:"id,pk,autoincrement"`
	DropRequestID  int64  `bun:"drop_request_id,notnull"`
	WasteTypeID    int64  `bun:"waste_type_id,notnull"`
	EstimatedGrams int64  `bun:"estimated_grams,notnull"`
	ActualGrams    *int64 `bun:"actual_grams"`
	PricePerKg     *int64 `bun:"price_per_kg"`
	Value          *int64 `bun:"value"`
}

// TransferRequest moves waste stock between units.
type TransferRequest struct {
	bun.BaseModel `bun:"table:transfer_requests,alias:tr"`

	ID                int64      `bun:"id,pk,autoincrement"`
	Reference         string     `bun:"reference,notnull,unique"`
	SourceUnitID      int64      `bun:"source_unit_id,notnull"`
	DestinationUnitID int64      `bun:"destination_unit_id,notnull"`
	Status            string     `bun:"status,notnull"`
	RequestedBy       int64      `bun:"requested_by,notnull"`
	DecidedBy         *int64     `bun:"decided_by"`
	Notes             string     `bun:"notes,notnull"`
	RejectReason      string     `bun:"reject_reason,notnull"`
	DecidedAt         *time.Time `bun:"decided_at"`
	ShippedAt         *time.Time `bun:"shipped_at"`
	ReceivedAt        *time.Time `bun:"received_at"`
	CancelledAt       *time.Time `bun:"cancelled_at"`
	CreatedAt         time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt         time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// TransferRequestItem is one waste line of a transfer.
type TransferRequestItem struct {
	bun.BaseModel `bun:"table:transfer_request_items,alias:tri"`

	ID                int64 `bun:"id,pk,autoincrement"`
	TransferRequestID int64 `bun:"transfer_request_id,notnull"`
	WasteTypeID       int64 `bun:"waste_type_id,notnull"`
	Grams             int64 `bun:"grams,notnull"`
}

// UserSettings stores per-user notification preferences.
type UserSettings struct {
	bun.BaseModel `bun:"table:user_settings,alias:us"`

	UserID       int64     `bun:"user_id,pk"`
	EmailEnabled bool      `bun:"email_enabled,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// ExportRun records a completed CSV/XLSX download.
type ExportRun struct {
	bun.BaseModel `bun:"table:export_runs,alias:er"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UserID     *int64    `bun:"user_id"`
	ExportType string    `bun:"export_type,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// AuditLog captures immutable change history for key operations.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UserID     int64     `bun:"user_id,notnull"`
	Action     string    `bun:"action,notnull"`
	EntityType string    `bun:"entity_type,notnull"`
	EntityID   string    `bun:"entity_id,notnull"`
	BeforeJSON string    `bun:"before_json"`
	AfterJSON  string    `bun:"after_json"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
