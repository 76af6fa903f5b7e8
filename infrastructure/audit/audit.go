package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/uptrace/bun"

	"wasteboard/models"
)

// Service writes audit records inside the caller transaction.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) Write(ctx context.Context, tx bun.Tx, userID int64, action, entityType, entityID string, before, after any) error {
	beforeJSON, err := marshal(before)
	if err != nil {
		return fmt.Errorf("audit before: %w", err)
	}
	afterJSON, err := marshal(after)
	if err != nil {
		return fmt.Errorf("audit after: %w", err)
	}
	log := &models.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		BeforeJSON: beforeJSON,
		AfterJSON:  afterJSON,
	}
	_, err = tx.NewInsert().Model(log).Exec(ctx)
	return err
}

// WriteID is Write for integer entity ids.
func (s *Service) WriteID(ctx context.Context, tx bun.Tx, userID int64, action, entityType string, entityID int64, before, after any) error {
	return s.Write(ctx, tx, userID, action, entityType, strconv.FormatInt(entityID, 10), before, after)
}

// Entry is an audit row joined with the acting username.
type Entry struct {
	ID         int64  `bun:"id"`
	CreatedAt  string `bun:"created_at"`
	Actor      string `bun:"actor"`
	Action     string `bun:"action"`
	EntityType string `bun:"entity_type"`
	EntityID   string `bun:"entity_id"`
	BeforeJSON string `bun:"before_json"`
	AfterJSON  string `bun:"after_json"`
}

// Filter narrows List; zero values match everything.
type Filter struct {
	EntityType string
	EntityID   string
	Action     string
	Limit      int
	Offset     int
}

// List returns audit entries newest first.
func List(ctx context.Context, db bun.IDB, f Filter) ([]Entry, int, error) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if f.EntityType != "" {
		where = append(where, "al.entity_type = ?")
		args = append(args, f.EntityType)
	}
	if f.EntityID != "" {
		where = append(where, "al.entity_id = ?")
		args = append(args, f.EntityID)
	}
	if f.Action != "" {
		where = append(where, "al.action LIKE ?")
		args = append(args, strings.TrimSuffix(f.Action, "%")+"%")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.NewRaw(`SELECT COUNT(1) FROM audit_logs al`+clause, args...).Scan(ctx, &total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows := make([]Entry, 0)
	q := `
SELECT al.id,
       COALESCE(strftime('%d/%m/%Y %H:%M', al.created_at), '') AS created_at,
       COALESCE(u.username, '-') AS actor,
       al.action, al.entity_type, al.entity_id,
       COALESCE(al.before_json, '') AS before_json,
       COALESCE(al.after_json, '') AS after_json
FROM audit_logs al
LEFT JOIN users u ON u.id = al.user_id` + clause + `
ORDER BY al.created_at DESC, al.id DESC
LIMIT ? OFFSET ?`
	if err := db.NewRaw(q, append(args, limit, f.Offset)...).Scan(ctx, &rows); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func marshal(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
