// Package collector manages field collectors and their task statistics.
package collector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/audit"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/models"
)

const (
	FilterActive   = "active"
	FilterInactive = "inactive"

	SortName      = "name"
	SortRating    = "rating"
	SortCompleted = "completed"
)

// Row is one collector with workload and rating statistics.
type Row struct {
	UserID         int64   `bun:"id" json:"id"`
	Username       string  `bun:"username" json:"username"`
	Name           string  `bun:"name" json:"name"`
	Phone          string  `bun:"phone" json:"phone"`
	UnitID         *int64  `bun:"unit_id" json:"unit_id,omitempty"`
	UnitName       string  `bun:"unit_name" json:"unit_name"`
	Active         bool    `bun:"active" json:"active"`
	ActiveTasks    int     `bun:"active_tasks" json:"active_tasks"`
	Completed      int     `bun:"completed" json:"completed"`
	CollectedGrams int64   `bun:"collected_grams" json:"collected_grams"`
	AverageRating  float64 `bun:"average_rating" json:"average_rating"`
	RatedCount     int     `bun:"rated_count" json:"rated_count"`
}

// Summary totals a collector list.
type Summary struct {
	Total          int     `json:"total"`
	Active         int     `json:"active"`
	OpenTasks      int     `json:"open_tasks"`
	CollectedGrams int64   `json:"collected_grams"`
	AverageRating  float64 `json:"average_rating"`
}

// Option is a dropdown entry for assignment forms.
type Option struct {
	ID          int64  `bun:"id" json:"id"`
	Name        string `bun:"name" json:"name"`
	UnitName    string `bun:"unit_name" json:"unit_name"`
	ActiveTasks int    `bun:"active_tasks" json:"active_tasks"`
}

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

const statsSQL = `
SELECT u.id, u.username,
       COALESCE(NULLIF(u.display_name, ''), u.username) AS name,
       u.phone, u.unit_id, COALESCE(un.name, '') AS unit_name, u.active,
       (SELECT COUNT(1) FROM drop_requests d WHERE d.assigned_collector_id = u.id AND d.status IN ('assigned', 'collecting')) AS active_tasks,
       (SELECT COUNT(1) FROM drop_requests d WHERE d.assigned_collector_id = u.id AND d.status = 'completed') AS completed,
       COALESCE((SELECT SUM(i.actual_grams) FROM drop_request_items i JOIN drop_requests d ON d.id = i.drop_request_id
                 WHERE d.assigned_collector_id = u.id AND d.status = 'completed'), 0) AS collected_grams,
       COALESCE((SELECT AVG(d.rating) FROM drop_requests d WHERE d.assigned_collector_id = u.id AND d.rating IS NOT NULL), 0) AS average_rating,
       (SELECT COUNT(d.rating) FROM drop_requests d WHERE d.assigned_collector_id = u.id) AS rated_count
FROM users u
LEFT JOIN units un ON un.id = u.unit_id
WHERE u.role = ?`

func (s *Service) all(ctx context.Context) ([]Row, error) {
	rows := make([]Row, 0)
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(statsSQL+` ORDER BY name COLLATE NOCASE ASC, u.id ASC`, rbac.RoleCollectorUnit).Scan(ctx, &rows)
	})
	return rows, err
}

// List filters on q.Status (active|inactive), q.Search and q.UnitID, sorts by q.Sort and paginates in memory.
// The summary covers every collector matched before pagination.
func (s *Service) List(ctx context.Context, q listing.Query, basePath string) ([]Row, listing.Pagination, Summary, error) {
	rows, err := s.all(ctx)
	if err != nil {
		return nil, listing.Pagination{}, Summary{}, err
	}
	rows = listing.Filter(rows, func(r Row) bool {
		switch q.Status {
		case FilterActive:
			if !r.Active {
				return false
			}
		case FilterInactive:
			if r.Active {
				return false
			}
		}
		if q.UnitID > 0 && (r.UnitID == nil || *r.UnitID != q.UnitID) {
			return false
		}
		return listing.ContainsFold(q.Search, r.Name, r.Username, r.UnitName, r.Phone)
	})
	sortRows(rows, q.Sort)
	sum := Summarize(rows)
	page, p := listing.Paginate(rows, q, basePath)
	return page, p, sum, nil
}

func sortRows(rows []Row, by string) {
	switch by {
	case SortRating:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].AverageRating > rows[j].AverageRating })
	case SortCompleted:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Completed > rows[j].Completed })
	default:
		sort.SliceStable(rows, func(i, j int) bool { return strings.ToLower(rows[i].Name) < strings.ToLower(rows[j].Name) })
	}
}

// Summarize averages ratings over collectors that have been rated at least once.
func Summarize(rows []Row) Summary {
	var sum Summary
	var ratingTotal float64
	rated := 0
	for _, r := range rows {
		sum.Total++
		if r.Active {
			sum.Active++
		}
		sum.OpenTasks += r.ActiveTasks
		sum.CollectedGrams += r.CollectedGrams
		if r.RatedCount > 0 {
			ratingTotal += r.AverageRating
			rated++
		}
	}
	if rated > 0 {
		sum.AverageRating = ratingTotal / float64(rated)
	}
	return sum
}

// Options lists active collectors for assignment.
func (s *Service) Options(ctx context.Context) ([]Option, error) {
	opts := make([]Option, 0)
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT u.id, COALESCE(NULLIF(u.display_name, ''), u.username) AS name, COALESCE(un.name, '') AS unit_name,
       (SELECT COUNT(1) FROM drop_requests d WHERE d.assigned_collector_id = u.id AND d.status IN ('assigned', 'collecting')) AS active_tasks
FROM users u
LEFT JOIN units un ON un.id = u.unit_id
WHERE u.role = ? AND u.active = 1
ORDER BY name COLLATE NOCASE ASC`, rbac.RoleCollectorUnit).Scan(ctx, &opts)
	})
	return opts, err
}

// SetActive toggles a collector. Deactivation is refused while they hold open tasks.
func (s *Service) SetActive(ctx context.Context, actor models.Actor, userID int64, active bool) (models.User, error) {
	var user models.User
	if actor.Role != rbac.RoleCollectorCentral && actor.Role != rbac.RoleAdmin {
		return user, apperr.ErrForbidden
	}
	err := s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(&user).Where("id = ?", userID).Limit(1).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && user.Role != rbac.RoleCollectorUnit) {
			return fmt.Errorf("collector %d: %w", userID, apperr.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if user.Active == active {
			return nil
		}
		if !active {
			var open int
			if err := tx.NewRaw(`SELECT COUNT(1) FROM drop_requests WHERE assigned_collector_id = ? AND status IN ('assigned', 'collecting')`, userID).Scan(ctx, &open); err != nil {
				return err
			}
			if open > 0 {
				return fmt.Errorf("%w: %s still has %d open task(s)", apperr.ErrConflict, user.Name(), open)
			}
		}
		before := user
		user.Active = active
		user.UpdatedAt = time.Now().UTC()
		if _, err := tx.NewUpdate().Model(&user).Column("active", "updated_at").WherePK().Exec(ctx); err != nil {
			return err
		}
		action := "collector.activate"
		if !active {
			action = "collector.deactivate"
		}
		return s.audit.WriteID(ctx, tx, actor.UserID, action, "user", userID, map[string]bool{"active": before.Active}, map[string]bool{"active": active})
	})
	return user, err
}
