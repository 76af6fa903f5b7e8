package adminusers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"wasteboard/infrastructure/argon"
	"wasteboard/infrastructure/audit"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/models"
)

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUnitRequired     = errors.New("unit is required for this role")
	ErrUnitNotAllowed   = errors.New("this role does not belong to a unit")
	ErrUnitKindMismatch = errors.New("unit kind does not match role")
	ErrUsernameExists   = errors.New("username already exists")
	ErrUserNotFound     = errors.New("user not found")
	ErrSelfDeactivation = errors.New("you cannot deactivate your own account")
)

const usersFrom = `
FROM users u
LEFT JOIN units un ON un.id = u.unit_id`

func usersWhere(q listing.Query, role string) (string, []any) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if role != "" {
		where = append(where, "u.role = ?")
		args = append(args, role)
	}
	if q.Search != "" {
		like := listing.LikePattern(q.Search)
		where = append(where, `(LOWER(u.username) LIKE ? ESCAPE '\' OR LOWER(u.display_name) LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// LoadUsersPageData returns one page of users filtered by role and search.
func LoadUsersPageData(ctx context.Context, db *sqlite.DB, q listing.Query, role, basePath string) (PageData, error) {
	data := PageData{Query: q, Role: role, Users: make([]UserView, 0)}
	where, args := usersWhere(q, role)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var total int
		if err := tx.NewRaw("SELECT COUNT(1)"+usersFrom+where, args...).Scan(ctx, &total); err != nil {
			return err
		}
		data.Pagination = listing.NewPagination(q, total, basePath)
		if err := tx.NewRaw(`
SELECT u.id, u.username, u.display_name, u.role, COALESCE(un.name, '') AS unit_name, u.active,
       COALESCE(strftime('%d/%m/%Y', u.created_at), '') AS created_at`+usersFrom+where+`
ORDER BY u.username COLLATE NOCASE ASC
LIMIT ? OFFSET ?`, append(args, q.PageSize, q.Offset())...).Scan(ctx, &data.Users); err != nil {
			return err
		}
		units, err := loadUnitOptions(ctx, tx)
		data.Units = units
		return err
	})
	return data, err
}

func loadUnitOptions(ctx context.Context, tx bun.Tx) ([]UnitOption, error) {
	units := make([]UnitOption, 0)
	err := tx.NewRaw(`SELECT id, name AS label, kind FROM units ORDER BY kind ASC, name COLLATE NOCASE ASC`).Scan(ctx, &units)
	return units, err
}

// CreateUser validates role/unit compatibility and stores an argon2id hash.
func CreateUser(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID int64, in CreateInput) (models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Password = strings.TrimSpace(in.Password)
	in.Role = strings.TrimSpace(in.Role)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if in.Username == "" {
		return models.User{}, ErrUsernameRequired
	}
	if in.Password == "" {
		return models.User{}, ErrPasswordRequired
	}
	if !rbac.IsValidRole(in.Role) {
		return models.User{}, ErrInvalidRole
	}
	wantKind, needsUnit := rbac.RequiredUnitKind(in.Role)
	if needsUnit && in.UnitID == nil {
		return models.User{}, ErrUnitRequired
	}
	if !needsUnit && in.UnitID != nil {
		return models.User{}, ErrUnitNotAllowed
	}
	if err := argon.ValidatePasswordPolicy(in.Password); err != nil {
		return models.User{}, err
	}
	hash, err := argon.CreateHash(in.Password, argon.DefaultParams)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Username:     in.Username,
		PasswordHash: hash,
		Role:         in.Role,
		UnitID:       in.UnitID,
		DisplayName:  in.DisplayName,
		Active:       true,
	}
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var exists int
		if err := tx.NewRaw(`SELECT COUNT(1) FROM users WHERE LOWER(username) = LOWER(?)`, in.Username).Scan(ctx, &exists); err != nil {
			return err
		}
		if exists > 0 {
			return ErrUsernameExists
		}
		if needsUnit {
			var kind string
			if err := tx.NewRaw(`SELECT kind FROM units WHERE id = ?`, *in.UnitID).Scan(ctx, &kind); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrUnitRequired
				}
				return err
			}
			if kind != wantKind {
				return fmt.Errorf("%w: %s needs a %s unit", ErrUnitKindMismatch, rbac.Label(in.Role), wantKind)
			}
		}
		if _, err := tx.NewInsert().Model(&user).Exec(ctx); err != nil {
			if sqlite.IsUniqueViolation(err) {
				return ErrUsernameExists
			}
			return err
		}
		after := map[string]any{"username": user.Username, "role": user.Role, "unit_id": user.UnitID}
		return auditSvc.WriteID(ctx, tx, actorID, "user.create", "user", user.ID, nil, after)
	})
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// SetUserActive toggles sign-in for any account except the caller's own.
func SetUserActive(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, userID int64, active bool) (models.User, error) {
	if userID == actorID && !active {
		return models.User{}, ErrSelfDeactivation
	}
	var user models.User
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&user).Where("id = ?", userID).Limit(1).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return err
		}
		before := map[string]any{"active": user.Active}
		user.Active = active
		if _, err := tx.NewUpdate().Model(&user).Column("active").Set("updated_at = CURRENT_TIMESTAMP").WherePK().Exec(ctx); err != nil {
			return err
		}
		action := "user.deactivate"
		if active {
			action = "user.activate"
		}
		return auditSvc.WriteID(ctx, tx, actorID, action, "user", user.ID, before, map[string]any{"active": active})
	})
	return user, err
}
