// Package profile reads and updates the signed-in user's own details.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/argon"
	"wasteboard/infrastructure/audit"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/models"
)

type Profile struct {
	UserID       int64  `json:"id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	UnitID       *int64 `json:"unit_id,omitempty"`
	UnitName     string `json:"unit_name,omitempty"`
	DisplayName  string `json:"display_name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	EmailEnabled bool   `json:"email_notifications"`
}

type UpdateInput struct {
	DisplayName  string `json:"display_name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	EmailEnabled bool   `json:"email_notifications"`
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

func (s *Service) Load(ctx context.Context, userID int64) (Profile, error) {
	var p Profile
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		p, err = load(ctx, tx, userID)
		return err
	})
	return p, err
}

func load(ctx context.Context, tx bun.Tx, userID int64) (Profile, error) {
	var u models.User
	err := tx.NewSelect().Model(&u).Where("id = ?", userID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, fmt.Errorf("user %d: %w", userID, apperr.ErrNotFound)
	}
	if err != nil {
		return Profile{}, err
	}
	p := Profile{
		UserID:      u.ID,
		Username:    u.Username,
		Role:        u.Role,
		UnitID:      u.UnitID,
		DisplayName: u.DisplayName,
		Phone:       u.Phone,
		Address:     u.Address,
	}
	if u.UnitID != nil {
		if err := tx.NewRaw(`SELECT name FROM units WHERE id = ?`, *u.UnitID).Scan(ctx, &p.UnitName); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
	}
	var settings models.UserSettings
	err = tx.NewSelect().Model(&settings).Where("user_id = ?", userID).Limit(1).Scan(ctx)
	switch {
	case err == nil:
		p.EmailEnabled = settings.EmailEnabled
	case !errors.Is(err, sql.ErrNoRows):
		return p, err
	}
	return p, nil
}

// Update saves contact details and notification preferences, returning the refreshed user.
func (s *Service) Update(ctx context.Context, userID int64, in UpdateInput) (models.User, error) {
	var user models.User
	name := strings.TrimSpace(in.DisplayName)
	if len(name) > 120 {
		return user, apperr.Validation("display name is too long")
	}
	phone := strings.TrimSpace(in.Phone)
	if len(phone) > 32 {
		return user, apperr.Validation("phone number is too long")
	}
	for _, r := range phone {
		if !strings.ContainsRune("0123456789+-() ", r) {
			return user, apperr.Validation("phone number may only contain digits, spaces and + - ( )")
		}
	}
	err := s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		before, err := load(ctx, tx, userID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		user = models.User{ID: userID, DisplayName: name, Phone: phone, Address: strings.TrimSpace(in.Address), UpdatedAt: now}
		if _, err := tx.NewUpdate().Model(&user).Column("display_name", "phone", "address", "updated_at").WherePK().Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewRaw(`
INSERT INTO user_settings (user_id, email_enabled, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(user_id) DO UPDATE SET
  email_enabled = excluded.email_enabled,
  updated_at = CURRENT_TIMESTAMP`, userID, in.EmailEnabled).Exec(ctx); err != nil {
			return err
		}
		if err := tx.NewSelect().Model(&user).WherePK().Scan(ctx); err != nil {
			return err
		}
		after := before
		after.DisplayName, after.Phone, after.Address, after.EmailEnabled = user.DisplayName, user.Phone, user.Address, in.EmailEnabled
		return s.audit.WriteID(ctx, tx, userID, "profile.update", "user", userID, before, after)
	})
	return user, err
}

// ChangePassword verifies current and stores a new argon2id hash.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if err := argon.ValidatePasswordPolicy(next); err != nil {
		return apperr.Validation("%s", err.Error())
	}
	if current == next {
		return apperr.Validation("new password must differ from the current one")
	}
	return s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var hash string
		err := tx.NewRaw(`SELECT password_hash FROM users WHERE id = ?`, userID).Scan(ctx, &hash)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %d: %w", userID, apperr.ErrNotFound)
		}
		if err != nil {
			return err
		}
		ok, err := argon.ComparePasswordAndHash(current, hash)
		if err != nil || !ok {
			return apperr.Validation("current password is incorrect")
		}
		newHash, err := argon.CreateHash(next, argon.DefaultParams)
		if err != nil {
			return err
		}
		if _, err := tx.NewRaw(`UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, newHash, userID).Exec(ctx); err != nil {
			return err
		}
		return s.audit.WriteID(ctx, tx, userID, "profile.password", "user", userID, nil, nil)
	})
}
