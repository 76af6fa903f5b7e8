package orgunit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/uptrace/bun"

	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/models"
)

const (
	KindWastebankCentral = "wastebank_central"
	KindWastebankUnit    = "wastebank_unit"
	KindCollectorUnit    = "collector_unit"
	KindIndustry         = "industry"
)

// Kinds lists unit kinds in display order.
func Kinds() []string {
	return []string{KindWastebankCentral, KindWastebankUnit, KindCollectorUnit, KindIndustry}
}

func IsValidKind(kind string) bool {
	for _, k := range Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// IsWastebank reports whether kind holds waste stock.
func IsWastebank(kind string) bool {
	return kind == KindWastebankCentral || kind == KindWastebankUnit
}

func KindLabel(kind string) string {
	switch kind {
	case KindWastebankCentral:
		return "Central waste bank"
	case KindWastebankUnit:
		return "Waste bank unit"
	case KindCollectorUnit:
		return "Collection unit"
	case KindIndustry:
		return "Industry"
	default:
		return kind
	}
}

type CreateInput struct {
	Name     string
	Kind     string
	Address  string
	ParentID *int64
	Code     string
}

// List returns units ordered by kind then name. Empty kinds lists everything.
func List(ctx context.Context, db *sqlite.DB, kinds ...string) ([]models.Unit, error) {
	units := make([]models.Unit, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().Model(&units).OrderExpr("kind ASC, name COLLATE NOCASE ASC")
		if len(kinds) > 0 {
			q = q.Where("kind IN (?)", bun.In(kinds))
		}
		return q.Scan(ctx)
	})
	return units, err
}

func LoadByID(ctx context.Context, db *sqlite.DB, id int64) (models.Unit, error) {
	var u models.Unit
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		u, err = LoadByIDTx(ctx, tx, id)
		return err
	})
	return u, err
}

// LoadByIDTx loads a unit inside an existing transaction.
func LoadByIDTx(ctx context.Context, tx bun.Tx, id int64) (models.Unit, error) {
	var u models.Unit
	err := tx.NewSelect().Model(&u).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return u, fmt.Errorf("unit %d: %w", id, apperr.ErrNotFound)
	}
	return u, err
}

// Names maps unit id to name for the given ids.
func Names(ctx context.Context, tx bun.Tx, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows := make([]struct {
		ID   int64  `bun:"id"`
		Name string `bun:"name"`
	}, 0)
	if err := tx.NewRaw(`SELECT id, name FROM units WHERE id IN (?)`, bun.In(ids)).Scan(ctx, &rows); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.Name
	}
	return out, nil
}

func Create(ctx context.Context, db *sqlite.DB, input CreateInput) (models.Unit, error) {
	var unit models.Unit
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return unit, apperr.Validation("unit name is required")
	}
	kind := strings.TrimSpace(input.Kind)
	if !IsValidKind(kind) {
		return unit, apperr.Validation("invalid unit kind %q", kind)
	}
	code := normalizeCode(input.Code)
	if code == "" {
		code = normalizeCode(name)
	}
	if code == "" {
		code = "unit"
	}

	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if kind == KindWastebankCentral {
			var centrals int
			if err := tx.NewRaw(`SELECT COUNT(1) FROM units WHERE kind = ?`, KindWastebankCentral).Scan(ctx, &centrals); err != nil {
				return err
			}
			if centrals > 0 {
				return fmt.Errorf("%w: a central waste bank already exists", apperr.ErrConflict)
			}
		}
		if input.ParentID != nil {
			if _, err := LoadByIDTx(ctx, tx, *input.ParentID); err != nil {
				return apperr.Validation("parent unit not found")
			}
		}
		var dupes int
		if err := tx.NewRaw(`SELECT COUNT(1) FROM units WHERE kind = ? AND name = ? COLLATE NOCASE`, kind, name).Scan(ctx, &dupes); err != nil {
			return err
		}
		if dupes > 0 {
			return fmt.Errorf("%w: %s %q already exists", apperr.ErrConflict, KindLabel(kind), name)
		}
		uniqueCode, err := nextUniqueCode(ctx, tx, code)
		if err != nil {
			return err
		}
		unit = models.Unit{
			Name:     name,
			Code:     uniqueCode,
			Kind:     kind,
			ParentID: input.ParentID,
			Address:  strings.TrimSpace(input.Address),
		}
		_, err = tx.NewInsert().Model(&unit).Exec(ctx)
		return err
	})
	return unit, err
}

// CentralID returns the id of the central waste bank, if one exists.
func CentralID(ctx context.Context, db *sqlite.DB) (*int64, error) {
	var id int64
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT id FROM units WHERE kind = ? ORDER BY id ASC LIMIT 1`, KindWastebankCentral).Scan(ctx, &id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

var slugRegex = regexp.MustCompile(`[^a-z0-9]+`)

func normalizeCode(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = slugRegex.ReplaceAllString(v, "-")
	v = strings.Trim(v, "-")
	if len(v) > 64 {
		v = v[:64]
	}
	return v
}

func nextUniqueCode(ctx context.Context, tx bun.Tx, baseCode string) (string, error) {
	try := baseCode
	for i := 0; i < 1000; i++ {
		var count int
		if err := tx.NewRaw(`SELECT COUNT(1) FROM units WHERE code = ?`, try).Scan(ctx, &count); err != nil {
			return "", err
		}
		if count == 0 {
			return try, nil
		}
		try = fmt.Sprintf("%s-%d", baseCode, i+2)
	}
	return "", fmt.Errorf("unable to find unique unit code")
}
