package stock

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/catalog"
	"wasteboard/models"
)

// ImportSummary counts the outcome of one price list upload.
type ImportSummary struct {
	Updated   int
	Unchanged int
	Errors    int
}

func (s ImportSummary) String() string {
	return fmt.Sprintf("Imported: %d updated, %d unchanged, %d errors", s.Updated, s.Unchanged, s.Errors)
}

var ErrInvalidHeader = apperr.Validation("invalid CSV header; expected waste_type,price_per_kg")

// ImportPricesCSV reads waste_type,price_per_kg rows and overrides unitID's prices.
// Types are matched by name, case-insensitively, against the active catalog.
// Bad rows are counted and skipped; scope and database errors abort the import.
func ImportPricesCSV(ctx context.Context, cat *catalog.Service, actor models.Actor, unitID int64, reader io.Reader) (ImportSummary, error) {
	summary := ImportSummary{}
	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return summary, apperr.Validation("unreadable CSV: %v", err)
	}
	if len(header) < 2 || !strings.EqualFold(strings.TrimSpace(header[0]), "waste_type") || !strings.EqualFold(strings.TrimSpace(header[1]), "price_per_kg") {
		return summary, ErrInvalidHeader
	}

	table, err := cat.PriceTable(ctx, unitID)
	if err != nil {
		return summary, err
	}
	byName := make(map[string]catalog.PriceRow, len(table))
	for _, row := range table {
		byName[strings.ToLower(row.Name)] = row
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(record) < 2 {
			summary.Errors++
			continue
		}
		row, ok := byName[strings.ToLower(strings.TrimSpace(record[0]))]
		if !ok {
			summary.Errors++
			continue
		}
		price, err := parsePrice(record[1])
		if err != nil {
			summary.Errors++
			continue
		}
		if row.Overridden && row.PricePerKg == price {
			summary.Unchanged++
			continue
		}
		if err := cat.SetPrice(ctx, actor, unitID, row.ID, price); err != nil {
			return summary, err
		}
		summary.Updated++
	}
	return summary, nil
}

// parsePrice accepts whole currency amounts with optional thousands dots, e.g. "3.500".
func parsePrice(raw string) (int64, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ".", "")
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid price %q", raw)
	}
	return v, nil
}
