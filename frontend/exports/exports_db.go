package exports

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/uptrace/bun"
	"github.com/xuri/excelize/v2"

	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/infrastructure/transfer"
)

const stamp = "2006-01-02 15:04"

var dropRequestHeader = []string{"reference", "status", "delivery_type", "customer", "waste_bank", "collector", "scheduled_date", "pickup_address", "items", "estimated_kg", "actual_kg", "value", "rating", "created_at"}

var itemHeader = []string{"reference", "waste_type", "category", "estimated_kg", "actual_kg", "price_per_kg", "value"}

var transferHeader = []string{"reference", "status", "source", "destination", "destination_kind", "requested_by", "items", "kg", "notes", "reject_reason", "created_at"}

func kg(grams int64) string {
	return strconv.FormatFloat(float64(grams)/1000, 'f', 3, 64)
}

func optInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func optKg(v *int64) string {
	if v == nil {
		return ""
	}
	return kg(*v)
}

func dropRequestRecord(r dropreq.Row) []string {
	return []string{
		r.Reference, r.Status, r.DeliveryType, r.CustomerName, r.UnitName, r.CollectorName,
		r.ScheduledDate.Format("2006-01-02"), r.PickupAddress, strconv.Itoa(r.ItemCount),
		kg(r.EstimatedGrams), kg(r.ActualGrams), strconv.FormatInt(r.TotalValue, 10), optInt(r.Rating),
		r.CreatedAt.Format(stamp),
	}
}

func itemRecord(it dropreq.ExportItem) []string {
	return []string{it.Reference, it.TypeName, it.CategoryName, kg(it.EstimatedGrams), optKg(it.ActualGrams), optInt(it.PricePerKg), optInt(it.Value)}
}

func transferRecord(r transfer.Row) []string {
	return []string{
		r.Reference, r.Status, r.SourceName, r.DestinationName, r.DestinationKind, r.RequestedByName,
		strconv.Itoa(r.ItemCount), kg(r.TotalGrams), r.Notes, r.RejectReason, r.CreatedAt.Format(stamp),
	}
}

func writeCSV(w io.Writer, header []string, records [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(records); err != nil {
		return err
	}
	return writer.Error()
}

func writeDropRequestsCSV(w io.Writer, rows []dropreq.Row) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, dropRequestRecord(r))
	}
	return writeCSV(w, dropRequestHeader, records)
}

func writeTransfersCSV(w io.Writer, rows []transfer.Row) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, transferRecord(r))
	}
	return writeCSV(w, transferHeader, records)
}

// Workbook sheet names.
const (
	SheetDropRequests = "Drop requests"
	SheetItems        = "Items"
	SheetTransfers    = "Transfers"
)

// writeWorkbook renders one sheet per dataset with a bold, frozen header row.
func writeWorkbook(w io.Writer, rows []dropreq.Row, items []dropreq.ExportItem, transfers []transfer.Row) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetSheetName("Sheet1", SheetDropRequests); err != nil {
		return err
	}
	sheets := []struct {
		name    string
		header  []string
		records [][]string
	}{
		{name: SheetDropRequests, header: dropRequestHeader},
		{name: SheetItems, header: itemHeader},
		{name: SheetTransfers, header: transferHeader},
	}
	for _, r := range rows {
		sheets[0].records = append(sheets[0].records, dropRequestRecord(r))
	}
	for _, it := range items {
		sheets[1].records = append(sheets[1].records, itemRecord(it))
	}
	for _, r := range transfers {
		sheets[2].records = append(sheets[2].records, transferRecord(r))
	}

	for i, sh := range sheets {
		if i > 0 {
			if _, err := f.NewSheet(sh.name); err != nil {
				return err
			}
		}
		if err := writeSheetRow(f, sh.name, 1, sh.header); err != nil {
			return err
		}
		if err := f.SetRowStyle(sh.name, 1, 1, bold); err != nil {
			return err
		}
		if err := f.SetPanes(sh.name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return err
		}
		for n, rec := range sh.records {
			if err := writeSheetRow(f, sh.name, n+2, rec); err != nil {
				return err
			}
		}
	}
	f.SetActiveSheet(0)
	_, err = f.WriteTo(w)
	return err
}

func writeSheetRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return f.SetSheetRow(sheet, cell, &out)
}

func recordExportRun(ctx context.Context, db *sqlite.DB, userID *int64, exportType string) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var uid any
		if userID != nil {
			uid = *userID
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO export_runs (user_id, export_type, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)`, uid, exportType)
		if err != nil {
			return fmt.Errorf("record export run: %w", err)
		}
		return nil
	})
}
