package droprequests

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/jung-kurt/gofpdf"

	"wasteboard/frontend/shared/html"
	"wasteboard/infrastructure/dropreq"
)

// renderSlipPDF lays out one A5 pickup slip: barcode, parties, address and the item table.
func renderSlipPDF(d dropreq.Detail, printedAt time.Time) ([]byte, error) {
	reference := strings.TrimSpace(d.Reference)
	if reference == "" {
		return nil, fmt.Errorf("drop request %d has no reference", d.ID)
	}
	barcodePNG, err := renderCode128PNG(reference, 1000, 220)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle("Pickup slip "+reference, false)
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	// Core fonts are cp1252; names and addresses may carry accents.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(contentW, 9, tr("Waste "+deliveryTitle(d.DeliveryType)+" slip"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(contentW, 5, "Printed "+printedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	imageName := "slip-barcode-" + reference
	pdf.RegisterImageOptionsReader(imageName, opt, bytes.NewReader(barcodePNG))
	imgW, imgH := 100.0, 22.0
	y := pdf.GetY() + 3
	pdf.ImageOptions(imageName, (pageW-imgW)/2, y, imgW, imgH, false, opt, 0, "")
	pdf.SetY(y + imgH + 1)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, reference, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	rows := [][2]string{
		{"Status", dropreq.StatusLabel(d.Status)},
		{"Customer", d.CustomerName},
		{"Waste bank", d.UnitName},
		{"Scheduled", html.Date(d.ScheduledDate)},
	}
	if d.DeliveryType == dropreq.DeliveryPickup {
		rows = append(rows, [2]string{"Pickup address", orDash(d.PickupAddress)})
		rows = append(rows, [2]string{"Collector", orDash(d.CollectorName)})
	}
	if strings.TrimSpace(d.Notes) != "" {
		rows = append(rows, [2]string{"Notes", d.Notes})
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(34, 6, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(contentW-34, 6, tr(row[1]), "", "L", false)
	}
	pdf.Ln(3)

	cols := []float64{contentW * 0.40, contentW * 0.20, contentW * 0.20, contentW * 0.20}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 240, 236)
	for i, h := range []string{"Waste type", "Estimated", "Weighed", "Value"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(cols[i], 7, h, "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for _, it := range d.Items {
		actual, value := "-", "-"
		if it.ActualGrams != nil {
			actual = html.Weight(*it.ActualGrams)
		}
		if it.Value != nil {
			value = html.Money(*it.Value)
		}
		pdf.CellFormat(cols[0], 6, tr(it.TypeName+" ("+it.CategoryName+")"), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], 6, html.Weight(it.EstimatedGrams), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[2], 6, actual, "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], 6, value, "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(cols[0], 7, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(cols[1], 7, html.Weight(d.EstimatedGrams), "T", 0, "R", false, 0, "")
	pdf.CellFormat(cols[2], 7, html.Weight(d.ActualGrams), "T", 0, "R", false, 0, "")
	pdf.CellFormat(cols[3], 7, html.Money(d.TotalValue), "T", 1, "R", false, 0, "")

	pdf.Ln(14)
	half := contentW / 2
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(half-5, 6, "Customer signature", "T", 0, "C", false, 0, "")
	pdf.CellFormat(10, 6, "", "", 0, "C", false, 0, "")
	pdf.CellFormat(half-5, 6, "Collector / staff signature", "T", 1, "C", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func deliveryTitle(delivery string) string {
	if delivery == dropreq.DeliveryDropoff {
		return "drop-off"
	}
	return "pickup"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func renderCode128PNG(value string, width, height int) ([]byte, error) {
	code, err := code128.Encode(value)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, err
	}
	var barcodePNG bytes.Buffer
	if err := png.Encode(&barcodePNG, toNRGBA(scaled)); err != nil {
		return nil, err
	}
	return barcodePNG.Bytes(), nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
	return dst
}
