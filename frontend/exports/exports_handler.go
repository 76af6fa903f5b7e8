// Package exports serves role-scoped CSV and XLSX downloads of drop requests and transfers.
package exports

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sessioncontext "wasteboard/frontend/shared/context"
	"wasteboard/frontend/shared/respond"
	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/infrastructure/transfer"
	"wasteboard/models"
)

type Services struct {
	DB        *sqlite.DB
	Requests  *dropreq.Service
	Transfers *transfer.Service
}

// filter reads the list query parameters; pagination is ignored by exports.
func filter(r *http.Request) dropreq.Filter {
	q := listing.Parse(r.URL.Query(), listing.DefaultLimits)
	f := dropreq.Filter{Query: q}
	if d := r.URL.Query().Get("delivery"); d == dropreq.DeliveryPickup || d == dropreq.DeliveryDropoff {
		f.Delivery = d
	}
	return f
}

func ExportsPageQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		data := PageData{Query: r.URL.RawQuery, Links: []Link{
			{Label: "Drop requests (CSV)", Href: Path + "/drop-requests.csv", Note: "One row per request"},
		}}
		if canSeeTransfers(actor) {
			data.Links = append(data.Links, Link{Label: "Transfers (CSV)", Href: Path + "/transfers.csv", Note: "One row per transfer"})
		}
		data.Links = append(data.Links, Link{Label: "Workbook (XLSX)", Href: Path + "/workbook.xlsx", Note: "Drop requests, items and transfers sheets"})
		respond.Page(w, r, "Exports", ExportsPage(data))
	}
}

func canSeeTransfers(actor models.Actor) bool {
	switch actor.Role {
	case rbac.RoleAdmin, rbac.RoleWastebankCentral, rbac.RoleWastebankUnit:
		return true
	}
	return false
}

func DropRequestsCSVHandler(svc Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		rows, _, err := svc.Requests.Export(r.Context(), actor, filter(r))
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		var buf bytes.Buffer
		if err := writeDropRequestsCSV(&buf, rows); err != nil {
			http.Error(w, "failed to export csv", http.StatusInternalServerError)
			return
		}
		serve(w, r, svc.DB, actor, TypeDropRequestsCSV, "text/csv; charset=utf-8", "drop-requests", "csv", buf.Bytes())
	}
}

func TransfersCSVHandler(svc Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		rows, err := svc.Transfers.Export(r.Context(), actor, filter(r).Query)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		var buf bytes.Buffer
		if err := writeTransfersCSV(&buf, rows); err != nil {
			http.Error(w, "failed to export csv", http.StatusInternalServerError)
			return
		}
		serve(w, r, svc.DB, actor, TypeTransfersCSV, "text/csv; charset=utf-8", "transfers", "csv", buf.Bytes())
	}
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func WorkbookHandler(svc Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		f := filter(r)
		rows, items, err := svc.Requests.Export(r.Context(), actor, f)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		transfers := []transfer.Row{}
		if canSeeTransfers(actor) {
			// Drop request statuses mean nothing to transfers.
			tq := f.Query
			tq.Status = ""
			if transfers, err = svc.Transfers.Export(r.Context(), actor, tq); err != nil {
				respond.LoadFailed(w, r, err)
				return
			}
		}
		var buf bytes.Buffer
		if err := writeWorkbook(&buf, rows, items, transfers); err != nil {
			slog.Error("exports: workbook failed", slog.Any("err", err))
			http.Error(w, "failed to export workbook", http.StatusInternalServerError)
			return
		}
		serve(w, r, svc.DB, actor, TypeWorkbookXLSX, xlsxContentType, "wasteboard", "xlsx", buf.Bytes())
	}
}

// serve writes a finished download and records the run; a failed record does not fail the download.
func serve(w http.ResponseWriter, r *http.Request, db *sqlite.DB, actor models.Actor, exportType, contentType, name, ext string, body []byte) {
	filename := name + "-" + time.Now().UTC().Format("20060102") + "." + ext
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if _, err := w.Write(body); err != nil {
		slog.Error("exports: write failed", slog.String("type", exportType), slog.Any("err", err))
		return
	}
	uid := actor.UserID
	if err := recordExportRun(r.Context(), db, &uid, exportType); err != nil {
		slog.Error("record export run failed", slog.String("type", exportType), slog.Any("err", err))
	}
}
