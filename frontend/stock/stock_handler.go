// Package stock renders waste bank stock and imports price list uploads.
package stock

import (
	"net/http"
	"strconv"

	"wasteboard/frontend/shared/context"
	"wasteboard/frontend/shared/respond"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/inventory"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/sqlite"
)

// StockPageQueryHandler shows the caller's unit stock. Central staff and admins
// may pick any waste bank with ?unit_id=.
func StockPageQueryHandler(db *sqlite.DB, inv *inventory.Service, base string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := context.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		data := PageData{Action: base}
		if actor.UnitID != nil {
			data.UnitID = *actor.UnitID
		}
		if actor.Role == rbac.RoleWastebankCentral || actor.Role == rbac.RoleAdmin {
			units, err := orgunit.List(r.Context(), db, orgunit.KindWastebankCentral, orgunit.KindWastebankUnit)
			if err != nil {
				respond.LoadFailed(w, r, err)
				return
			}
			data.Units = units
			if id, err := strconv.ParseInt(r.URL.Query().Get("unit_id"), 10, 64); err == nil && id > 0 {
				data.UnitID = id
			}
			if data.UnitID == 0 && len(units) > 0 {
				data.UnitID = units[0].ID
			}
		}
		if data.UnitID == 0 {
			http.Error(w, "no waste bank unit linked to this account", http.StatusForbidden)
			return
		}
		unit, err := orgunit.LoadByID(r.Context(), db, data.UnitID)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		data.UnitName = unit.Name
		if data.Stock, err = inv.Stock(r.Context(), actor, data.UnitID); err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		respond.Page(w, r, "Stock", StockPage(data))
	}
}

// PriceImportCommandHandler applies an uploaded price list to the caller's unit
// and redirects back to dest.
func PriceImportCommandHandler(cat *catalog.Service, dest string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := context.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if actor.UnitID == nil {
			respond.Message(w, r, dest, "no waste bank unit linked to this account")
			return
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			respond.Message(w, r, dest, "invalid upload")
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			respond.Message(w, r, dest, "file is required")
			return
		}
		defer file.Close()

		summary, err := ImportPricesCSV(r.Context(), cat, actor, *actor.UnitID, file)
		if err != nil {
			respond.Error(w, r, dest, err, "price import failed")
			return
		}
		respond.Status(w, r, dest, summary.String())
	}
}

func idString(id int64) string {
	if id <= 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
