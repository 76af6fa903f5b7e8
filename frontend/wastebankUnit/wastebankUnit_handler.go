// Package wastebankunit mounts the waste bank unit pages: incoming requests, prices, stock and transfers.
package wastebankunit

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	droprequests "wasteboard/frontend/dropRequests"
	sessioncontext "wasteboard/frontend/shared/context"
	"wasteboard/frontend/shared/html"
	"wasteboard/frontend/shared/respond"
	"wasteboard/frontend/stock"
	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/listing"
	"wasteboard/models"
)

const (
	BasePath      = "/dashboard/wastebank-unit"
	RequestsPath  = BasePath + "/requests"
	PricesPath    = BasePath + "/prices"
	StockPath     = BasePath + "/stock"
	TransfersPath = BasePath + "/transfers"
)

// RequestsConfig lists requests addressed to the caller's unit.
func RequestsConfig() droprequests.ListConfig {
	return droprequests.ListConfig{
		Title: "Incoming drop requests",
		Base:  BasePath,
		Table: droprequests.TableOptions{DetailBase: RequestsPath, ShowCustomer: true, ShowCollector: true},
		Actions: func(_ *http.Request, actor models.Actor, _ string) (func(dropreq.Row) templ.Component, error) {
			return func(r dropreq.Row) templ.Component {
				return rowActions(actor, r)
			}, nil
		},
	}
}

func rowActions(actor models.Actor, r dropreq.Row) templ.Component {
	return html.Component(func(b *html.Builder) {
		for _, a := range dropreq.Actions(actor, r) {
			switch a {
			case dropreq.ActionAssign:
				b.F(`<a href="%s/%d">Assign</a> `, RequestsPath, r.ID)
			case dropreq.ActionReceive:
				b.F(`<a href="%s/%d">Weigh</a> `, RequestsPath, r.ID)
			}
		}
	})
}

func RequestsPageQueryHandler(svc droprequests.Services, limits listing.Limits) http.HandlerFunc {
	return droprequests.ListPageQueryHandler(svc, RequestsConfig(), limits)
}

func RequestDetailPageQueryHandler(svc droprequests.Services) http.HandlerFunc {
	return droprequests.DetailPageQueryHandler(svc, RequestsPath, BasePath)
}

// PricesPageQueryHandler shows the effective price of every active waste type at the caller's unit.
func PricesPageQueryHandler(cat *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if actor.UnitID == nil {
			respond.LoadFailed(w, r, apperr.ErrForbidden)
			return
		}
		rows, err := cat.PriceTable(r.Context(), *actor.UnitID)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		q := r.URL.Query()
		search := strings.TrimSpace(q.Get("q"))
		rows = listing.Filter(rows, func(p catalog.PriceRow) bool {
			return listing.ContainsFold(search, p.Name, p.CategoryName)
		})
		respond.Page(w, r, "Prices", PricesPage(rows, search))
	}
}

// SetPriceCommandHandler overrides the price of waste type {id} at the caller's unit.
func SetPriceCommandHandler(cat *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		typeID, ok := respond.ID(r, "id")
		if !ok || actor.UnitID == nil {
			respond.Message(w, r, PricesPath, "invalid waste type")
			return
		}
		price, err := ParsePrice(r.FormValue("price_per_kg"))
		if err != nil {
			respond.Error(w, r, PricesPath, err, "invalid price")
			return
		}
		if err := cat.SetPrice(r.Context(), actor, *actor.UnitID, typeID, price); err != nil {
			respond.Error(w, r, PricesPath, err, "failed to save price")
			return
		}
		respond.Status(w, r, PricesPath, "price saved")
	}
}

// ResetPriceCommandHandler drops the unit override of waste type {id}.
func ResetPriceCommandHandler(cat *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		typeID, ok := respond.ID(r, "id")
		if !ok || actor.UnitID == nil {
			respond.Message(w, r, PricesPath, "invalid waste type")
			return
		}
		if err := cat.ResetPrice(r.Context(), actor, *actor.UnitID, typeID); err != nil {
			respond.Error(w, r, PricesPath, err, "failed to reset price")
			return
		}
		respond.Status(w, r, PricesPath, "base price restored")
	}
}

func PriceImportCommandHandler(cat *catalog.Service) http.HandlerFunc {
	return stock.PriceImportCommandHandler(cat, PricesPath)
}

func PricesPage(rows []catalog.PriceRow, search string) templ.Component {
	return html.Component(func(b *html.Builder) {
		b.F(`<form class="filters" method="get" action="%s"><input type="search" name="q" value="%s" placeholder="Type or category"> <button type="submit">Filter</button></form>`, PricesPath, search)
		b.Render(stock.ImportForm(PricesPath + "/import"))
		b.Raw(`<table><thead><tr><th>Category</th><th>Type</th><th class="num">Base price</th><th class="num">Unit price / kg</th><th></th></tr></thead><tbody>`)
		if len(rows) == 0 {
			b.Render(html.Empty(5, "No waste types"))
		}
		for _, p := range rows {
			b.F(`<tr><td>%s</td><td>%s</td><td class="num">%s</td><td class="num">`, p.CategoryName, p.Name, html.Money(p.BasePricePerKg))
			b.F(`<form class="inline" method="post" action="%s/%d"><input name="price_per_kg" value="%d" size="8" inputmode="numeric"> <button type="submit">Save</button></form>`, PricesPath, p.ID, p.PricePerKg)
			b.Raw(`</td><td>`)
			if p.Overridden {
				b.Render(html.PostButton(fmt.Sprintf("%s/%d/reset", PricesPath, p.ID), "Use base price", "secondary"))
			}
			b.Raw(`</td></tr>`)
		}
		b.Raw(`</tbody></table>`)
	})
}
