// Package wastebankcentral mounts the central waste bank pages: overview, transfer approvals, units and catalog.
package wastebankcentral

import (
	"net/http"
	"strconv"

	"github.com/a-h/templ"

	sessioncontext "wasteboard/frontend/shared/context"
	"wasteboard/frontend/shared/html"
	"wasteboard/frontend/shared/respond"
	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/transfer"
)

const (
	BasePath      = "/dashboard/wastebank-central"
	TransfersPath = BasePath + "/transfers"
	StockPath     = BasePath + "/stock"
	UnitsPath     = BasePath + "/units"
	CatalogPath   = BasePath + "/catalog"
)

func OverviewPageQueryHandler(svc Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ov, err := LoadOverview(r.Context(), svc, actor)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		respond.Page(w, r, "Waste bank overview", OverviewPage(ov))
	}
}

func OverviewPage(ov Overview) templ.Component {
	return html.Component(func(b *html.Builder) {
		open := ov.Requests.Count(dropreq.StatusPending) + ov.Requests.Count(dropreq.StatusAssigned) + ov.Requests.Count(dropreq.StatusCollecting)
		b.Render(html.Cards([]html.Card{
			{Label: "Waste banks", Value: strconv.Itoa(len(ov.Units))},
			{Label: "Open requests", Value: strconv.Itoa(open)},
			{Label: "Collected", Value: html.Weight(ov.Requests.CompletedGrams)},
			{Label: "Paid to customers", Value: html.Money(ov.Requests.CompletedValue)},
			{Label: "Transfers to approve", Value: strconv.Itoa(ov.Transfers.Count(transfer.StatusPending))},
			{Label: "Average rating", Value: html.Rating(ov.Requests.AverageRating, ov.Requests.RatedCount)},
		}))
		if n := ov.Transfers.Count(transfer.StatusPending); n > 0 {
			b.F(`<p><a href="%s?status=%s">%d transfer(s) waiting for approval</a></p>`, TransfersPath, transfer.StatusPending, n)
		}
		b.Raw(`<h2>Per waste bank</h2><table><thead><tr><th>Unit</th><th class="num">Requests</th><th class="num">Pending</th><th class="num">Completed</th><th class="num">Collected</th><th class="num">Stock</th><th class="num">Stock value</th><th>Rating</th></tr></thead><tbody>`)
		if len(ov.Units) == 0 {
			b.Render(html.Empty(8, "No waste banks yet"))
		}
		for _, c := range ov.Units {
			b.F(`<tr><td><a href="%s?unit_id=%d">%s</a></td><td class="num">%d</td><td class="num">%d</td><td class="num">%d</td><td class="num">%s</td><td class="num">%s</td><td class="num">%s</td><td>%s</td></tr>`,
				StockPath, c.Unit.ID, c.Unit.Name,
				c.Requests.Total, c.Requests.Count(dropreq.StatusPending), c.Requests.Count(dropreq.StatusCompleted),
				html.Weight(c.Requests.CompletedGrams), html.Weight(c.Stock.TotalGrams), html.Money(c.Stock.TotalValue),
				html.Rating(c.Requests.AverageRating, c.Requests.RatedCount))
		}
		b.Raw(`</tbody></table>`)
	})
}
