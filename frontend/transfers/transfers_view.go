package transfers

import (
	"fmt"
	"strconv"

	"github.com/a-h/templ"

	"wasteboard/frontend/shared/html"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/inventory"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/transfer"
	"wasteboard/models"
)

func statusOptions() []html.Option {
	out := make([]html.Option, 0, len(transfer.Statuses()))
	for _, s := range transfer.Statuses() {
		out = append(out, html.Option{Value: s, Label: transfer.StatusLabel(s)})
	}
	return out
}

// ListData feeds one transfer list page.
type ListData struct {
	Base       string
	Query      listing.Query
	Rows       []transfer.Row
	Pagination listing.Pagination
	Summary    transfer.Summary
	Units      []models.Unit
	CanCreate  bool
	RowActions func(transfer.Row) templ.Component
}

func ListBody(data ListData) templ.Component {
	return html.Component(func(b *html.Builder) {
		if data.CanCreate {
			b.F(`<p><a class="button" href="%s/new">New transfer</a></p>`, data.Base)
		}
		b.Render(html.Cards([]html.Card{
			{Label: "Transfers", Value: strconv.Itoa(data.Summary.Total)},
			{Label: "Awaiting approval", Value: strconv.Itoa(data.Summary.Count(transfer.StatusPending))},
			{Label: "In transit", Value: strconv.Itoa(data.Summary.Count(transfer.StatusInTransit))},
			{Label: "Moved", Value: html.Weight(data.Summary.MovedGrams)},
		}))
		b.Render(html.Tabs(html.StatusTabs(data.Base, data.Query, transfer.Statuses(), transfer.StatusLabel, data.Summary.Count)))
		units := make([]html.Option, 0, len(data.Units))
		for _, u := range data.Units {
			units = append(units, html.IDOption(u.ID, u.Name))
		}
		b.Render(html.Filters(html.FilterForm{
			Action:   data.Base,
			Query:    data.Query,
			Statuses: statusOptions(),
			Units:    units,
			Dates:    true,
			Search:   "Reference or unit",
		}))
		b.Render(Table(data.Rows, data.Base, data.RowActions))
		b.Render(html.Pager(data.Pagination))
	})
}

func Table(rows []transfer.Row, base string, actions func(transfer.Row) templ.Component) templ.Component {
	return html.Component(func(b *html.Builder) {
		cols := 7
		b.Raw(`<table><thead><tr><th>Reference</th><th>Created</th><th>From</th><th>To</th><th class="num">Weight</th><th>Requested by</th><th>Status</th>`)
		if actions != nil {
			b.Raw(`<th></th>`)
			cols++
		}
		b.Raw(`</tr></thead><tbody>`)
		if len(rows) == 0 {
			b.Render(html.Empty(cols, "No transfers match the filters"))
		}
		for _, r := range rows {
			b.F(`<tr><td><a href="%s/%d">%s</a></td><td>%s</td><td>%s</td><td>%s</td><td class="num">%s</td><td>%s</td><td>%s</td>`,
				base, r.ID, r.Reference, html.Date(r.CreatedAt), r.SourceName, r.DestinationName,
				html.Weight(r.TotalGrams), r.RequestedByName, html.StatusBadge(r.Status, transfer.StatusLabel(r.Status)))
			if actions != nil {
				b.Raw(`<td>`)
				b.Render(actions(r))
				b.Raw(`</td>`)
			}
			b.Raw(`</tr>`)
		}
		b.Raw(`</tbody></table>`)
	})
}

// DetailView is one transfer plus the actions the viewer may take.
type DetailView struct {
	Detail  transfer.Detail
	Base    string
	Allowed []string
}

func DetailBody(v DetailView) templ.Component {
	d := v.Detail
	action := func(name string) string { return fmt.Sprintf("%s/%d/%s", v.Base, d.ID, name) }
	return html.Component(func(b *html.Builder) {
		b.F(`<p><a href="%s">&larr; Back</a></p>`, v.Base)
		b.Raw(`<div class="grid-2"><dl class="meta">`)
		b.F(`<dt>Reference</dt><dd>%s</dd><dt>Status</dt><dd>%s</dd>`, d.Reference, html.StatusBadge(d.Status, transfer.StatusLabel(d.Status)))
		b.F(`<dt>From</dt><dd>%s</dd><dt>To</dt><dd>%s (%s)</dd>`, d.SourceName, d.DestinationName, orgunit.KindLabel(d.DestinationKind))
		b.F(`<dt>Requested by</dt><dd>%s</dd><dt>Created</dt><dd>%s</dd>`, d.RequestedByName, html.DateTime(&d.CreatedAt))
		if d.Notes != "" {
			b.F(`<dt>Notes</dt><dd>%s</dd>`, d.Notes)
		}
		if d.RejectReason != "" {
			b.F(`<dt>Reject reason</dt><dd>%s</dd>`, d.RejectReason)
		}
		b.Raw(`</dl><div>`)
		for _, a := range v.Allowed {
			switch a {
			case transfer.ActionApprove:
				b.Render(html.PostButton(action(a), "Approve", ""))
			case transfer.ActionShip:
				b.Render(html.PostButton(action(a), "Mark shipped", ""))
			case transfer.ActionReceive:
				b.Render(html.PostButton(action(a), "Confirm received", ""))
			case transfer.ActionCancel:
				b.Render(html.PostButton(action(a), "Cancel transfer", "danger"))
			case transfer.ActionReject:
				b.Render(RejectForm(action(a)))
			}
		}
		b.Raw(`</div></div>`)
		b.Raw(`<h2>Items</h2><table><thead><tr><th>Type</th><th>Category</th><th class="num">Weight</th></tr></thead><tbody>`)
		for _, it := range d.Items {
			b.F(`<tr><td>%s</td><td>%s</td><td class="num">%s</td></tr>`, it.TypeName, it.CategoryName, html.Weight(it.Grams))
		}
		b.F(`</tbody><tfoot><tr><th colspan="2">Total</th><th class="num">%s</th></tr></tfoot></table>`, html.Weight(d.TotalGrams))
	})
}

// RejectForm posts a rejection with its mandatory reason.
func RejectForm(action string) templ.Component {
	return html.Component(func(b *html.Builder) {
		b.F(`<form class="inline" method="post" action="%s"><input name="reason" placeholder="Reason" required> <button class="danger" type="submit">Reject</button></form>`, action)
	})
}

// CreateFormData feeds the new transfer form. Sources is empty when the
// caller's own unit is the fixed source.
type CreateFormData struct {
	Action       string
	Sources      []models.Unit
	SourceName   string
	Destinations []models.Unit
	Types        []catalog.TypeRow
	Stock        *inventory.Stock
}

const createLines = 5

func CreateForm(data CreateFormData) templ.Component {
	types := make([]html.Option, 0, len(data.Types))
	for _, t := range data.Types {
		if t.Active {
			types = append(types, html.IDOption(t.ID, t.CategoryName+" · "+t.Name))
		}
	}
	return html.Component(func(b *html.Builder) {
		b.F(`<form class="stack" method="post" action="%s">`, data.Action)
		if len(data.Sources) > 0 {
			opts := make([]html.Option, 0, len(data.Sources))
			for _, u := range data.Sources {
				opts = append(opts, html.IDOption(u.ID, u.Name))
			}
			b.Raw(`<label>From `)
			b.Render(html.Select("source_unit_id", "Choose source", opts, ""))
			b.Raw(`</label>`)
		} else {
			b.F(`<p>From: <strong>%s</strong></p>`, data.SourceName)
		}
		dests := make([]html.Option, 0, len(data.Destinations))
		for _, u := range data.Destinations {
			dests = append(dests, html.IDOption(u.ID, u.Name+" ("+orgunit.KindLabel(u.Kind)+")"))
		}
		b.Raw(`<label>To `)
		b.Render(html.Select("destination_unit_id", "Choose destination", dests, ""))
		b.Raw(`</label><fieldset><legend>Waste (kg)</legend>`)
		for i := 0; i < createLines; i++ {
			b.Raw(`<div>`)
			b.Render(html.Select("waste_type_id", "-", types, ""))
			b.Raw(` <input name="kg" inputmode="decimal" size="6"></div>`)
		}
		b.Raw(`</fieldset><label>Notes <textarea name="notes" rows="2"></textarea></label><button type="submit">Request transfer</button></form>`)
		if data.Stock != nil {
			b.Raw(`<h2>Available at source</h2><table><thead><tr><th>Type</th><th class="num">In stock</th></tr></thead><tbody>`)
			if len(data.Stock.Rows) == 0 {
				b.Render(html.Empty(2, "No stock yet"))
			}
			for _, row := range data.Stock.Rows {
				b.F(`<tr><td>%s</td><td class="num">%s</td></tr>`, row.TypeName, html.Weight(row.Grams))
			}
			b.Raw(`</tbody></table>`)
		}
	})
}
