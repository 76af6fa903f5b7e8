package droprequests

import (
	"fmt"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"wasteboard/frontend/shared/html"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/collector"
	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/listing"
	"wasteboard/models"
)

// StatusOptions lists drop request statuses for filter selects.
func StatusOptions() []html.Option {
	out := make([]html.Option, 0, len(dropreq.Statuses()))
	for _, s := range dropreq.Statuses() {
		out = append(out, html.Option{Value: s, Label: dropreq.StatusLabel(s)})
	}
	return out
}

var SortOptions = []html.Option{
	{Value: "", Label: "Newest"},
	{Value: "oldest", Label: "Oldest"},
	{Value: "scheduled", Label: "Scheduled date"},
}

// CategoryOptions turns catalog categories into filter options.
func CategoryOptions(cats []models.WasteCategory) []html.Option {
	out := make([]html.Option, 0, len(cats))
	for _, c := range cats {
		out = append(out, html.IDOption(c.ID, c.Name))
	}
	return out
}

// Tabs builds status tabs from a summary.
func Tabs(basePath string, q listing.Query, s dropreq.Summary) templ.Component {
	return html.Tabs(html.StatusTabs(basePath, q, dropreq.Statuses(), dropreq.StatusLabel, s.Count))
}

// SummaryCards renders the headline numbers of a request list.
func SummaryCards(s dropreq.Summary) templ.Component {
	return html.Cards([]html.Card{
		{Label: "Requests", Value: strconv.Itoa(s.Total)},
		{Label: "Open", Value: strconv.Itoa(s.Count(dropreq.StatusPending) + s.Count(dropreq.StatusAssigned) + s.Count(dropreq.StatusCollecting))},
		{Label: "Collected", Value: html.Weight(s.CompletedGrams)},
		{Label: "Value", Value: html.Money(s.CompletedValue)},
		{Label: "Average rating", Value: html.Rating(s.AverageRating, s.RatedCount)},
	})
}

// TableOptions selects the columns a role sees.
type TableOptions struct {
	DetailBase    string
	ShowCustomer  bool
	ShowUnit      bool
	ShowCollector bool
	RowActions    func(dropreq.Row) templ.Component
}

func Table(rows []dropreq.Row, opts TableOptions) templ.Component {
	return html.Component(func(b *html.Builder) {
		cols := 6
		b.Raw(`<table><thead><tr><th>Reference</th><th>Scheduled</th><th>Type</th>`)
		if opts.ShowCustomer {
			b.Raw(`<th>Customer</th>`)
			cols++
		}
		if opts.ShowUnit {
			b.Raw(`<th>Waste bank</th>`)
			cols++
		}
		if opts.ShowCollector {
			b.Raw(`<th>Collector</th>`)
			cols++
		}
		b.Raw(`<th class="num">Weight</th><th class="num">Value</th><th>Status</th>`)
		if opts.RowActions != nil {
			b.Raw(`<th></th>`)
			cols++
		}
		b.Raw(`</tr></thead><tbody>`)
		if len(rows) == 0 {
			b.Render(html.Empty(cols, "No requests match the filters"))
		}
		for _, r := range rows {
			b.F(`<tr><td><a href="%s/%d">%s</a></td><td>%s</td><td>%s</td>`, opts.DetailBase, r.ID, r.Reference, html.Date(r.ScheduledDate), deliveryLabel(r.DeliveryType))
			if opts.ShowCustomer {
				b.F(`<td>%s</td>`, r.CustomerName)
			}
			if opts.ShowUnit {
				b.F(`<td>%s</td>`, r.UnitName)
			}
			if opts.ShowCollector {
				b.F(`<td>%s</td>`, orDash(r.CollectorName))
			}
			b.F(`<td class="num">%s</td><td class="num">%s</td><td>%s</td>`, rowWeight(r), rowValue(r), html.StatusBadge(r.Status, dropreq.StatusLabel(r.Status)))
			if opts.RowActions != nil {
				b.Raw(`<td>`)
				b.Render(opts.RowActions(r))
				b.Raw(`</td>`)
			}
			b.Raw(`</tr>`)
		}
		b.Raw(`</tbody></table>`)
	})
}

func rowWeight(r dropreq.Row) string {
	if r.Status == dropreq.StatusCompleted {
		return html.Weight(r.ActualGrams)
	}
	return "~" + html.Weight(r.EstimatedGrams)
}

func rowValue(r dropreq.Row) string {
	if r.Status == dropreq.StatusCompleted {
		return html.Money(r.TotalValue)
	}
	return "-"
}

func deliveryLabel(d string) string {
	if d == dropreq.DeliveryDropoff {
		return "Drop-off"
	}
	return "Pickup"
}

// DetailView is the request detail plus the action forms the viewer may use.
type DetailView struct {
	Detail     dropreq.Detail
	Base       string
	BackHref   string
	Allowed    []string
	Collectors []collector.Option
}

func (v DetailView) can(action string) bool {
	for _, a := range v.Allowed {
		if a == action {
			return true
		}
	}
	return false
}

func (v DetailView) action(name string) string {
	return fmt.Sprintf("%s/%d/%s", v.Base, v.Detail.ID, name)
}

func DetailBody(v DetailView) templ.Component {
	d := v.Detail
	return html.Component(func(b *html.Builder) {
		b.F(`<p><a href="%s">&larr; Back</a> · <a href="%s/%d/slip.pdf">Print slip</a></p>`, v.BackHref, v.Base, d.ID)
		b.Raw(`<div class="grid-2"><dl class="meta">`)
		b.F(`<dt>Reference</dt><dd>%s</dd>`, d.Reference)
		b.F(`<dt>Status</dt><dd>%s</dd>`, html.StatusBadge(d.Status, dropreq.StatusLabel(d.Status)))
		b.F(`<dt>Customer</dt><dd>%s</dd><dt>Waste bank</dt><dd>%s</dd>`, d.CustomerName, d.UnitName)
		b.F(`<dt>Delivery</dt><dd>%s</dd><dt>Scheduled</dt><dd>%s</dd>`, deliveryLabel(d.DeliveryType), html.Date(d.ScheduledDate))
		if d.DeliveryType == dropreq.DeliveryPickup {
			b.F(`<dt>Pickup address</dt><dd>%s</dd><dt>Collector</dt><dd>%s</dd>`, orDash(d.PickupAddress), orDash(d.CollectorName))
		}
		if d.Notes != "" {
			b.F(`<dt>Notes</dt><dd>%s</dd>`, d.Notes)
		}
		if d.CancelReason != "" {
			b.F(`<dt>Cancel reason</dt><dd>%s</dd>`, d.CancelReason)
		}
		if d.Rating != nil {
			b.F(`<dt>Rating</dt><dd>%d / 5 %s</dd>`, *d.Rating, d.RatingComment)
		}
		b.F(`<dt>Created</dt><dd>%s</dd>`, html.DateTime(&d.CreatedAt))
		b.F(`<dt>Assigned</dt><dd>%s</dd><dt>Started</dt><dd>%s</dd>`, html.DateTime(d.AssignedAt), html.DateTime(d.StartedAt))
		b.F(`<dt>Completed</dt><dd>%s</dd>`, html.DateTime(d.CompletedAt))
		if d.CancelledAt != nil {
			b.F(`<dt>Cancelled</dt><dd>%s</dd>`, html.DateTime(d.CancelledAt))
		}
		b.Raw(`</dl><div>`)
		b.Render(actionForms(v))
		b.Raw(`</div></div>`)

		b.Raw(`<h2>Items</h2><table><thead><tr><th>Type</th><th>Category</th><th class="num">Estimated</th><th class="num">Weighed</th><th class="num">Price / kg</th><th class="num">Value</th></tr></thead><tbody>`)
		for _, it := range d.Items {
			weighed, price, value := "-", "-", "-"
			if it.ActualGrams != nil {
				weighed = html.Weight(*it.ActualGrams)
			}
			if it.PricePerKg != nil {
				price = html.Money(*it.PricePerKg)
			}
			if it.Value != nil {
				value = html.Money(*it.Value)
			}
			b.F(`<tr><td>%s</td><td>%s</td><td class="num">%s</td><td class="num">%s</td><td class="num">%s</td><td class="num">%s</td></tr>`,
				it.TypeName, it.CategoryName, html.Weight(it.EstimatedGrams), weighed, price, value)
		}
		b.F(`</tbody><tfoot><tr><th colspan="2">Total</th><th class="num">%s</th><th class="num">%s</th><th></th><th class="num">%s</th></tr></tfoot></table>`,
			html.Weight(d.EstimatedGrams), html.Weight(d.ActualGrams), html.Money(d.TotalValue))
	})
}

func actionForms(v DetailView) templ.Component {
	return html.Component(func(b *html.Builder) {
		if v.can(dropreq.ActionAssign) {
			b.Render(AssignForm(v.action("assign"), "", v.Collectors, v.Detail.AssignedCollectorID))
		}
		if v.can(dropreq.ActionStart) {
			b.Render(html.PostButton(v.action("start"), "Start collection", ""))
		}
		if v.can(dropreq.ActionComplete) {
			b.Render(weighForm(v.action("complete"), v.Detail, "Complete collection"))
		}
		if v.can(dropreq.ActionReceive) {
			b.Render(weighForm(v.action("receive"), v.Detail, "Receive and weigh"))
		}
		if v.can(dropreq.ActionRate) {
			b.F(`<h2>Rate this collection</h2><form class="stack" method="post" action="%s">`, v.action("rate"))
			b.Raw(`<label>Rating <select name="rating">`)
			for i := 5; i >= 1; i-- {
				b.F(`<option value="%d">%d</option>`, i, i)
			}
			b.Raw(`</select></label><label>Comment <textarea name="comment" rows="2"></textarea></label><button type="submit">Send rating</button></form>`)
		}
		if v.can(dropreq.ActionCancel) {
			b.F(`<h2>Cancel</h2><form class="stack" method="post" action="%s">`, v.action("cancel"))
			b.Raw(`<label>Reason <input name="reason" placeholder="optional"></label><button class="danger" type="submit">Cancel request</button></form>`)
		}
	})
}

// AssignForm renders a collector select posting to action.
// returnTo, when set, sends the redirect back to a list instead of the detail page.
func AssignForm(action, returnTo string, collectors []collector.Option, current *int64) templ.Component {
	opts := make([]html.Option, 0, len(collectors))
	for _, c := range collectors {
		opts = append(opts, html.IDOption(c.ID, fmt.Sprintf("%s · %s (%d open)", c.Name, c.UnitName, c.ActiveTasks)))
	}
	selected := ""
	if current != nil {
		selected = strconv.FormatInt(*current, 10)
	}
	return html.Component(func(b *html.Builder) {
		b.F(`<form class="inline" method="post" action="%s">`, action)
		if returnTo != "" {
			b.F(`<input type="hidden" name="return_to" value="%s">`, returnTo)
		}
		b.Render(html.Select("collector_id", "Choose collector", opts, selected))
		b.Raw(` <button type="submit">Assign</button></form>`)
	})
}

func weighForm(action string, d dropreq.Detail, label string) templ.Component {
	return html.Component(func(b *html.Builder) {
		b.F(`<h2>%s</h2><form class="stack" method="post" action="%s">`, label, action)
		for _, it := range d.Items {
			est := strconv.FormatFloat(float64(it.EstimatedGrams)/1000, 'f', -1, 64)
			b.F(`<label>%s (est. %s kg) <input name="kg_%d" inputmode="decimal" value="%s" required></label>`, it.TypeName, est, it.ID, est)
		}
		b.F(`<button type="submit">%s</button></form>`, label)
	})
}

// CreateFormData feeds the new request form.
type CreateFormData struct {
	Action  string
	Units   []models.Unit
	Types   []catalog.TypeRow
	Address string
	Today   time.Time
}

const createLines = 5

func CreateForm(data CreateFormData) templ.Component {
	units := make([]html.Option, 0, len(data.Units))
	for _, u := range data.Units {
		units = append(units, html.IDOption(u.ID, u.Name))
	}
	types := make([]html.Option, 0, len(data.Types))
	for _, t := range data.Types {
		if t.Active {
			types = append(types, html.IDOption(t.ID, t.CategoryName+" · "+t.Name))
		}
	}
	return html.Component(func(b *html.Builder) {
		b.F(`<form class="stack" method="post" action="%s">`, data.Action)
		b.Raw(`<label>Waste bank `)
		b.Render(html.Select("unit_id", "Choose waste bank", units, ""))
		b.Raw(`</label><label>Delivery <select name="delivery_type"><option value="pickup">Pickup at my address</option><option value="dropoff">I will drop it off</option></select></label>`)
		b.F(`<label>Pickup address <textarea name="pickup_address" rows="2" placeholder="%s"></textarea></label>`, orDash(data.Address))
		b.F(`<label>Date <input type="date" name="scheduled_date" min="%s" value="%s" required></label>`, data.Today.Format(listing.DateLayout), data.Today.Format(listing.DateLayout))
		b.Raw(`<fieldset><legend>Waste (estimated kg)</legend>`)
		for i := 0; i < createLines; i++ {
			b.Raw(`<div>`)
			b.Render(html.Select("waste_type_id", "-", types, ""))
			b.Raw(` <input name="estimated_kg" inputmode="decimal" size="6"></div>`)
		}
		b.Raw(`</fieldset><label>Notes <textarea name="notes" rows="2"></textarea></label><button type="submit">Submit request</button></form>`)
	})
}
