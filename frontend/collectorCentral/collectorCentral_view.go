package collectorcentral

import (
	"strconv"

	"github.com/a-h/templ"

	"wasteboard/frontend/shared/html"
	"wasteboard/infrastructure/collector"
	"wasteboard/infrastructure/listing"
)

type CollectorsData struct {
	Query      listing.Query
	Rows       []collector.Row
	Pagination listing.Pagination
	Summary    collector.Summary
	// Counts is keyed by tab status ("" for all).
	Counts map[string]int
}

var sortOptions = []html.Option{
	{Value: "", Label: "Name"},
	{Value: collector.SortRating, Label: "Rating"},
	{Value: collector.SortCompleted, Label: "Completed tasks"},
}

func statusLabel(status string) string {
	if status == collector.FilterInactive {
		return "Inactive"
	}
	return "Active"
}

// averageRating is "-" until some collector has been rated.
func averageRating(avg float64) string {
	if avg == 0 {
		return "-"
	}
	return strconv.FormatFloat(avg, 'f', 1, 64) + " / 5"
}

func CollectorsPage(d CollectorsData) templ.Component {
	return html.Component(func(b *html.Builder) {
		b.Render(html.Cards([]html.Card{
			{Label: "Collectors", Value: strconv.Itoa(d.Summary.Total)},
			{Label: "Active", Value: strconv.Itoa(d.Summary.Active)},
			{Label: "Open tasks", Value: strconv.Itoa(d.Summary.OpenTasks)},
			{Label: "Collected", Value: html.Weight(d.Summary.CollectedGrams)},
			{Label: "Average rating", Value: averageRating(d.Summary.AverageRating)},
		}))
		b.Render(html.Tabs(html.StatusTabs(BasePath, d.Query,
			[]string{collector.FilterActive, collector.FilterInactive}, statusLabel,
			func(st string) int { return d.Counts[st] })))

		b.F(`<form class="filters" method="get" action="%s">`, BasePath)
		if d.Query.Status != "" {
			b.F(`<input type="hidden" name="status" value="%s">`, d.Query.Status)
		}
		b.F(`<input type="search" name="q" value="%s" placeholder="Name, unit or phone"> <label>Sort `, d.Query.Search)
		b.Render(html.Select("sort", "", sortOptions, d.Query.Sort))
		b.Raw(`</label> <button type="submit">Apply</button></form>`)

		b.Raw(`<table><thead><tr><th>Collector</th><th>Unit</th><th>Phone</th><th class="num">Open tasks</th><th class="num">Completed</th><th class="num">Collected</th><th>Rating</th><th>Status</th><th></th></tr></thead><tbody>`)
		if len(d.Rows) == 0 {
			b.Render(html.Empty(9, "No collectors match"))
		}
		for _, c := range d.Rows {
			b.F(`<tr><td>%s <small>@%s</small></td><td>%s</td><td>%s</td><td class="num">%d</td><td class="num">%d</td><td class="num">%s</td><td>%s</td>`,
				c.Name, c.Username, c.UnitName, c.Phone, c.ActiveTasks, c.Completed, html.Weight(c.CollectedGrams), html.Rating(c.AverageRating, c.RatedCount))
			action := ActivePath(c.UserID)
			if c.Active {
				b.Raw(`<td><span class="badge badge-completed">Active</span></td><td>`)
				b.F(`<form class="inline" method="post" action="%s"><input type="hidden" name="active" value="0"><button type="submit" class="secondary">Deactivate</button></form>`, action)
			} else {
				b.Raw(`<td><span class="badge badge-cancelled">Inactive</span></td><td>`)
				b.F(`<form class="inline" method="post" action="%s"><input type="hidden" name="active" value="1"><button type="submit">Activate</button></form>`, action)
			}
			b.Raw(`</td></tr>`)
		}
		b.Raw(`</tbody></table>`)
		b.Render(html.Pager(d.Pagination))
	})
}
