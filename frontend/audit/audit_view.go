package audit

import (
	"github.com/a-h/templ"

	"wasteboard/frontend/shared/html"
	"wasteboard/frontend/shared/nav"
	auditlog "wasteboard/infrastructure/audit"
	"wasteboard/infrastructure/listing"
)

type PageData struct {
	Nav        nav.TopNavData
	Filter     auditlog.Filter
	Entries    []auditlog.Entry
	Pagination listing.Pagination
}

var entityTypes = []html.Option{
	{Value: "drop_request", Label: "Drop requests"},
	{Value: "transfer_request", Label: "Transfers"},
	{Value: "waste_price", Label: "Prices"},
	{Value: "waste_type", Label: "Waste types"},
	{Value: "waste_category", Label: "Categories"},
	{Value: "user", Label: "Users"},
}

func AuditPage(data PageData) templ.Component {
	body := html.Component(func(b *html.Builder) {
		b.F(`<form class="filters" method="get" action="%s"><label>Entity `, basePath)
		b.Render(html.Select("entity_type", "All", entityTypes, data.Filter.EntityType))
		b.F(`</label><label>ID <input name="entity_id" value="%s" size="6"></label>`, data.Filter.EntityID)
		b.F(`<label>Action <input name="action" value="%s" placeholder="drop_request."></label>`, data.Filter.Action)
		b.F(`<button type="submit">Filter</button> <a class="reset" href="%s">Reset</a></form>`, basePath)

		b.Raw(`<table><thead><tr><th>When</th><th>User</th><th>Action</th><th>Entity</th><th>Before</th><th>After</th></tr></thead><tbody>`)
		if len(data.Entries) == 0 {
			b.Render(html.Empty(6, "No audit entries"))
		}
		for _, e := range data.Entries {
			b.F(`<tr><td>%s</td><td>%s</td><td>%s</td><td>%s #%s</td><td><code>%s</code></td><td><code>%s</code></td></tr>`,
				e.CreatedAt, e.Actor, e.Action, e.EntityType, e.EntityID, e.BeforeJSON, e.AfterJSON)
		}
		b.Raw(`</tbody></table>`)
		b.Render(html.Pager(data.Pagination))
	})
	return html.RenderLayout(html.Page{Title: "Audit log", Nav: data.Nav, Body: body})
}
