package exports

import (
	"github.com/a-h/templ"

	"wasteboard/frontend/shared/html"
)

func ExportsPage(data PageData) templ.Component {
	return html.Component(func(b *html.Builder) {
		b.Raw(`<p class="intro">Downloads follow your role's scope. Append the list filters (status, from, to, category_id, unit_id, q) to narrow them.</p>`)
		b.F(`<form class="filters" method="get" action="%s">`, Path)
		b.Raw(`<label>From <input type="date" name="from"></label><label>To <input type="date" name="to"></label>`)
		b.Raw(`<input type="search" name="q" placeholder="Search"> <button type="submit" class="secondary">Apply to links</button></form>`)
		b.Raw(`<table><thead><tr><th>Export</th><th>Contents</th></tr></thead><tbody>`)
		for _, l := range data.Links {
			href := l.Href
			if data.Query != "" {
				href += "?" + data.Query
			}
			b.F(`<tr><td><a href="%s">%s</a></td><td>%s</td></tr>`, href, l.Label, l.Note)
		}
		b.Raw(`</tbody></table>`)
	})
}
