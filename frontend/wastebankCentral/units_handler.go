package wastebankcentral

import (
	"net/http"

	"github.com/a-h/templ"

	sessioncontext "wasteboard/frontend/shared/context"
	"wasteboard/frontend/shared/html"
	"wasteboard/frontend/shared/respond"
	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/models"
)

// UnitsPageQueryHandler lists every unit, filterable by kind (?status=<kind>) and name search.
func UnitsPageQueryHandler(db *sqlite.DB, limits listing.Limits) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := listing.Parse(r.URL.Query(), limits)
		kind := r.URL.Query().Get("kind")
		if !orgunit.IsValidKind(kind) {
			kind = ""
		}
		var kinds []string
		if kind != "" {
			kinds = append(kinds, kind)
		}
		units, err := orgunit.List(r.Context(), db, kinds...)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		units = listing.Filter(units, func(u models.Unit) bool {
			return listing.ContainsFold(q.Search, u.Name, u.Code, u.Address)
		})
		base := UnitsPath
		if kind != "" {
			base += "?kind=" + kind
		}
		page, p := listing.Paginate(units, q, base)
		respond.Page(w, r, "Units", UnitsPage(page, p, q, kind))
	}
}

func CreateUnitCommandHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if actor.Role != rbac.RoleAdmin && actor.Role != rbac.RoleWastebankCentral {
			respond.Error(w, r, UnitsPath, apperr.ErrForbidden, "")
			return
		}
		if err := r.ParseForm(); err != nil {
			respond.Message(w, r, UnitsPath, "invalid form data")
			return
		}
		in := orgunit.CreateInput{
			Name:    r.FormValue("name"),
			Kind:    r.FormValue("kind"),
			Address: r.FormValue("address"),
			Code:    r.FormValue("code"),
		}
		if id, ok := respond.FormID(r, "parent_id"); ok {
			in.ParentID = &id
		}
		unit, err := orgunit.Create(r.Context(), db, in)
		if err != nil {
			respond.Error(w, r, UnitsPath, err, "failed to create unit")
			return
		}
		respond.Status(w, r, UnitsPath, unit.Name+" created ("+unit.Code+")")
	}
}

func kindOptions() []html.Option {
	out := make([]html.Option, 0, len(orgunit.Kinds()))
	for _, k := range orgunit.Kinds() {
		out = append(out, html.Option{Value: k, Label: orgunit.KindLabel(k)})
	}
	return out
}

func UnitsPage(units []models.Unit, p listing.Pagination, q listing.Query, kind string) templ.Component {
	return html.Component(func(b *html.Builder) {
		b.F(`<form class="filters" method="get" action="%s"><label>Kind `, UnitsPath)
		b.Render(html.Select("kind", "All", kindOptions(), kind))
		b.F(`</label><input type="search" name="q" value="%s" placeholder="Name, code or address"> <button type="submit">Filter</button></form>`, q.Search)
		b.Raw(`<table><thead><tr><th>Name</th><th>Code</th><th>Kind</th><th>Address</th><th>Created</th></tr></thead><tbody>`)
		if len(units) == 0 {
			b.Render(html.Empty(5, "No units match"))
		}
		for _, u := range units {
			b.F(`<tr><td>%s</td><td><code>%s</code></td><td>%s</td><td>%s</td><td>%s</td></tr>`, u.Name, u.Code, orgunit.KindLabel(u.Kind), u.Address, html.Date(u.CreatedAt))
		}
		b.Raw(`</tbody></table>`)
		b.Render(html.Pager(p))

		b.F(`<h2>New unit</h2><form class="stack" method="post" action="%s">`, UnitsPath)
		b.Raw(`<label>Name <input name="name" required></label><label>Kind `)
		b.Render(html.Select("kind", "Choose kind", kindOptions(), ""))
		b.Raw(`</label><label>Code <input name="code" placeholder="generated from name"></label>`)
		b.Raw(`<label>Address <textarea name="address" rows="2"></textarea></label><button type="submit">Create unit</button></form>`)
	})
}
