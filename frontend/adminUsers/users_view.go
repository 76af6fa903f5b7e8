package adminusers

import (
	"fmt"

	"github.com/a-h/templ"

	"wasteboard/frontend/shared/html"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
)

func UsersListPage(data PageData) templ.Component {
	roles := make([]html.Option, 0, len(rbac.Roles()))
	for _, r := range rbac.Roles() {
		roles = append(roles, html.Option{Value: r, Label: rbac.Label(r)})
	}
	units := make([]html.Option, 0, len(data.Units))
	for _, u := range data.Units {
		units = append(units, html.IDOption(u.ID, u.Label+" ("+orgunit.KindLabel(u.Kind)+")"))
	}

	body := html.Component(func(b *html.Builder) {
		b.Render(html.Filters(html.FilterForm{
			Action: basePath,
			Query:  data.Query,
			Search: "Username or name",
			Extra: html.Component(func(b *html.Builder) {
				b.Raw(`<label>Role `)
				b.Render(html.Select("role", "All", roles, data.Role))
				b.Raw(`</label>`)
			}),
		}))

		b.Raw(`<table><thead><tr><th>Username</th><th>Name</th><th>Role</th><th>Unit</th><th>Created</th><th>Status</th><th></th></tr></thead><tbody>`)
		if len(data.Users) == 0 {
			b.Render(html.Empty(7, "No users match the filters"))
		}
		for _, u := range data.Users {
			state, next, label := "Active", "0", "Deactivate"
			if !u.Active {
				state, next, label = "Inactive", "1", "Activate"
			}
			b.F(`<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td>`,
				u.Username, u.DisplayName, rbac.Label(u.Role), dash(u.UnitName), u.CreatedAt, state)
			b.F(`<td><form class="inline" method="post" action="%s"><input type="hidden" name="active" value="%s"><button class="secondary" type="submit">%s</button></form></td></tr>`,
				fmt.Sprintf("%s/%d/active", basePath, u.ID), next, label)
		}
		b.Raw(`</tbody></table>`)
		b.Render(html.Pager(data.Pagination))

		b.Raw(`<h2>Create user</h2>`)
		b.F(`<form class="stack" method="post" action="%s">`, basePath)
		b.Raw(`<label>Username <input name="username" required></label>`)
		b.Raw(`<label>Display name <input name="display_name"></label>`)
		b.Raw(`<label>Password <input type="password" name="password" required></label>`)
		b.Raw(`<label>Role `)
		b.Render(html.Select("role", "", roles, rbac.RoleCustomer))
		b.Raw(`</label><label>Unit `)
		b.Render(html.Select("unit_id", "No unit", units, ""))
		b.Raw(`</label><small>Waste bank and collector staff need a unit of the matching kind.</small>`)
		b.Raw(`<button type="submit">Create user</button></form>`)
	})

	return html.RenderLayout(html.Page{
		Title:  "Users",
		Nav:    data.Nav,
		Status: data.Status,
		Error:  data.ErrorMessage,
		Body:   body,
	})
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
