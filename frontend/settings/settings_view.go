package settings

import (
	"github.com/a-h/templ"

	"wasteboard/frontend/shared/html"
	"wasteboard/frontend/shared/nav"
	"wasteboard/infrastructure/profile"
	"wasteboard/infrastructure/rbac"
)

type PageData struct {
	Nav          nav.TopNavData
	Profile      profile.Profile
	Status       string
	ErrorMessage string
}

func ProfilePage(data PageData) templ.Component {
	p := data.Profile
	body := html.Component(func(b *html.Builder) {
		b.Raw(`<div class="grid-2"><div>`)
		b.Raw(`<dl class="meta">`)
		b.F(`<dt>Username</dt><dd>%s</dd><dt>Role</dt><dd>%s</dd>`, p.Username, rbac.Label(p.Role))
		if p.UnitName != "" {
			b.F(`<dt>Unit</dt><dd>%s</dd>`, p.UnitName)
		}
		b.Raw(`</dl><h2>Contact details</h2>`)
		b.F(`<form class="stack" method="post" action="%s">`, basePath)
		b.F(`<label>Display name <input name="display_name" value="%s"></label>`, p.DisplayName)
		b.F(`<label>Phone <input name="phone" value="%s"></label>`, p.Phone)
		b.F(`<label>Address <textarea name="address" rows="3">%s</textarea></label>`, p.Address)
		b.F(`<label><input type="checkbox" name="email_enabled" value="1"%s> Email me when my requests change status</label>`, html.Attr(p.EmailEnabled, "checked"))
		b.Raw(`<button type="submit">Save</button></form></div><div>`)
		b.Raw(`<h2>Change password</h2>`)
		b.F(`<form class="stack" method="post" action="%s/password">`, basePath)
		b.Raw(`<label>Current password <input type="password" name="current_password" required></label>`)
		b.Raw(`<label>New password <input type="password" name="new_password" required></label>`)
		b.Raw(`<label>Repeat new password <input type="password" name="confirm_password" required></label>`)
		b.Raw(`<small>At least 8 characters with a letter and a digit.</small>`)
		b.Raw(`<button type="submit">Change password</button></form></div></div>`)
	})
	return html.RenderLayout(html.Page{Title: "Profile", Nav: data.Nav, Status: data.Status, Error: data.ErrorMessage, Body: body})
}
