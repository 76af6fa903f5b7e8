package login

import (
	"github.com/a-h/templ"

	"wasteboard/frontend/shared/html"
)

// GetLoginScreen renders the sign-in form with optional status and error notices.
func GetLoginScreen(status, errorMessage string) templ.Component {
	body := html.Component(func(b *html.Builder) {
		b.Raw(`<form class="stack login" method="post" action="/login">`)
		b.Raw(`<label>Username <input name="username" autocomplete="username" required autofocus></label>`)
		b.Raw(`<label>Password <input type="password" name="password" autocomplete="current-password" required></label>`)
		b.Raw(`<button type="submit">Sign in</button></form>`)
	})
	return html.RenderLayout(html.Page{Title: "Sign in", Status: status, Error: errorMessage, Body: body})
}
