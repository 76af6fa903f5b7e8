package html

import (
	"github.com/a-h/templ"

	"wasteboard/frontend/shared/nav"
)

// Page describes one rendered dashboard screen.
type Page struct {
	Title  string
	Nav    nav.TopNavData
	Status string
	Error  string
	Body   templ.Component
}

// RenderLayout wraps body with the document shell, top nav and flash notice.
func RenderLayout(p Page) templ.Component {
	return Component(func(b *Builder) {
		b.Raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.Raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.F(`<title>%s · Wasteboard</title>`, p.Title)
		b.Raw(`<link rel="stylesheet" href="/assets/app.css"></head><body>`)
		if p.Nav.Role != "" {
			b.Raw(`<header class="topnav"><a class="brand" href="/">Wasteboard</a><nav>`)
			for _, l := range p.Nav.Links {
				b.F(`<a href="%s"%s>%s</a>`, l.Href, activeClass(l.Active), l.Label)
			}
			b.F(`</nav><div class="who"><span>%s</span><small>%s</small>`, p.Nav.Name, p.Nav.RoleLabel)
			b.Raw(`<form method="post" action="/logout"><button class="link" type="submit">Log out</button></form></div></header>`)
		}
		b.Raw(`<main>`)
		b.F(`<h1>%s</h1>`, p.Title)
		b.Render(Flash(p.Status, p.Error))
		b.Render(p.Body)
		b.Raw(`</main>`)
		b.Raw(CSRFFormScript())
		b.Raw(`</body></html>`)
	})
}

func activeClass(active bool) Raw {
	if active {
		return ` class="active"`
	}
	return ""
}

// Flash renders the ?status= / ?error= notice of a redirect.
func Flash(status, errMsg string) templ.Component {
	return Component(func(b *Builder) {
		if errMsg != "" {
			b.F(`<div class="flash flash-error" role="alert">%s</div>`, errMsg)
		}
		if status != "" {
			b.F(`<div class="flash flash-ok" role="status">%s</div>`, status)
		}
	})
}
