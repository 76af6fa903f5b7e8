package help

import (
	"github.com/a-h/templ"

	"wasteboard/frontend/shared/html"
	"wasteboard/frontend/shared/nav"
	"wasteboard/infrastructure/rbac"
)

type Section struct {
	Title string
	Steps []string
}

type PageData struct {
	Nav      nav.TopNavData
	Role     string
	Sections []Section
}

var roleSections = map[string][]Section{
	rbac.RoleCustomer: {
		{Title: "Submitting waste", Steps: []string{
			"Open New request, pick your waste bank and choose pickup or drop-off.",
			"Add one line per waste type with an estimated weight in grams.",
			"Pickups use your profile address unless you enter another one.",
		}},
		{Title: "After collection", Steps: []string{
			"Completed requests show the weighed amounts and their value.",
			"Rate the collection once from the request page.",
			"Pending or assigned requests can still be cancelled.",
		}},
	},
	rbac.RoleWastebankUnit: {
		{Title: "Incoming requests", Steps: []string{
			"Assign a collector to pending pickups from the request list.",
			"Weigh drop-offs at the counter and record them with Receive.",
		}},
		{Title: "Prices and stock", Steps: []string{
			"Prices override the central base price for your unit only; Reset returns to the base price.",
			"Stock is completed collections plus received transfers minus shipped transfers.",
			"Transfers need central approval before you can ship them.",
		}},
	},
	rbac.RoleWastebankCentral: {
		{Title: "Oversight", Steps: []string{
			"The overview shows request counts, collected weight and stock value per unit.",
			"Approve or reject pending transfers; a rejection needs a reason.",
			"Manage units and the waste catalog (categories, types, base prices).",
		}},
	},
	rbac.RoleCollectorCentral: {
		{Title: "Dispatch", Steps: []string{
			"The pickup queue lists pickups without a collector; assign one per request.",
			"Collectors with open tasks cannot be deactivated.",
		}},
	},
	rbac.RoleCollectorUnit: {
		{Title: "Tasks", Steps: []string{
			"Start a task when you head out to the pickup address.",
			"Complete it by entering the weighed grams for every line.",
			"Print the pickup slip from the task page if the customer needs a receipt.",
		}},
	},
	rbac.RoleAdmin: {
		{Title: "Administration", Steps: []string{
			"Create users with a role; staff roles need a unit of the matching kind.",
			"Deactivating a user signs them out everywhere.",
			"The audit log records every state change with before and after values.",
			"Exports download CSV or XLSX using the same filters as the lists.",
		}},
	},
}

// SectionsFor returns the help topics shown to role.
func SectionsFor(role string) []Section {
	return roleSections[role]
}

func HelpPage(data PageData) templ.Component {
	body := html.Component(func(b *html.Builder) {
		b.F(`<p>You are signed in as <strong>%s</strong>.</p>`, rbac.Label(data.Role))
		for _, s := range data.Sections {
			b.F(`<h2>%s</h2><ol>`, s.Title)
			for _, step := range s.Steps {
				b.F(`<li>%s</li>`, step)
			}
			b.Raw(`</ol>`)
		}
	})
	return html.RenderLayout(html.Page{Title: "Help", Nav: data.Nav, Body: body})
}
