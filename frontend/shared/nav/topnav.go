package nav

import (
	"strings"

	"wasteboard/infrastructure/rbac"
	"wasteboard/models"
)

// Link is one top navigation entry.
type Link struct {
	Label  string
	Href   string
	Active bool
}

// TopNavData is shared with page renderers.
type TopNavData struct {
	Username  string
	Name      string
	Role      string
	RoleLabel string
	Links     []Link
}

var roleLinks = map[string][]Link{
	rbac.RoleCustomer: {
		{Label: "My requests", Href: "/dashboard/customer"},
		{Label: "New request", Href: "/dashboard/customer/requests/new"},
	},
	rbac.RoleWastebankUnit: {
		{Label: "Requests", Href: "/dashboard/wastebank-unit"},
		{Label: "Prices", Href: "/dashboard/wastebank-unit/prices"},
		{Label: "Stock", Href: "/dashboard/wastebank-unit/stock"},
		{Label: "Transfers", Href: "/dashboard/wastebank-unit/transfers"},
		{Label: "Exports", Href: "/dashboard/exports"},
	},
	rbac.RoleWastebankCentral: {
		{Label: "Overview", Href: "/dashboard/wastebank-central"},
		{Label: "Transfers", Href: "/dashboard/wastebank-central/transfers"},
		{Label: "Stock", Href: "/dashboard/wastebank-central/stock"},
		{Label: "Units", Href: "/dashboard/wastebank-central/units"},
		{Label: "Catalog", Href: "/dashboard/wastebank-central/catalog"},
		{Label: "Exports", Href: "/dashboard/exports"},
	},
	rbac.RoleCollectorCentral: {
		{Label: "Collectors", Href: "/dashboard/collector-central"},
		{Label: "Pickup queue", Href: "/dashboard/collector-central/queue"},
		{Label: "Exports", Href: "/dashboard/exports"},
	},
	rbac.RoleCollectorUnit: {
		{Label: "My tasks", Href: "/dashboard/collector-unit"},
	},
	rbac.RoleAdmin: {
		{Label: "Users", Href: "/dashboard/admin/users"},
		{Label: "Audit", Href: "/dashboard/admin/audit"},
		{Label: "Central", Href: "/dashboard/wastebank-central"},
		{Label: "Collectors", Href: "/dashboard/collector-central"},
		{Label: "Exports", Href: "/dashboard/exports"},
	},
}

var sharedLinks = []Link{
	{Label: "Profile", Href: "/dashboard/profile"},
	{Label: "Help", Href: "/dashboard/help"},
}

// BuildTopNavData lists the session role's pages, marking the one currentPath belongs to.
func BuildTopNavData(session models.Session, currentPath string) TopNavData {
	data := TopNavData{
		Username:  session.User.Username,
		Name:      session.User.Name(),
		Role:      session.User.Role,
		RoleLabel: rbac.Label(session.User.Role),
	}
	all := append(append([]Link{}, roleLinks[session.User.Role]...), sharedLinks...)
	best := -1
	for i, l := range all {
		if currentPath == l.Href || strings.HasPrefix(currentPath, l.Href+"/") {
			if best < 0 || len(l.Href) > len(all[best].Href) {
				best = i
			}
		}
	}
	if best >= 0 {
		all[best].Active = true
	}
	data.Links = all
	return data
}
