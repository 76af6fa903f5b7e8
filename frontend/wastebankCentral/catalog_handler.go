package wastebankcentral

import (
	"fmt"
	"net/http"

	"github.com/a-h/templ"

	sessioncontext "wasteboard/frontend/shared/context"
	"wasteboard/frontend/shared/html"
	"wasteboard/frontend/shared/respond"
	wastebankunit "wasteboard/frontend/wastebankUnit"
	"wasteboard/infrastructure/catalog"
	"wasteboard/models"
)

func CatalogPageQueryHandler(cat *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := cat.ListCategories(r.Context())
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		categoryID, _ := respond.FormID(r, "category_id")
		types, err := cat.ListTypes(r.Context(), categoryID)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		respond.Page(w, r, "Waste catalog", CatalogPage(cats, types, categoryID))
	}
}

func CreateCategoryCommandHandler(cat *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		c, err := cat.CreateCategory(r.Context(), actor, r.FormValue("name"))
		if err != nil {
			respond.Error(w, r, CatalogPath, err, "failed to create category")
			return
		}
		respond.Status(w, r, CatalogPath, "category "+c.Name+" created")
	}
}

func CreateTypeCommandHandler(cat *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		categoryID, ok := respond.FormID(r, "category_id")
		if !ok {
			respond.Message(w, r, CatalogPath, "choose a category")
			return
		}
		price, err := wastebankunit.ParsePrice(r.FormValue("base_price_per_kg"))
		if err != nil {
			respond.Error(w, r, CatalogPath, err, "invalid price")
			return
		}
		wt, err := cat.CreateType(r.Context(), actor, catalog.TypeInput{CategoryID: categoryID, Name: r.FormValue("name"), BasePricePerKg: price})
		if err != nil {
			respond.Error(w, r, CatalogPath, err, "failed to create waste type")
			return
		}
		respond.Status(w, r, CatalogPath, "waste type "+wt.Name+" created")
	}
}

// UpdateTypeCommandHandler saves base price and active flag of type {id}.
func UpdateTypeCommandHandler(cat *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		typeID, ok := respond.ID(r, "id")
		if !ok {
			respond.Message(w, r, CatalogPath, "invalid waste type")
			return
		}
		price, err := wastebankunit.ParsePrice(r.FormValue("base_price_per_kg"))
		if err != nil {
			respond.Error(w, r, CatalogPath, err, "invalid price")
			return
		}
		if err := cat.UpdateType(r.Context(), actor, typeID, price, r.FormValue("active") != ""); err != nil {
			respond.Error(w, r, CatalogPath, err, "failed to update waste type")
			return
		}
		respond.Status(w, r, CatalogPath, "waste type updated")
	}
}

func CatalogPage(cats []models.WasteCategory, types []catalog.TypeRow, categoryID int64) templ.Component {
	opts := make([]html.Option, 0, len(cats))
	for _, c := range cats {
		opts = append(opts, html.IDOption(c.ID, c.Name))
	}
	selected := ""
	if categoryID > 0 {
		selected = fmt.Sprint(categoryID)
	}
	return html.Component(func(b *html.Builder) {
		b.F(`<form class="filters" method="get" action="%s"><label>Category `, CatalogPath)
		b.Render(html.Select("category_id", "All", opts, selected))
		b.Raw(`</label><button type="submit">Filter</button></form>`)

		b.Raw(`<table><thead><tr><th>Category</th><th>Type</th><th>Base price / kg</th><th>Active</th><th></th></tr></thead><tbody>`)
		if len(types) == 0 {
			b.Render(html.Empty(5, "No waste types"))
		}
		for _, t := range types {
			form := fmt.Sprintf("type-%d", t.ID)
			b.F(`<tr><td>%s</td><td>%s</td>`, t.CategoryName, t.Name)
			b.F(`<td><input form="%s" name="base_price_per_kg" value="%d" size="8" inputmode="numeric"></td>`, form, t.BasePricePerKg)
			b.F(`<td><input form="%s" type="checkbox" name="active" value="1"%s></td>`, form, html.Attr(t.Active, "checked"))
			b.F(`<td><form id="%s" class="inline" method="post" action="%s/types/%d"><button type="submit">Save</button></form></td></tr>`, form, CatalogPath, t.ID)
		}
		b.Raw(`</tbody></table><div class="grid-2">`)

		b.F(`<form class="stack" method="post" action="%s/categories"><h2>New category</h2>`, CatalogPath)
		b.Raw(`<label>Name <input name="name" required></label><button type="submit">Add category</button></form>`)

		b.F(`<form class="stack" method="post" action="%s/types"><h2>New waste type</h2><label>Category `, CatalogPath)
		b.Render(html.Select("category_id", "Choose category", opts, selected))
		b.Raw(`</label><label>Name <input name="name" required></label>`)
		b.Raw(`<label>Base price / kg <input name="base_price_per_kg" inputmode="numeric" required></label><button type="submit">Add type</button></form></div>`)
	})
}
