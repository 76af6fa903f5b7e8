package stock

import (
	"github.com/a-h/templ"

	"wasteboard/frontend/shared/html"
	"wasteboard/infrastructure/inventory"
	"wasteboard/models"
)

// Table renders a unit's stock with value at the unit's prices.
func Table(st inventory.Stock) templ.Component {
	return html.Component(func(b *html.Builder) {
		b.Raw(`<table><thead><tr><th>Category</th><th>Type</th><th class="num">Weight</th><th class="num">Price / kg</th><th class="num">Value</th></tr></thead><tbody>`)
		if len(st.Rows) == 0 {
			b.Render(html.Empty(5, "No stock yet"))
		}
		for _, row := range st.Rows {
			b.F(`<tr><td>%s</td><td>%s</td><td class="num">%s</td><td class="num">%s</td><td class="num">%s</td></tr>`,
				row.CategoryName, row.TypeName, html.Weight(row.Grams), html.Money(row.PricePerKg), html.Money(row.Value))
		}
		b.F(`</tbody><tfoot><tr><th colspan="2">Total</th><th class="num">%s</th><th></th><th class="num">%s</th></tr></tfoot></table>`,
			html.Weight(st.TotalGrams), html.Money(st.TotalValue))
	})
}

type PageData struct {
	Action   string
	Units    []models.Unit
	UnitID   int64
	UnitName string
	Stock    inventory.Stock
}

func StockPage(data PageData) templ.Component {
	return html.Component(func(b *html.Builder) {
		if len(data.Units) > 0 {
			opts := make([]html.Option, 0, len(data.Units))
			for _, u := range data.Units {
				opts = append(opts, html.IDOption(u.ID, u.Name))
			}
			b.F(`<form class="filters" method="get" action="%s"><label>Unit `, data.Action)
			b.Render(html.Select("unit_id", "", opts, idString(data.UnitID)))
			b.Raw(`</label><button type="submit">Show</button></form>`)
		}
		b.F(`<h2>%s</h2>`, data.UnitName)
		b.Render(html.Cards([]html.Card{
			{Label: "Waste types", Value: itoa(len(data.Stock.Rows))},
			{Label: "Total weight", Value: html.Weight(data.Stock.TotalGrams)},
			{Label: "Stock value", Value: html.Money(data.Stock.TotalValue)},
		}))
		b.Render(Table(data.Stock))
	})
}

// ImportForm uploads a price list CSV to action.
func ImportForm(action string) templ.Component {
	return html.Component(func(b *html.Builder) {
		b.F(`<form class="inline" method="post" action="%s" enctype="multipart/form-data">`, action)
		b.Raw(`<label>Price list CSV <input type="file" name="file" accept=".csv,text/csv" required></label> <button type="submit">Import</button>`)
		b.Raw(`<small>Header: waste_type,price_per_kg</small></form>`)
	})
}
