package html

import (
	"strconv"
	"time"

	"github.com/a-h/templ"

	"wasteboard/infrastructure/listing"
)

// Option is a select entry.
type Option struct {
	Value string
	Label string
}

// IDOption builds an Option keyed by a numeric id.
func IDOption(id int64, label string) Option {
	return Option{Value: strconv.FormatInt(id, 10), Label: label}
}

// Select renders a <select>; blank, when set, is the first empty choice.
func Select(name, blank string, opts []Option, selected string) templ.Component {
	return Component(func(b *Builder) {
		b.F(`<select name="%s" id="%s">`, name, name)
		if blank != "" {
			b.F(`<option value="">%s</option>`, blank)
		}
		for _, o := range opts {
			b.F(`<option value="%s"%s>%s</option>`, o.Value, Attr(o.Value == selected, "selected"), o.Label)
		}
		b.Raw(`</select>`)
	})
}

// Card is one summary statistic.
type Card struct {
	Label string
	Value string
}

func Cards(cards []Card) templ.Component {
	return Component(func(b *Builder) {
		b.Raw(`<section class="cards">`)
		for _, c := range cards {
			b.F(`<div class="card"><span class="card-label">%s</span><strong>%s</strong></div>`, c.Label, c.Value)
		}
		b.Raw(`</section>`)
	})
}

// Tab is a status tab with its row count.
type Tab struct {
	Label  string
	Href   string
	Count  int
	Active bool
}

// StatusTabs builds an "All" tab followed by one tab per status, keeping the rest of q.
func StatusTabs(basePath string, q listing.Query, statuses []string, label func(string) string, count func(string) int) []Tab {
	total := 0
	for _, st := range statuses {
		total += count(st)
	}
	tabs := []Tab{{Label: "All", Href: listing.Link(basePath, q.WithStatus("")), Count: total, Active: q.Status == ""}}
	for _, st := range statuses {
		tabs = append(tabs, Tab{
			Label:  label(st),
			Href:   listing.Link(basePath, q.WithStatus(st)),
			Count:  count(st),
			Active: q.Status == st,
		})
	}
	return tabs
}

func Tabs(tabs []Tab) templ.Component {
	return Component(func(b *Builder) {
		b.Raw(`<nav class="tabs">`)
		for _, t := range tabs {
			b.F(`<a href="%s"%s>%s <span class="count">%d</span></a>`, t.Href, activeClass(t.Active), t.Label, t.Count)
		}
		b.Raw(`</nav>`)
	})
}

// Pager renders "x-y of n" with prev/next links.
func Pager(p listing.Pagination) templ.Component {
	return Component(func(b *Builder) {
		b.Raw(`<div class="pager">`)
		if p.TotalCount == 0 {
			b.Raw(`<span>No results</span>`)
		} else {
			b.F(`<span>%d-%d of %d</span>`, p.StartIndex, p.EndIndex, p.TotalCount)
		}
		if p.HasPrev {
			b.F(`<a href="%s">&larr; Prev</a>`, p.PrevURL)
		}
		b.F(`<span>Page %d / %d</span>`, p.Page, p.TotalPages)
		if p.HasNext {
			b.F(`<a href="%s">Next &rarr;</a>`, p.NextURL)
		}
		b.Raw(`</div>`)
	})
}

// FilterForm is the GET filter bar above a list.
type FilterForm struct {
	Action     string
	Query      listing.Query
	Statuses   []Option
	Categories []Option
	Units      []Option
	Sorts      []Option
	Dates      bool
	Search     string
	Extra      templ.Component
}

func Filters(f FilterForm) templ.Component {
	return Component(func(b *Builder) {
		q := f.Query
		b.F(`<form class="filters" method="get" action="%s">`, f.Action)
		if len(f.Statuses) > 0 {
			b.Raw(`<label>Status `)
			b.Render(Select("status", "All", f.Statuses, q.Status))
			b.Raw(`</label>`)
		}
		if f.Dates {
			b.F(`<label>From <input type="date" name="from" value="%s"></label>`, dateValue(q.From))
			b.F(`<label>To <input type="date" name="to" value="%s"></label>`, dateValue(q.To))
		}
		if len(f.Categories) > 0 {
			b.Raw(`<label>Category `)
			b.Render(Select("category_id", "All", f.Categories, idValue(q.CategoryID)))
			b.Raw(`</label>`)
		}
		if len(f.Units) > 0 {
			b.Raw(`<label>Unit `)
			b.Render(Select("unit_id", "All", f.Units, idValue(q.UnitID)))
			b.Raw(`</label>`)
		}
		if len(f.Sorts) > 0 {
			b.Raw(`<label>Sort `)
			b.Render(Select("sort", "", f.Sorts, q.Sort))
			b.Raw(`</label>`)
		}
		b.Render(f.Extra)
		placeholder := f.Search
		if placeholder == "" {
			placeholder = "Search"
		}
		b.F(`<input type="search" name="q" value="%s" placeholder="%s">`, q.Search, placeholder)
		b.F(`<button type="submit">Filter</button> <a class="reset" href="%s">Reset</a></form>`, f.Action)
	})
}

// PostButton renders a one-button POST form; the CSRF script adds the token.
func PostButton(action, label, class string) templ.Component {
	return Component(func(b *Builder) {
		b.F(`<form class="inline" method="post" action="%s"><button class="%s" type="submit">%s</button></form>`, action, class, label)
	})
}

// Empty renders a placeholder row spanning cols columns.
func Empty(cols int, text string) templ.Component {
	return Component(func(b *Builder) {
		b.F(`<tr><td class="empty" colspan="%d">%s</td></tr>`, cols, text)
	})
}

func dateValue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(listing.DateLayout)
}

func idValue(id int64) string {
	if id <= 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
