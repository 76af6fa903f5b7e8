package droprequests

import (
	"net/http"

	"github.com/a-h/templ"

	"wasteboard/frontend/shared/context"
	"wasteboard/frontend/shared/html"
	"wasteboard/frontend/shared/respond"
	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/listing"
	"wasteboard/models"
)

// ListConfig describes one role's drop request list page.
type ListConfig struct {
	Title   string
	Base    string
	NewHref string
	Intro   string
	Table   TableOptions
	// Scope narrows every query on this page, e.g. the unassigned pickup queue.
	Scope func(*dropreq.Filter)
	// Actions builds per-row controls; back is the current list URL.
	Actions func(r *http.Request, actor models.Actor, back string) (func(dropreq.Row) templ.Component, error)
	// Extra renders above the list, after the summary cards.
	Extra func(r *http.Request, actor models.Actor) (templ.Component, error)
}

type ListData struct {
	Config     ListConfig
	Query      listing.Query
	Rows       []dropreq.Row
	Pagination listing.Pagination
	Summary    dropreq.Summary
	Categories []html.Option
	Extra      templ.Component
}

// ListPageQueryHandler renders a filtered, tabbed, paginated request list.
func ListPageQueryHandler(svc Services, cfg ListConfig, limits listing.Limits) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := context.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		data, err := LoadList(r, svc, actor, cfg, limits)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		respond.Page(w, r, cfg.Title, ListBody(data))
	}
}

// LoadList reads one list page for actor.
func LoadList(r *http.Request, svc Services, actor models.Actor, cfg ListConfig, limits listing.Limits) (ListData, error) {
	q := listing.Parse(r.URL.Query(), limits)
	f := dropreq.Filter{Query: q}
	if cfg.Scope != nil {
		cfg.Scope(&f)
	}
	data := ListData{Config: cfg, Query: q}
	var (
		total int
		err   error
	)
	if data.Rows, total, err = svc.Requests.List(r.Context(), actor, f); err != nil {
		return data, err
	}
	if data.Summary, err = svc.Requests.Summary(r.Context(), actor, f); err != nil {
		return data, err
	}
	cats, err := svc.Catalog.ListCategories(r.Context())
	if err != nil {
		return data, err
	}
	data.Categories = CategoryOptions(cats)
	data.Pagination = listing.NewPagination(q, total, cfg.Base)
	if cfg.Actions != nil {
		if data.Config.Table.RowActions, err = cfg.Actions(r, actor, listing.Link(cfg.Base, q)); err != nil {
			return data, err
		}
	}
	if cfg.Extra != nil {
		if data.Extra, err = cfg.Extra(r, actor); err != nil {
			return data, err
		}
	}
	return data, nil
}

func ListBody(data ListData) templ.Component {
	cfg := data.Config
	return html.Component(func(b *html.Builder) {
		if cfg.Intro != "" {
			b.F(`<p class="intro">%s</p>`, cfg.Intro)
		}
		if cfg.NewHref != "" {
			b.F(`<p><a class="button" href="%s">New drop request</a></p>`, cfg.NewHref)
		}
		b.Render(SummaryCards(data.Summary))
		b.Render(data.Extra)
		b.Render(Tabs(cfg.Base, data.Query, data.Summary))
		b.Render(html.Filters(html.FilterForm{
			Action:     cfg.Base,
			Query:      data.Query,
			Statuses:   StatusOptions(),
			Categories: data.Categories,
			Sorts:      SortOptions,
			Dates:      true,
			Search:     "Reference, address or customer",
		}))
		b.Render(Table(data.Rows, cfg.Table))
		b.Render(html.Pager(data.Pagination))
	})
}
