package html

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"testing"

	"wasteboard/frontend/shared/nav"
	"wasteboard/infrastructure/listing"
)

func render(t *testing.T, fn func(b *Builder)) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Component(fn).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestStatusTabsKeepFilters(t *testing.T) {
	q := listing.Parse(url.Values{"q": {"plastik"}, "page": {"3"}, "status": {"pending"}}, listing.DefaultLimits)
	counts := map[string]int{"pending": 2, "completed": 5}
	tabs := StatusTabs("/dashboard/customer", q, []string{"pending", "completed"}, strings.ToUpper, func(s string) int { return counts[s] })

	if len(tabs) != 3 || tabs[0].Count != 7 || tabs[0].Active {
		t.Fatalf("unexpected all tab %+v", tabs[0])
	}
	if !tabs[1].Active || tabs[1].Label != "PENDING" {
		t.Fatalf("expected pending tab active, got %+v", tabs[1])
	}
	if tabs[2].Href != "/dashboard/customer?q=plastik&status=completed" {
		t.Fatalf("tab must reset page and keep search, got %s", tabs[2].Href)
	}
}

func TestFiltersRenderSelectedValues(t *testing.T) {
	q := listing.Parse(url.Values{"from": {"2026-01-02"}, "category_id": {"4"}}, listing.DefaultLimits)
	out := render(t, func(b *Builder) {
		b.Render(Filters(FilterForm{
			Action:     "/x",
			Query:      q,
			Categories: []Option{IDOption(4, "Plastic"), IDOption(5, "Paper")},
			Dates:      true,
		}))
	})
	if !strings.Contains(out, `value="2026-01-02"`) {
		t.Fatalf("from date not rendered: %s", out)
	}
	if !strings.Contains(out, `<option value="4" selected>Plastic</option>`) {
		t.Fatalf("category not selected: %s", out)
	}
}

func TestRenderLayoutEscapesFlash(t *testing.T) {
	out := render(t, func(b *Builder) {
		b.Render(RenderLayout(Page{
			Title: "Requests",
			Nav:   nav.TopNavData{Name: "Ani", Role: "customer", Links: []nav.Link{{Label: "Home", Href: "/", Active: true}}},
			Error: "<b>bad</b>",
		}))
	})
	if strings.Contains(out, "<b>bad</b>") || !strings.Contains(out, "&lt;b&gt;bad&lt;/b&gt;") {
		t.Fatalf("flash must be escaped: %s", out)
	}
	if !strings.Contains(out, `<a href="/" class="active">Home</a>`) {
		t.Fatalf("active nav link missing: %s", out)
	}
}

func TestPager(t *testing.T) {
	q := listing.Query{Page: 2, PageSize: 10}
	p := listing.NewPagination(q, 25, "/list")
	out := render(t, func(b *Builder) { b.Render(Pager(p)) })
	for _, want := range []string{"11-20 of 25", `href="/list"`, `href="/list?page=3"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("pager missing %q: %s", want, out)
		}
	}
}
