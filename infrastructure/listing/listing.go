// Package listing holds the filter, sort and pagination vocabulary shared by every list page and API.
package listing

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Limits bounds page sizes; configured once at startup.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
}

var DefaultLimits = Limits{DefaultPageSize: 10, MaxPageSize: 100}

// MaxPage bounds page numbers so offsets cannot overflow.
const MaxPage = 1_000_000

// Query is the parsed form of a list page's query string.
type Query struct {
	Status     string
	From       *time.Time
	To         *time.Time
	CategoryID int64
	UnitID     int64
	Search     string
	Sort       string
	Page       int
	PageSize   int
}

// Parse reads status, from, to, category_id, unit_id, q, sort, page and page_size.
// Malformed values are dropped rather than rejected so a bad link still renders a page.
func Parse(values url.Values, limits Limits) Query {
	q := Query{
		Status: strings.ToLower(strings.TrimSpace(values.Get("status"))),
		Search: strings.TrimSpace(values.Get("q")),
		Sort:   strings.ToLower(strings.TrimSpace(values.Get("sort"))),
	}
	if q.Status == "all" {
		q.Status = ""
	}
	q.From = parseDate(values.Get("from"))
	q.To = parseDate(values.Get("to"))
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		q.From, q.To = q.To, q.From
	}
	q.CategoryID = parsePositive(values.Get("category_id"))
	q.UnitID = parsePositive(values.Get("unit_id"))
	q.Page = int(parsePositive(values.Get("page")))
	q.PageSize = int(parsePositive(values.Get("page_size")))
	return q.Normalize(limits)
}

// Normalize clamps paging to limits.
func (q Query) Normalize(limits Limits) Query {
	if limits.DefaultPageSize <= 0 {
		limits = DefaultLimits
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.PageSize <= 0 {
		q.PageSize = limits.DefaultPageSize
	}
	if limits.MaxPageSize > 0 && q.PageSize > limits.MaxPageSize {
		q.PageSize = limits.MaxPageSize
	}
	return q
}

func (q Query) Offset() int {
	if q.Page <= 1 || q.PageSize <= 0 {
		return 0
	}
	skipped := min(q.Page, MaxPage) - 1
	if q.PageSize > math.MaxInt/skipped {
		return math.MaxInt
	}
	return skipped * q.PageSize
}

// ToExclusive returns the day after To, for half-open date range filters.
func (q Query) ToExclusive() *time.Time {
	if q.To == nil {
		return nil
	}
	next := q.To.AddDate(0, 0, 1)
	return &next
}

// Values encodes q back into query parameters, omitting defaults.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.From != nil {
		v.Set("from", q.From.Format(DateLayout))
	}
	if q.To != nil {
		v.Set("to", q.To.Format(DateLayout))
	}
	if q.CategoryID > 0 {
		v.Set("category_id", strconv.FormatInt(q.CategoryID, 10))
	}
	if q.UnitID > 0 {
		v.Set("unit_id", strconv.FormatInt(q.UnitID, 10))
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Page > 1 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 && q.PageSize != DefaultLimits.DefaultPageSize {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	return v
}

// WithStatus returns a copy filtered on status, reset to the first page. Used by status tabs.
func (q Query) WithStatus(status string) Query {
	q.Status = status
	q.Page = 1
	return q
}

// Pagination contains pagination metadata for list views.
type Pagination struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalCount int    `json:"total_count"`
	TotalPages int    `json:"total_pages"`
	HasPrev    bool   `json:"has_prev"`
	HasNext    bool   `json:"has_next"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	PrevURL    string `json:"-"`
	NextURL    string `json:"-"`
}

// NewPagination describes page q.Page of total rows; basePath builds prev/next links.
func NewPagination(q Query, total int, basePath string) Pagination {
	p := Pagination{Page: q.Page, PageSize: q.PageSize, TotalCount: total}
	if p.PageSize <= 0 {
		p.PageSize = DefaultLimits.DefaultPageSize
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	p.TotalPages = (total + p.PageSize - 1) / p.PageSize
	if p.TotalPages == 0 {
		p.TotalPages = 1
	}
	p.HasPrev = p.Page > 1
	p.HasNext = p.Page < p.TotalPages
	if total > 0 {
		skipped := Query{Page: p.Page, PageSize: p.PageSize}.Offset()
		if skipped < total {
			p.StartIndex = skipped + 1
			p.EndIndex = skipped + min(p.PageSize, total-skipped)
		}
	}
	if basePath != "" {
		if p.HasPrev {
			prev := q
			prev.Page = p.Page - 1
			p.PrevURL = link(basePath, prev)
		}
		if p.HasNext {
			next := q
			next.Page = p.Page + 1
			p.NextURL = link(basePath, next)
		}
	}
	return p
}

// Link renders basePath with q's parameters.
func Link(basePath string, q Query) string {
	return link(basePath, q)
}

func link(basePath string, q Query) string {
	enc := q.Values().Encode()
	if enc == "" {
		return basePath
	}
	if strings.Contains(basePath, "?") {
		return fmt.Sprintf("%s&%s", basePath, enc)
	}
	return fmt.Sprintf("%s?%s", basePath, enc)
}

// Paginate slices an in-memory list to q's page and describes it.
func Paginate[T any](items []T, q Query, basePath string) ([]T, Pagination) {
	q = q.Normalize(Limits{DefaultPageSize: q.PageSize, MaxPageSize: 0})
	p := NewPagination(q, len(items), basePath)
	start := q.Offset()
	if start < 0 || start >= len(items) {
		return []T{}, p
	}
	end := start + min(q.PageSize, len(items)-start)
	return items[start:end], p
}

// Filter keeps the items for which keep returns true.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// ContainsFold reports whether any of fields contains needle, ignoring case. Empty needle matches.
func ContainsFold(needle string, fields ...string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// LikePattern escapes a search term for `LIKE ? ESCAPE '\'`.
func LikePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil
	}
	return &t
}

func parsePositive(raw string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v <= 0 {
		return 0
	}
	return v
}
