package audit

import (
	"net/http"
	"net/url"
	"strings"

	"wasteboard/frontend/shared/context"
	"wasteboard/frontend/shared/nav"
	"wasteboard/frontend/shared/respond"
	auditlog "wasteboard/infrastructure/audit"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/sqlite"
)

const basePath = "/dashboard/admin/audit"

// AuditPageQueryHandler lists audit entries filtered by entity and action prefix.
func AuditPageQueryHandler(db *sqlite.DB, limits listing.Limits) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		values := r.URL.Query()
		q := listing.Parse(values, limits)
		f := auditlog.Filter{
			EntityType: strings.TrimSpace(values.Get("entity_type")),
			EntityID:   strings.TrimSpace(values.Get("entity_id")),
			Action:     strings.TrimSpace(values.Get("action")),
			Limit:      q.PageSize,
			Offset:     q.Offset(),
		}

		entries, total, err := auditlog.List(r.Context(), db.R, f)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}

		respond.HTML(w, r, AuditPage(PageData{
			Nav:        nav.BuildTopNavData(session, r.URL.Path),
			Filter:     f,
			Entries:    entries,
			Pagination: listing.NewPagination(q, total, filterBase(f)),
		}))
	}
}

func filterBase(f auditlog.Filter) string {
	v := url.Values{}
	if f.EntityType != "" {
		v.Set("entity_type", f.EntityType)
	}
	if f.EntityID != "" {
		v.Set("entity_id", f.EntityID)
	}
	if f.Action != "" {
		v.Set("action", f.Action)
	}
	if len(v) == 0 {
		return basePath
	}
	return basePath + "?" + v.Encode()
}
