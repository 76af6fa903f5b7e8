// Package collectorcentral mounts the collector central pages: collector management and the unassigned pickup queue.
package collectorcentral

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	droprequests "wasteboard/frontend/dropRequests"
	"wasteboard/frontend/login"
	sessioncontext "wasteboard/frontend/shared/context"
	"wasteboard/frontend/shared/respond"
	"wasteboard/infrastructure/cache"
	"wasteboard/infrastructure/collector"
	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/models"
)

const (
	// BasePath shows the collector table.
	BasePath     = "/dashboard/collector-central"
	QueuePath    = BasePath + "/queue"
	RequestsPath = BasePath + "/requests"
)

// ActivePath is where the activate/deactivate form of one collector posts.
func ActivePath(userID int64) string {
	return fmt.Sprintf("%s/collectors/%d/active", BasePath, userID)
}

// QueueConfig lists pickup requests nobody has been assigned to yet, with an inline assign form per row.
func QueueConfig(svc droprequests.Services) droprequests.ListConfig {
	return droprequests.ListConfig{
		Title: "Pickup queue",
		Base:  QueuePath,
		Intro: "Pickup requests waiting for a collector.",
		Table: droprequests.TableOptions{DetailBase: RequestsPath, ShowCustomer: true, ShowUnit: true},
		Scope: func(f *dropreq.Filter) {
			f.Delivery = dropreq.DeliveryPickup
			f.Unassigned = true
			f.Status = dropreq.StatusPending
		},
		Actions: func(r *http.Request, _ models.Actor, back string) (func(dropreq.Row) templ.Component, error) {
			opts, err := svc.Collectors.Options(r.Context())
			if err != nil {
				return nil, err
			}
			return func(row dropreq.Row) templ.Component {
				return droprequests.AssignForm(fmt.Sprintf("%s/%d/assign", RequestsPath, row.ID), back, opts, nil)
			}, nil
		},
	}
}

func QueuePageQueryHandler(svc droprequests.Services, limits listing.Limits) http.HandlerFunc {
	return droprequests.ListPageQueryHandler(svc, QueueConfig(svc), limits)
}

func RequestDetailPageQueryHandler(svc droprequests.Services) http.HandlerFunc {
	return droprequests.DetailPageQueryHandler(svc, RequestsPath, QueuePath)
}

func AssignCommandHandler(svc droprequests.Services) http.HandlerFunc {
	return droprequests.AssignCommandHandler(svc, RequestsPath)
}

// CollectorsPageQueryHandler renders the collector table with active/inactive tabs.
func CollectorsPageQueryHandler(collectors *collector.Service, limits listing.Limits) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := listing.Parse(r.URL.Query(), limits)
		rows, p, sum, err := collectors.List(r.Context(), q, BasePath)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		_, _, allSum, err := collectors.List(r.Context(), q.WithStatus(""), BasePath)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		counts := map[string]int{"": allSum.Total, collector.FilterActive: allSum.Active, collector.FilterInactive: allSum.Total - allSum.Active}
		respond.Page(w, r, "Collectors", CollectorsPage(CollectorsData{Query: q, Rows: rows, Pagination: p, Summary: sum, Counts: counts}))
	}
}

// SetActiveCommandHandler activates or deactivates collector {id}; deactivation drops their sessions.
func SetActiveCommandHandler(db *sqlite.DB, collectors *collector.Service, sessionCache *cache.UserSessionCache, userCache *cache.UserCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		userID, ok := respond.ID(r, "id")
		if !ok {
			respond.Message(w, r, BasePath, "invalid collector")
			return
		}
		active := r.FormValue("active") == "1"
		user, err := collectors.SetActive(r.Context(), actor, userID, active)
		if err != nil {
			respond.Error(w, r, BasePath, err, "failed to update collector")
			return
		}
		if active {
			userCache.Add(user)
			sessionCache.UpdateUser(user)
			respond.Status(w, r, BasePath, user.Name()+" activated")
			return
		}
		userCache.Invalidate(user.ID)
		sessionCache.DeleteSessionsByUserID(user.ID)
		if err := login.DeleteSessionsByUserID(r.Context(), db, user.ID); err != nil {
			slog.Error("collectors: drop sessions failed", slog.Int64("user_id", user.ID), slog.Any("err", err))
		}
		respond.Status(w, r, BasePath, user.Name()+" deactivated")
	}
}
