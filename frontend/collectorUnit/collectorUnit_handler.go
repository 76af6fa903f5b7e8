// Package collectorunit mounts a field collector's task pages.
package collectorunit

import (
	"fmt"
	"net/http"

	"github.com/a-h/templ"

	droprequests "wasteboard/frontend/dropRequests"
	"wasteboard/frontend/shared/html"
	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/listing"
	"wasteboard/models"
)

const (
	BasePath  = "/dashboard/collector-unit"
	TasksPath = BasePath + "/tasks"
)

// TasksConfig lists the requests assigned to the calling collector; assigned tasks can be started inline.
func TasksConfig() droprequests.ListConfig {
	return droprequests.ListConfig{
		Title: "My tasks",
		Base:  BasePath,
		Table: droprequests.TableOptions{DetailBase: TasksPath, ShowCustomer: true, ShowUnit: true},
		Actions: func(_ *http.Request, actor models.Actor, back string) (func(dropreq.Row) templ.Component, error) {
			return func(r dropreq.Row) templ.Component {
				return taskActions(actor, r, back)
			}, nil
		},
	}
}

func taskActions(actor models.Actor, r dropreq.Row, back string) templ.Component {
	return html.Component(func(b *html.Builder) {
		for _, a := range dropreq.Actions(actor, r) {
			switch a {
			case dropreq.ActionStart:
				b.F(`<form class="inline" method="post" action="%s/%d/start"><input type="hidden" name="return_to" value="%s"><button type="submit">Start</button></form> `, TasksPath, r.ID, back)
			case dropreq.ActionComplete:
				b.F(`<a href="%s/%d">Weigh &amp; complete</a> `, TasksPath, r.ID)
			}
		}
		b.F(`<a href="%s">Slip</a>`, fmt.Sprintf("%s/%d/slip.pdf", TasksPath, r.ID))
	})
}

func TasksPageQueryHandler(svc droprequests.Services, limits listing.Limits) http.HandlerFunc {
	return droprequests.ListPageQueryHandler(svc, TasksConfig(), limits)
}

func TaskDetailPageQueryHandler(svc droprequests.Services) http.HandlerFunc {
	return droprequests.DetailPageQueryHandler(svc, TasksPath, BasePath)
}

func StartCommandHandler(svc droprequests.Services) http.HandlerFunc {
	return droprequests.StartCommandHandler(svc, TasksPath)
}

func CompleteCommandHandler(svc droprequests.Services) http.HandlerFunc {
	return droprequests.CompleteCommandHandler(svc, TasksPath)
}
