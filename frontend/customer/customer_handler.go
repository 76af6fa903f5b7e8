// Package customer mounts the customer dashboard: own drop requests, new request form, rating.
package customer

import (
	"net/http"

	droprequests "wasteboard/frontend/dropRequests"
	"wasteboard/infrastructure/listing"
)

const (
	BasePath     = "/dashboard/customer"
	RequestsPath = BasePath + "/requests"
	NewPath      = RequestsPath + "/new"
)

// DashboardConfig lists the customer's own requests.
func DashboardConfig() droprequests.ListConfig {
	return droprequests.ListConfig{
		Title:   "My drop requests",
		Base:    BasePath,
		NewHref: NewPath,
		Table:   droprequests.TableOptions{DetailBase: RequestsPath, ShowUnit: true, ShowCollector: true},
	}
}

func DashboardPageQueryHandler(svc droprequests.Services, limits listing.Limits) http.HandlerFunc {
	return droprequests.ListPageQueryHandler(svc, DashboardConfig(), limits)
}

func NewRequestPageQueryHandler(svc droprequests.Services) http.HandlerFunc {
	return droprequests.NewRequestPageQueryHandler(svc, RequestsPath)
}

func CreateRequestCommandHandler(svc droprequests.Services) http.HandlerFunc {
	return droprequests.CreateCommandHandler(svc, NewPath, RequestsPath)
}

func RequestDetailPageQueryHandler(svc droprequests.Services) http.HandlerFunc {
	return droprequests.DetailPageQueryHandler(svc, RequestsPath, BasePath)
}
