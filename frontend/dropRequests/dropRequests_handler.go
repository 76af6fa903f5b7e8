package droprequests

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"wasteboard/frontend/shared/context"
	"wasteboard/frontend/shared/respond"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/collector"
	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/profile"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/models"
)

// Services bundles what the drop request pages read and write.
type Services struct {
	DB         *sqlite.DB
	Requests   *dropreq.Service
	Collectors *collector.Service
	Catalog    *catalog.Service
	Profiles   *profile.Service
}

// DetailPageQueryHandler renders request {id} with the actions the viewer may take.
// base is the role prefix the detail lives under, e.g. /dashboard/customer/requests.
func DetailPageQueryHandler(svc Services, base, back string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := context.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		id, ok := respond.ID(r, "id")
		if !ok {
			http.NotFound(w, r)
			return
		}
		d, err := svc.Requests.LoadDetail(r.Context(), actor, id)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		v := DetailView{Detail: d, Base: base, BackHref: back, Allowed: dropreq.Actions(actor, d.Row)}
		if v.can(dropreq.ActionAssign) {
			if v.Collectors, err = svc.Collectors.Options(r.Context()); err != nil {
				respond.LoadFailed(w, r, err)
				return
			}
		}
		respond.Page(w, r, "Request "+d.Reference, DetailBody(v))
	}
}

type transitionFunc func(r *http.Request, actor models.Actor, id int64) error

// transitionHandler runs one lifecycle action on {id} and redirects back with a notice.
func transitionHandler(base, done, failed string, apply transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := context.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		id, ok := respond.ID(r, "id")
		if !ok {
			respond.Message(w, r, base, "invalid request id")
			return
		}
		dest := returnTo(r, fmt.Sprintf("%s/%d", base, id))
		if err := r.ParseForm(); err != nil {
			respond.Message(w, r, dest, "invalid form data")
			return
		}
		if err := apply(r, actor, id); err != nil {
			respond.Error(w, r, dest, err, failed)
			return
		}
		respond.Status(w, r, dest, done)
	}
}

// returnTo honours a return_to form field that points back into the dashboard.
func returnTo(r *http.Request, fallback string) string {
	to := strings.TrimSpace(r.FormValue("return_to"))
	if strings.HasPrefix(to, "/dashboard/") && !strings.Contains(to, "//") {
		return to
	}
	return fallback
}

func AssignCommandHandler(svc Services, base string) http.HandlerFunc {
	return transitionHandler(base, "collector assigned", "assign failed", func(r *http.Request, actor models.Actor, id int64) error {
		collectorID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("collector_id")), 10, 64)
		if err != nil || collectorID <= 0 {
			return errChooseCollector
		}
		return svc.Requests.Assign(r.Context(), actor, id, collectorID)
	})
}

func StartCommandHandler(svc Services, base string) http.HandlerFunc {
	return transitionHandler(base, "collection started", "start failed", func(r *http.Request, actor models.Actor, id int64) error {
		return svc.Requests.Start(r.Context(), actor, id)
	})
}

func CompleteCommandHandler(svc Services, base string) http.HandlerFunc {
	return transitionHandler(base, "collection completed", "complete failed", func(r *http.Request, actor models.Actor, id int64) error {
		weights, err := formWeights(r, svc, actor, id)
		if err != nil {
			return err
		}
		return svc.Requests.Complete(r.Context(), actor, id, weights)
	})
}

func ReceiveCommandHandler(svc Services, base string) http.HandlerFunc {
	return transitionHandler(base, "drop-off received", "receive failed", func(r *http.Request, actor models.Actor, id int64) error {
		weights, err := formWeights(r, svc, actor, id)
		if err != nil {
			return err
		}
		return svc.Requests.Receive(r.Context(), actor, id, weights)
	})
}

func formWeights(r *http.Request, svc Services, actor models.Actor, id int64) (dropreq.Weights, error) {
	d, err := svc.Requests.LoadDetail(r.Context(), actor, id)
	if err != nil {
		return nil, err
	}
	return ParseWeights(r, d)
}

func CancelCommandHandler(svc Services, base string) http.HandlerFunc {
	return transitionHandler(base, "request cancelled", "cancel failed", func(r *http.Request, actor models.Actor, id int64) error {
		return svc.Requests.Cancel(r.Context(), actor, id, r.FormValue("reason"))
	})
}

func RateCommandHandler(svc Services, base string) http.HandlerFunc {
	return transitionHandler(base, "thanks for your rating", "rating failed", func(r *http.Request, actor models.Actor, id int64) error {
		rating, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("rating")), 10, 64)
		if err != nil {
			return errChooseRating
		}
		return svc.Requests.Rate(r.Context(), actor, id, rating, r.FormValue("comment"))
	})
}

// NewRequestPageQueryHandler renders the drop request form posting to action.
func NewRequestPageQueryHandler(svc Services, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		body, err := loadCreateForm(r, svc, session.UserID, action)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		respond.Page(w, r, "New drop request", body)
	}
}

func loadCreateForm(r *http.Request, svc Services, userID int64, action string) (templ.Component, error) {
	units, err := orgunit.List(r.Context(), svc.DB, orgunit.KindWastebankUnit)
	if err != nil {
		return nil, err
	}
	types, err := svc.Catalog.ListTypes(r.Context(), 0)
	if err != nil {
		return nil, err
	}
	p, err := svc.Profiles.Load(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	return CreateForm(CreateFormData{Action: action, Units: units, Types: types, Address: p.Address, Today: time.Now()}), nil
}

// CreateCommandHandler submits a new request and opens its detail page under base.
func CreateCommandHandler(svc Services, formPath, base string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := context.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err := r.ParseForm(); err != nil {
			respond.Message(w, r, formPath, "invalid form data")
			return
		}
		in, err := ParseCreateForm(r)
		if err != nil {
			respond.Error(w, r, formPath, err, "invalid request")
			return
		}
		dr, err := svc.Requests.Create(r.Context(), actor, in)
		if err != nil {
			respond.Error(w, r, formPath, err, "failed to submit request")
			return
		}
		respond.Status(w, r, fmt.Sprintf("%s/%d", base, dr.ID), "request "+dr.Reference+" submitted")
	}
}

// SlipPDFHandler streams the printable slip of request {id}.
func SlipPDFHandler(svc Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := context.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		id, ok := respond.ID(r, "id")
		if !ok {
			http.NotFound(w, r)
			return
		}
		d, err := svc.Requests.LoadDetail(r.Context(), actor, id)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		pdfBytes, err := renderSlipPDF(d, time.Now())
		if err != nil {
			slog.Error("drop request slip: render failed", slog.Int64("id", id), slog.Any("err", err))
			http.Error(w, "failed to render slip", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"slip-%s.pdf\"", d.Reference))
		w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pdfBytes)
	}
}
