package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"wasteboard/frontend/transfers"
	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/transfer"
)

type dropRequestList struct {
	Items      []dropreq.Row      `json:"items"`
	Pagination listing.Pagination `json:"pagination"`
	Summary    dropreq.Summary    `json:"summary"`
}

func (a *API) dropFilter(r *http.Request) dropreq.Filter {
	values := r.URL.Query()
	f := dropreq.Filter{Query: listing.Parse(values, a.Limits)}
	switch d := values.Get("delivery"); d {
	case dropreq.DeliveryPickup, dropreq.DeliveryDropoff:
		f.Delivery = d
	}
	f.Unassigned = values.Get("unassigned") == "1" || values.Get("unassigned") == "true"
	return f
}

func (a *API) listDropRequests(w http.ResponseWriter, r *http.Request) {
	act := actor(r)
	f := a.dropFilter(r)
	rows, total, err := a.Requests.List(r.Context(), act, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := a.Requests.Summary(r.Context(), act, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []dropreq.Row{}
	}
	writeJSON(w, http.StatusOK, dropRequestList{
		Items:      rows,
		Pagination: listing.NewPagination(f.Query, total, Prefix+"/drop-requests"),
		Summary:    sum,
	})
}

type createDropRequest struct {
	UnitID        int64               `json:"unit_id"`
	DeliveryType  string              `json:"delivery_type"`
	PickupAddress string              `json:"pickup_address"`
	ScheduledDate string              `json:"scheduled_date"`
	Notes         string              `json:"notes"`
	Items         []dropreq.ItemInput `json:"items"`
}

func (a *API) createDropRequest(w http.ResponseWriter, r *http.Request) {
	var req createDropRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var scheduled time.Time
	if s := strings.TrimSpace(req.ScheduledDate); s != "" {
		t, err := time.Parse(listing.DateLayout, s)
		if err != nil {
			writeError(w, r, apperr.Validation("scheduled_date must be YYYY-MM-DD"))
			return
		}
		scheduled = t
	}
	act := actor(r)
	dr, err := a.Requests.Create(r.Context(), act, dropreq.CreateInput{
		UnitID:        req.UnitID,
		DeliveryType:  req.DeliveryType,
		PickupAddress: req.PickupAddress,
		ScheduledDate: scheduled,
		Notes:         req.Notes,
		Items:         req.Items,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := a.Requests.LoadDetail(r.Context(), act, dr.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("%s/drop-requests/%d", Prefix, dr.ID))
	writeJSON(w, http.StatusCreated, dropRequestDetail{Request: d, Actions: dropreq.Actions(act, d.Row)})
}

type dropRequestDetail struct {
	Request dropreq.Detail `json:"request"`
	Actions []string       `json:"actions"`
}

func (a *API) getDropRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.writeDropRequest(w, r, http.StatusOK, id)
}

func (a *API) writeDropRequest(w http.ResponseWriter, r *http.Request, status int, id int64) {
	act := actor(r)
	d, err := a.Requests.LoadDetail(r.Context(), act, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	actions := dropreq.Actions(act, d.Row)
	if actions == nil {
		actions = []string{}
	}
	writeJSON(w, status, dropRequestDetail{Request: d, Actions: actions})
}

type dropRequestActionBody struct {
	CollectorID int64           `json:"collector_id"`
	Weights     dropreq.Weights `json:"weights"`
	Reason      string          `json:"reason"`
	Rating      int64           `json:"rating"`
	Comment     string          `json:"comment"`
}

func (a *API) dropRequestAction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body dropRequestActionBody
	if r.ContentLength != 0 {
		if err := decode(r, &body); err != nil {
			writeError(w, r, err)
			return
		}
	}
	act := actor(r)
	ctx := r.Context()
	switch action := chi.URLParam(r, "action"); action {
	case dropreq.ActionAssign:
		err = a.Requests.Assign(ctx, act, id, body.CollectorID)
	case dropreq.ActionStart:
		err = a.Requests.Start(ctx, act, id)
	case dropreq.ActionComplete:
		err = a.Requests.Complete(ctx, act, id, body.Weights)
	case dropreq.ActionReceive:
		err = a.Requests.Receive(ctx, act, id, body.Weights)
	case dropreq.ActionCancel:
		err = a.Requests.Cancel(ctx, act, id, body.Reason)
	case dropreq.ActionRate:
		err = a.Requests.Rate(ctx, act, id, body.Rating, body.Comment)
	default:
		err = fmt.Errorf("drop request action %q: %w", action, apperr.ErrNotFound)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.writeDropRequest(w, r, http.StatusOK, id)
}

type transferList struct {
	Items      []transfer.Row     `json:"items"`
	Pagination listing.Pagination `json:"pagination"`
	Summary    transfer.Summary   `json:"summary"`
}

func (a *API) listTransfers(w http.ResponseWriter, r *http.Request) {
	act := actor(r)
	q := listing.Parse(r.URL.Query(), a.Limits)
	rows, total, err := a.Transfers.List(r.Context(), act, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := a.Transfers.Summary(r.Context(), act, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []transfer.Row{}
	}
	writeJSON(w, http.StatusOK, transferList{
		Items:      rows,
		Pagination: listing.NewPagination(q, total, Prefix+"/transfer-requests"),
		Summary:    sum,
	})
}

func (a *API) createTransfer(w http.ResponseWriter, r *http.Request) {
	var in transfer.CreateInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	act := actor(r)
	if in.SourceUnitID == 0 && act.UnitID != nil {
		in.SourceUnitID = *act.UnitID
	}
	tr, err := a.Transfers.Create(r.Context(), act, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("%s/transfer-requests/%d", Prefix, tr.ID))
	a.writeTransfer(w, r, http.StatusCreated, tr.ID)
}

type transferDetail struct {
	Request transfer.Detail `json:"request"`
	Actions []string        `json:"actions"`
}

func (a *API) getTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.writeTransfer(w, r, http.StatusOK, id)
}

func (a *API) writeTransfer(w http.ResponseWriter, r *http.Request, status int, id int64) {
	act := actor(r)
	d, err := a.Transfers.LoadDetail(r.Context(), act, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	actions := transfer.Actions(act, d.Row)
	if actions == nil {
		actions = []string{}
	}
	writeJSON(w, status, transferDetail{Request: d, Actions: actions})
}

type transferActionBody struct {
	Reason string `json:"reason"`
}

func (a *API) transferAction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body transferActionBody
	if r.ContentLength != 0 {
		if err := decode(r, &body); err != nil {
			writeError(w, r, err)
			return
		}
	}
	err = transfers.Apply(r.Context(), a.Transfers, actor(r), id, chi.URLParam(r, "action"), body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.writeTransfer(w, r, http.StatusOK, id)
}
