// Package transfers holds the transfer request pages shared by waste bank units and the central bank.
package transfers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	droprequests "wasteboard/frontend/dropRequests"
	sessioncontext "wasteboard/frontend/shared/context"
	"wasteboard/frontend/shared/html"
	"wasteboard/frontend/shared/respond"
	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/inventory"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/sqlite"
	"wasteboard/infrastructure/transfer"
	"wasteboard/models"
)

type Services struct {
	DB        *sqlite.DB
	Transfers *transfer.Service
	Catalog   *catalog.Service
	Inventory *inventory.Service
}

func canCreate(actor models.Actor) bool {
	switch actor.Role {
	case rbac.RoleAdmin, rbac.RoleWastebankCentral:
		return true
	case rbac.RoleWastebankUnit:
		return actor.UnitID != nil
	}
	return false
}

// ListPageQueryHandler renders the role-scoped transfer list under base.
// Central staff additionally get a unit filter and inline approve/reject buttons.
func ListPageQueryHandler(svc Services, base, title string, limits listing.Limits) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		q := listing.Parse(r.URL.Query(), limits)
		rows, total, err := svc.Transfers.List(r.Context(), actor, q)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		summary, err := svc.Transfers.Summary(r.Context(), actor, q)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		data := ListData{
			Base:       base,
			Query:      q,
			Rows:       rows,
			Pagination: listing.NewPagination(q, total, base),
			Summary:    summary,
			CanCreate:  canCreate(actor),
		}
		if actor.Role == rbac.RoleWastebankCentral || actor.Role == rbac.RoleAdmin {
			if data.Units, err = orgunit.List(r.Context(), svc.DB, orgunit.KindWastebankCentral, orgunit.KindWastebankUnit, orgunit.KindIndustry); err != nil {
				respond.LoadFailed(w, r, err)
				return
			}
			back := listing.Link(base, q)
			data.RowActions = func(row transfer.Row) templ.Component {
				return decisionButtons(actor, row, base, back)
			}
		}
		respond.Page(w, r, title, ListBody(data))
	}
}

func decisionButtons(actor models.Actor, row transfer.Row, base, back string) templ.Component {
	return html.Component(func(b *html.Builder) {
		for _, a := range transfer.Actions(actor, row) {
			action := fmt.Sprintf("%s/%d/%s", base, row.ID, a)
			switch a {
			case transfer.ActionApprove:
				b.F(`<form class="inline" method="post" action="%s"><input type="hidden" name="return_to" value="%s"><button type="submit">Approve</button></form>`, action, back)
			case transfer.ActionReject:
				b.F(`<form class="inline" method="post" action="%s"><input type="hidden" name="return_to" value="%s"><input name="reason" placeholder="Reason" required size="12"> <button class="danger" type="submit">Reject</button></form>`, action, back)
			}
		}
	})
}

func DetailPageQueryHandler(svc Services, base string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		id, ok := respond.ID(r, "id")
		if !ok {
			http.NotFound(w, r)
			return
		}
		d, err := svc.Transfers.LoadDetail(r.Context(), actor, id)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		respond.Page(w, r, "Transfer "+d.Reference, DetailBody(DetailView{Detail: d, Base: base, Allowed: transfer.Actions(actor, d.Row)}))
	}
}

func NewPageQueryHandler(svc Services, base string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if !canCreate(actor) {
			respond.LoadFailed(w, r, apperr.ErrForbidden)
			return
		}
		data := CreateFormData{Action: base}
		all, err := orgunit.List(r.Context(), svc.DB, orgunit.KindWastebankCentral, orgunit.KindWastebankUnit, orgunit.KindIndustry)
		if err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		for _, u := range all {
			if actor.Role == rbac.RoleWastebankUnit && actor.InUnit(u.ID) {
				data.SourceName = u.Name
				continue
			}
			data.Destinations = append(data.Destinations, u)
			if actor.Role != rbac.RoleWastebankUnit && orgunit.IsWastebank(u.Kind) {
				data.Sources = append(data.Sources, u)
			}
		}
		if data.Types, err = svc.Catalog.ListTypes(r.Context(), 0); err != nil {
			respond.LoadFailed(w, r, err)
			return
		}
		if actor.Role == rbac.RoleWastebankUnit {
			st, err := svc.Inventory.Stock(r.Context(), actor, *actor.UnitID)
			if err != nil {
				respond.LoadFailed(w, r, err)
				return
			}
			data.Stock = &st
		}
		respond.Page(w, r, "New transfer", CreateForm(data))
	}
}

// ParseCreateForm reads the transfer form; unit staff always ship from their own unit.
func ParseCreateForm(r *http.Request, actor models.Actor) (transfer.CreateInput, error) {
	in := transfer.CreateInput{Notes: strings.TrimSpace(r.FormValue("notes"))}
	if actor.Role == rbac.RoleWastebankUnit && actor.UnitID != nil {
		in.SourceUnitID = *actor.UnitID
	} else if id, ok := respond.FormID(r, "source_unit_id"); ok {
		in.SourceUnitID = id
	} else {
		return in, apperr.Validation("choose a source unit")
	}
	id, ok := respond.FormID(r, "destination_unit_id")
	if !ok {
		return in, apperr.Validation("choose a destination")
	}
	in.DestinationUnitID = id

	amounts := r.Form["kg"]
	for i, rawType := range r.Form["waste_type_id"] {
		rawType = strings.TrimSpace(rawType)
		if rawType == "" {
			continue
		}
		typeID, err := strconv.ParseInt(rawType, 10, 64)
		if err != nil || typeID <= 0 {
			return in, apperr.Validation("invalid waste type on line %d", i+1)
		}
		rawKg := ""
		if i < len(amounts) {
			rawKg = amounts[i]
		}
		grams, err := droprequests.ParseKg(rawKg)
		if err != nil {
			return in, apperr.Validation("line %d: %s", i+1, err.Error())
		}
		in.Items = append(in.Items, transfer.ItemInput{WasteTypeID: typeID, Grams: grams})
	}
	return in, nil
}

func CreateCommandHandler(svc Services, base string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		formPath := base + "/new"
		if err := r.ParseForm(); err != nil {
			respond.Message(w, r, formPath, "invalid form data")
			return
		}
		in, err := ParseCreateForm(r, actor)
		if err != nil {
			respond.Error(w, r, formPath, err, "invalid transfer")
			return
		}
		tr, err := svc.Transfers.Create(r.Context(), actor, in)
		if err != nil {
			respond.Error(w, r, formPath, err, "failed to request transfer")
			return
		}
		respond.Status(w, r, fmt.Sprintf("%s/%d", base, tr.ID), "transfer "+tr.Reference+" requested")
	}
}

// ActionCommandHandler runs the {action} transition named in the route.
func ActionCommandHandler(svc Services, base string, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := sessioncontext.ActorFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		id, ok := respond.ID(r, "id")
		if !ok {
			respond.Message(w, r, base, "invalid transfer id")
			return
		}
		if err := r.ParseForm(); err != nil {
			respond.Message(w, r, base, "invalid form data")
			return
		}
		dest := fmt.Sprintf("%s/%d", base, id)
		if to := strings.TrimSpace(r.FormValue("return_to")); strings.HasPrefix(to, base) && !strings.Contains(to, "//") {
			dest = to
		}
		if err := Apply(r.Context(), svc.Transfers, actor, id, action, r.FormValue("reason")); err != nil {
			respond.Error(w, r, dest, err, action+" failed")
			return
		}
		respond.Status(w, r, dest, "transfer "+pastTense(action))
	}
}

// Apply dispatches action on transfer id; the JSON API shares it.
func Apply(ctx context.Context, svc *transfer.Service, actor models.Actor, id int64, action, reason string) error {
	switch action {
	case transfer.ActionApprove:
		return svc.Approve(ctx, actor, id)
	case transfer.ActionReject:
		return svc.Reject(ctx, actor, id, reason)
	case transfer.ActionShip:
		return svc.Ship(ctx, actor, id)
	case transfer.ActionReceive:
		return svc.Receive(ctx, actor, id)
	case transfer.ActionCancel:
		return svc.Cancel(ctx, actor, id)
	}
	return fmt.Errorf("transfer action %q: %w", action, apperr.ErrNotFound)
}

func pastTense(action string) string {
	switch action {
	case transfer.ActionShip:
		return "shipped"
	case transfer.ActionCancel:
		return "cancelled"
	default:
		return action + "d"
	}
}
