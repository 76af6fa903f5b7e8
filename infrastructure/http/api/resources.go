package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"wasteboard/frontend/shared/respond"
	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/collector"
	"wasteboard/infrastructure/listing"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/profile"
	"wasteboard/infrastructure/rbac"
	"wasteboard/models"
)

func (a *API) getMe(w http.ResponseWriter, r *http.Request) {
	p, err := a.Profiles.Load(r.Context(), actor(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) putMe(w http.ResponseWriter, r *http.Request) {
	var in profile.UpdateInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := a.Profiles.Update(r.Context(), actor(r).UserID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if a.Users != nil {
		a.Users.Add(user)
	}
	a.getMe(w, r)
}

// queryInt64 returns 0 for a missing parameter and a validation error for a malformed one.
func queryInt64(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, apperr.Validation("%s must be a positive integer", name)
	}
	return v, nil
}

// unitOrOwn falls back to the caller's unit when unit_id is omitted.
func unitOrOwn(r *http.Request) (int64, error) {
	id, err := queryInt64(r, "unit_id")
	if err != nil || id > 0 {
		return id, err
	}
	if act := actor(r); act.UnitID != nil {
		return *act.UnitID, nil
	}
	return 0, apperr.Validation("unit_id is required")
}

type catalogResponse struct {
	Categories []models.WasteCategory `json:"categories,omitempty"`
	Types      []catalog.TypeRow      `json:"types,omitempty"`
	UnitID     int64                  `json:"unit_id,omitempty"`
	Prices     []catalog.PriceRow     `json:"prices,omitempty"`
}

func (a *API) getCatalog(w http.ResponseWriter, r *http.Request) {
	unitID, err := queryInt64(r, "unit_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var resp catalogResponse
	if unitID > 0 {
		resp.UnitID = unitID
		resp.Prices, err = a.Catalog.PriceTable(r.Context(), unitID)
	} else {
		resp.Categories, err = a.Catalog.ListCategories(r.Context())
		if err == nil {
			var categoryID int64
			categoryID, err = queryInt64(r, "category_id")
			if err == nil {
				resp.Types, err = a.Catalog.ListTypes(r.Context(), categoryID)
			}
		}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type unitJSON struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Kind     string `json:"kind"`
	ParentID *int64 `json:"parent_id,omitempty"`
	Address  string `json:"address"`
}

func (a *API) getUnits(w http.ResponseWriter, r *http.Request) {
	var kinds []string
	if kind := strings.TrimSpace(r.URL.Query().Get("kind")); kind != "" {
		if !orgunit.IsValidKind(kind) {
			writeError(w, r, apperr.Validation("unknown unit kind %q", kind))
			return
		}
		kinds = append(kinds, kind)
	}
	units, err := orgunit.List(r.Context(), a.DB, kinds...)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]unitJSON, 0, len(units))
	for _, u := range units {
		out = append(out, unitJSON{ID: u.ID, Name: u.Name, Code: u.Code, Kind: u.Kind, ParentID: u.ParentID, Address: u.Address})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (a *API) getPrices(w http.ResponseWriter, r *http.Request) {
	unitID, err := unitOrOwn(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := a.Catalog.PriceTable(r.Context(), unitID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unit_id": unitID, "items": rows})
}

type priceRequest struct {
	UnitID      int64 `json:"unit_id"`
	WasteTypeID int64 `json:"waste_type_id"`
	PricePerKg  int64 `json:"price_per_kg"`
	Reset       bool  `json:"reset"`
}

func (a *API) putPrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	act := actor(r)
	if req.UnitID == 0 && act.UnitID != nil {
		req.UnitID = *act.UnitID
	}
	if req.UnitID <= 0 || req.WasteTypeID <= 0 {
		writeError(w, r, apperr.Validation("unit_id and waste_type_id are required"))
		return
	}
	var err error
	if req.Reset {
		err = a.Catalog.ResetPrice(r.Context(), act, req.UnitID, req.WasteTypeID)
	} else {
		err = a.Catalog.SetPrice(r.Context(), act, req.UnitID, req.WasteTypeID, req.PricePerKg)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := a.Catalog.PriceTable(r.Context(), req.UnitID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unit_id": req.UnitID, "items": rows})
}

type collectorsResponse struct {
	Items      []collector.Row    `json:"items"`
	Pagination listing.Pagination `json:"pagination"`
	Summary    collector.Summary  `json:"summary"`
}

func (a *API) getCollectors(w http.ResponseWriter, r *http.Request) {
	switch actor(r).Role {
	case rbac.RoleAdmin, rbac.RoleCollectorCentral:
	default:
		writeError(w, r, fmt.Errorf("list collectors: %w", apperr.ErrForbidden))
		return
	}
	q := listing.Parse(r.URL.Query(), a.Limits)
	rows, p, sum, err := a.Collectors.List(r.Context(), q, Prefix+"/collectors")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []collector.Row{}
	}
	writeJSON(w, http.StatusOK, collectorsResponse{Items: rows, Pagination: p, Summary: sum})
}

func (a *API) getInventory(w http.ResponseWriter, r *http.Request) {
	unitID, err := unitOrOwn(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := a.Inventory.Stock(r.Context(), actor(r), unitID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func pathID(r *http.Request) (int64, error) {
	id, ok := respond.ID(r, "id")
	if !ok {
		return 0, fmt.Errorf("bad id: %w", apperr.ErrNotFound)
	}
	return id, nil
}
