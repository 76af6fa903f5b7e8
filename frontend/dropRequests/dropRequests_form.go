package droprequests

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/catalog"
	"wasteboard/infrastructure/dropreq"
	"wasteboard/infrastructure/listing"
)

// ParseKg reads a kilogram amount such as "2,5" or "2.5" into grams.
func ParseKg(raw string) (int64, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return 0, apperr.Validation("weight is required")
	}
	kg, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(kg) || math.IsInf(kg, 0) {
		return 0, apperr.Validation("invalid weight %q", raw)
	}
	if math.Abs(kg) > catalog.MaxGrams/1000 {
		return 0, apperr.Validation("weight cannot exceed %d kg", catalog.MaxGrams/1000)
	}
	return int64(math.Round(kg * 1000)), nil
}

// ParseWeights reads kg_<item id> fields for every item of d.
func ParseWeights(r *http.Request, d dropreq.Detail) (dropreq.Weights, error) {
	weights := make(dropreq.Weights, len(d.Items))
	for _, it := range d.Items {
		g, err := ParseKg(r.FormValue(fmt.Sprintf("kg_%d", it.ID)))
		if err != nil {
			return nil, apperr.Validation("%s: %s", it.TypeName, err.Error())
		}
		weights[it.ID] = g
	}
	return weights, nil
}

// ParseCreateForm reads the new request form. Item lines come as parallel
// waste_type_id / estimated_kg lists; lines without a type are skipped.
func ParseCreateForm(r *http.Request) (dropreq.CreateInput, error) {
	in := dropreq.CreateInput{
		DeliveryType:  strings.TrimSpace(r.FormValue("delivery_type")),
		PickupAddress: r.FormValue("pickup_address"),
		Notes:         strings.TrimSpace(r.FormValue("notes")),
	}
	unitID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("unit_id")), 10, 64)
	if err != nil || unitID <= 0 {
		return in, apperr.Validation("choose a waste bank")
	}
	in.UnitID = unitID

	date, err := time.Parse(listing.DateLayout, strings.TrimSpace(r.FormValue("scheduled_date")))
	if err != nil {
		return in, apperr.Validation("scheduled date must be YYYY-MM-DD")
	}
	in.ScheduledDate = date

	types := r.Form["waste_type_id"]
	amounts := r.Form["estimated_kg"]
	for i, rawType := range types {
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
		grams, err := ParseKg(rawKg)
		if err != nil {
			return in, apperr.Validation("line %d: %s", i+1, err.Error())
		}
		in.Items = append(in.Items, dropreq.ItemInput{WasteTypeID: typeID, EstimatedGrams: grams})
	}
	return in, nil
}

var (
	errChooseCollector = apperr.Validation("choose a collector")
	errChooseRating    = apperr.Validation("choose a rating from 1 to 5")
)
