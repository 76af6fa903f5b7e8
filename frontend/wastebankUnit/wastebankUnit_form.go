package wastebankunit

import (
	"strconv"
	"strings"

	"wasteboard/infrastructure/apperr"
)

// ParsePrice reads a whole-currency price per kg; thousands separators are ignored.
func ParsePrice(raw string) (int64, error) {
	raw = strings.NewReplacer(".", "", ",", "", " ", "").Replace(strings.TrimSpace(raw))
	if raw == "" {
		return 0, apperr.Validation("price is required")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validation("invalid price %q", raw)
	}
	if v < 0 {
		return 0, apperr.Validation("price cannot be negative")
	}
	return v, nil
}
