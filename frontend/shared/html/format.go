package html

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// CurrencySymbol prefixes money values; set once at startup from config.
var CurrencySymbol = "Rp"

// Money renders an integer amount with dot thousands separators, e.g. Rp 13.550.
func Money(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var sb strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(d)
	}
	out := CurrencySymbol + " " + sb.String()
	if neg {
		return "-" + out
	}
	return out
}

// Weight renders grams as kilograms with up to two decimals.
func Weight(grams int64) string {
	kg := float64(grams) / 1000
	s := strconv.FormatFloat(kg, 'f', 2, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s + " kg"
}

func Rating(avg float64, count int) string {
	if count == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f / 5 (%d)", avg, count)
}

func Date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006")
}

func DateTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006 15:04")
}

// StatusBadge renders a status pill; the css class is derived from status.
func StatusBadge(status, label string) Raw {
	cls := strings.ReplaceAll(status, "_", "-")
	return Raw(fmt.Sprintf(`<span class="badge badge-%s">%s</span>`, templ.EscapeString(cls), templ.EscapeString(label)))
}
