// Package refcode issues short human-readable reference codes such as DR-3F9A1C2B.
package refcode

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	PrefixDropRequest = "DR"
	PrefixTransfer    = "TR"
)

// New returns prefix-XXXXXXXX from a random UUID.
func New(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(id[:8]))
}

// Unique draws codes until one is unused in table.reference.
func Unique(ctx context.Context, tx bun.Tx, table, prefix string) (string, error) {
	for i := 0; i < 16; i++ {
		code := New(prefix)
		var count int
		if err := tx.NewRaw(`SELECT COUNT(1) FROM ? WHERE reference = ?`, bun.Ident(table), code).Scan(ctx, &count); err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("unable to allocate unique %s reference", prefix)
}
