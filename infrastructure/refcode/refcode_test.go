package refcode

import (
	"regexp"
	"testing"
)

func TestNewFormat(t *testing.T) {
	re := regexp.MustCompile(`^DR-[0-9A-F]{8}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code := New(PrefixDropRequest)
		if !re.MatchString(code) {
			t.Fatalf("unexpected code format %q", code)
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 199 {
		t.Fatalf("expected codes to be effectively unique, got %d distinct", len(seen))
	}
}
