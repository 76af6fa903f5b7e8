package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{Validation("weight must be positive"), http.StatusBadRequest},
		{fmt.Errorf("load: %w", ErrNotFound), http.StatusNotFound},
		{ErrForbidden, http.StatusForbidden},
		{Transition("drop request", "completed", "cancel"), http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{sql.ErrConnDone, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("err=%v expected %d got %d", tc.err, tc.want, got)
		}
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(Validation("name is required"), "oops"); got != "name is required" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := UserMessage(errors.New("disk I/O error"), "failed to save"); got != "failed to save" {
		t.Fatalf("internal errors must not leak, got %q", got)
	}
	if got := Transition("transfer", "received", "ship").Error(); got != "invalid status transition: transfer is received, cannot ship" {
		t.Fatalf("unexpected transition message %q", got)
	}
}
