package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorHTTPStatus(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
	}{
		{ValidationError("bad", nil), http.StatusBadRequest},
		{NotFound("run"), http.StatusNotFound},
		{Unauthorized("no token"), http.StatusUnauthorized},
		{Forbidden("nope"), http.StatusForbidden},
		{Conflict("busy"), http.StatusConflict},
		{Internal("boom", errors.New("db down")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.err.HTTPStatus(); got != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.err.Kind, got, tt.status)
		}
	}
}

func TestAsAppError(t *testing.T) {
	if AsAppError(nil) != nil {
		t.Fatal("nil error should stay nil")
	}

	wrapped := fmt.Errorf("loading run: %w", NotFound("production run"))
	appErr := AsAppError(wrapped)
	if appErr.Kind != KindNotFound {
		t.Fatalf("kind = %s, want %s", appErr.Kind, KindNotFound)
	}
	if appErr.Message != "production run not found" {
		t.Errorf("message = %q", appErr.Message)
	}

	plain := AsAppError(errors.New("connection reset"))
	if plain.Kind != KindInternal {
		t.Errorf("unclassified error kind = %s, want internal", plain.Kind)
	}
	if !IsKind(wrapped, KindNotFound) || IsKind(wrapped, KindValidation) {
		t.Error("IsKind did not classify the wrapped error")
	}
}
