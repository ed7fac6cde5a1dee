package auth

import (
	"errors"
	"testing"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// requireDomainErr fails unless err unwraps to a *domain.Error carrying
// code, and returns it.
func requireDomainErr(t *testing.T, err error, code string) *domain.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code=%q, got nil", code)
	}
	var de *domain.Error
	if !errors.As(err, &de) {
		t.Fatalf("expected a domain error with code=%q, got %T: %v", code, err, err)
	}
	if de.Code != code {
		t.Fatalf("expected code=%q, got code=%q (%v)", code, de.Code, err)
	}
	return de
}

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	requireDomainErr(t, err, code)
}

// requireErrKind also pins the kind, which decides the HTTP status.
func requireErrKind(t *testing.T, err error, code string, kind domain.ErrKind) {
	t.Helper()
	if de := requireDomainErr(t, err, code); de.Kind != kind {
		t.Fatalf("code=%q: expected kind=%q, got %q", code, kind, de.Kind)
	}
}
