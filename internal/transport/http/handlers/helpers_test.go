package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/memory"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
)

type testEnv struct {
	svc    *auth.Service
	signer *security.JWTSigner
	mailer *memory.LogMailer
	roles  *memory.RoleRegistry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	signer, err := security.NewJWTSigner(security.SigningConfig{
		Secret:    "handler-tests-secret-0123456789abcdef",
		Issuer:    "account-service",
		Audience:  "account-clients",
		AccessTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("signer: %v", err)
	}

	roles := memory.NewRoleRegistry(domain.DefaultRoles()...)
	store := memory.NewCredentialStore(roles, security.NewBcryptHasher(4), memory.NewResetTokenStore(), time.Minute)
	mailer := memory.NewLogMailer()

	return &testEnv{
		svc:    auth.NewService(store, roles, signer, mailer, auth.Config{}),
		signer: signer,
		mailer: mailer,
		roles:  roles,
	}
}

// seed registers an account straight through the service.
func (e *testEnv) seed(t *testing.T, identifier, email, password string, roles ...string) domain.User {
	t.Helper()

	u, err := e.svc.Register(context.Background(), auth.RegisterInput{
		Identifier: identifier,
		FullName:   "Handler Test",
		Email:      email,
		Password:   password,
		Roles:      roles,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", identifier, err)
	}
	return u
}

type envelope struct {
	Succeeded bool            `json:"succeeded"`
	Message   string          `json:"message"`
	Code      string          `json:"code"`
	Errors    []string        `json:"errors"`
	Data      json.RawMessage `json:"data"`
}

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// mustReadEnvelope decodes the response envelope and, when out is non-nil,
// its data member.
func mustReadEnvelope(t *testing.T, r io.Reader, out any) envelope {
	t.Helper()

	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode envelope failed; body=%s", string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data failed; body=%s err=%v", string(raw), err)
		}
	}
	return env
}

// readCookie finds cookie by name from response headers.
func readCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// withPrincipal injects an authenticated caller into the request context.
func withPrincipal(req *http.Request, userID int64, roles ...string) *http.Request {
	ctx := middleware.WithPrincipal(req.Context(), middleware.Principal{UserID: userID, Roles: roles})
	return req.WithContext(ctx)
}

// withURLParam injects chi URL param (e.g. /{id}) into request context.
func withURLParam(req *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)

	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}
