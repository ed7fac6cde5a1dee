package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

var upperHex80 = regexp.MustCompile(`^[0-9A-F]{80}$`)

func TestNewRefreshToken_Format(t *testing.T) {
	t.Parallel()

	tok, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !upperHex80.MatchString(tok) {
		t.Fatalf("unexpected refresh token format: %q", tok)
	}
}

func TestIssueTokenPair_PersistsBeforeReturn(t *testing.T) {
	t.Parallel()

	svc, store, _ := newSvcForTest(t)
	u := store.seed(activeUser("52998224725", "a@b.com"), "pw", "User")

	pair, err := svc.IssueTokenPair(context.Background(), u, BuildClaims(u, []string{"User"}, false))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", pair)
	}

	stored := store.user(u.ID)
	if stored.RefreshToken != pair.RefreshToken {
		t.Fatalf("expected stored refresh token to match")
	}
	if want := testNow.Add(svc.refreshTTL); !stored.RefreshTokenExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, stored.RefreshTokenExpiresAt)
	}
}

func TestIssueTokenPair_RotatesRefreshToken(t *testing.T) {
	t.Parallel()

	svc, store, _ := newSvcForTest(t)
	u := store.seed(activeUser("52998224725", "a@b.com"), "pw", "User")
	claims := BuildClaims(u, nil, false)

	first, err := svc.IssueTokenPair(context.Background(), u, claims)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	second, err := svc.IssueTokenPair(context.Background(), store.user(u.ID), claims)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if first.RefreshToken == second.RefreshToken {
		t.Fatalf("expected a new refresh token")
	}
	if store.user(u.ID).RefreshToken != second.RefreshToken {
		t.Fatalf("expected latest refresh token stored")
	}
}

func TestIssueTokenPair_PersistFailure_NoPair(t *testing.T) {
	t.Parallel()

	svc, store, _ := newSvcForTest(t)
	u := store.seed(activeUser("52998224725", "a@b.com"), "pw")
	store.updateErr = domain.ErrDBUnavailable(errors.New("down"))

	pair, err := svc.IssueTokenPair(context.Background(), u, BuildClaims(u, nil, false))
	requireErrCode(t, err, "db_unavailable")
	if pair != (domain.TokenPair{}) {
		t.Fatalf("expected empty pair on failure, got %+v", pair)
	}
}

func TestIssueTokenPair_SignFailure(t *testing.T) {
	t.Parallel()

	svc, store, _ := newSvcForTest(t)
	svc.signer = &fakeSigner{signErr: errors.New("no key")}
	u := store.seed(activeUser("52998224725", "a@b.com"), "pw")

	_, err := svc.IssueTokenPair(context.Background(), u, nil)
	requireErrCode(t, err, "token_sign_failed")
	if store.user(u.ID).RefreshToken != "" {
		t.Fatalf("expected nothing persisted")
	}
}
