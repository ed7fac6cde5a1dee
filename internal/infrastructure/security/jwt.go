package security

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

var (
	// ErrAlgorithmMismatch is returned when a token is not signed with HS256.
	ErrAlgorithmMismatch = errors.New("security: token algorithm mismatch")
	ErrSigningConfig     = errors.New("security: signing key, issuer and audience are required")
)

// SigningConfig is the token subset of the process configuration.
type SigningConfig struct {
	Secret    string
	Issuer    string
	Audience  string
	AccessTTL time.Duration
}

type JWTSigner struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
}

func NewJWTSigner(cfg SigningConfig) (*JWTSigner, error) {
	if cfg.Secret == "" || cfg.Issuer == "" || cfg.Audience == "" {
		return nil, ErrSigningConfig
	}
	ttl := cfg.AccessTTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &JWTSigner{
		secret:    []byte(cfg.Secret),
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		accessTTL: ttl,
	}, nil
}

// registered claims never surface as domain claims
var registered = map[string]struct{}{
	"exp": {}, "iat": {}, "nbf": {}, "iss": {}, "aud": {}, "sub": {}, "jti": {},
}

// claimOrder is the order BuildClaims emits; other types follow sorted.
var claimOrder = []string{
	domain.ClaimNameID,
	domain.ClaimEmail,
	domain.ClaimIsUserAuth,
	domain.ClaimUserID,
	domain.ClaimRole,
}

// SignAccessToken encodes claims into an HS256 JWT. A claim type that
// appears more than once (roles) is written as a JSON array.
func (s *JWTSigner) SignAccessToken(claims []domain.Claim) (string, error) {
	grouped := map[string][]string{}
	for _, c := range claims {
		grouped[c.Type] = append(grouped[c.Type], c.Value)
	}

	mc := jwt.MapClaims{}
	for typ, values := range grouped {
		if len(values) == 1 {
			mc[typ] = values[0]
		} else {
			mc[typ] = values
		}
	}

	mc["exp"] = jwt.NewNumericDate(time.Now().Add(s.accessTTL))
	mc["iss"] = s.issuer
	mc["aud"] = s.audience

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(s.secret)
	if err != nil {
		return "", domain.ErrTokenSignFailed(err)
	}
	return signed, nil
}

// VerifyAccessToken fully validates a token, including its lifetime.
func (s *JWTSigner) VerifyAccessToken(token string) ([]domain.Claim, error) {
	parsed, err := jwt.Parse(token, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, domain.ErrTokenInvalid()
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrTokenInvalid()
	}
	return toDomainClaims(mc), nil
}

// ParseExpired checks signature, algorithm, issuer and audience but not
// lifetime. A non-HS256 token yields ErrAlgorithmMismatch.
func (s *JWTSigner) ParseExpired(token string) ([]domain.Claim, error) {
	parsed, err := jwt.Parse(token, s.keyFunc, jwt.WithoutClaimsValidation())
	if err != nil {
		if errors.Is(err, ErrAlgorithmMismatch) {
			return nil, ErrAlgorithmMismatch
		}
		return nil, fmt.Errorf("parse token: %w", err)
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, domain.ErrTokenInvalid()
	}

	iss, _ := mc.GetIssuer()
	if iss != s.issuer {
		return nil, fmt.Errorf("unexpected issuer %q", iss)
	}
	aud, _ := mc.GetAudience()
	if !slices.Contains(aud, s.audience) {
		return nil, fmt.Errorf("unexpected audience %v", aud)
	}

	return toDomainClaims(mc), nil
}

func (s *JWTSigner) keyFunc(t *jwt.Token) (any, error) {
	// exact match; HS384/HS512 are rejected as well
	if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, ErrAlgorithmMismatch
	}
	return s.secret, nil
}

func toDomainClaims(mc jwt.MapClaims) []domain.Claim {
	var extra []string
	for typ := range mc {
		if _, ok := registered[typ]; ok || slices.Contains(claimOrder, typ) {
			continue
		}
		extra = append(extra, typ)
	}
	sort.Strings(extra)

	var out []domain.Claim
	for _, typ := range append(slices.Clone(claimOrder), extra...) {
		v, ok := mc[typ]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			out = append(out, domain.Claim{Type: typ, Value: val})
		case []any:
			for _, item := range val {
				out = append(out, domain.Claim{Type: typ, Value: fmt.Sprint(item)})
			}
		default:
			out = append(out, domain.Claim{Type: typ, Value: fmt.Sprint(val)})
		}
	}
	return out
}
