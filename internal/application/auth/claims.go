package auth

import (
	"strconv"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// BuildClaims assembles the ordered claim list for an access token.
// The subject id appears twice (nameid and userId); downstream consumers
// read both.
func BuildClaims(u domain.User, roles []string, isUserAuth bool) []domain.Claim {
	id := strconv.FormatInt(u.ID, 10)

	claims := make([]domain.Claim, 0, 4+len(roles))
	claims = append(claims,
		domain.Claim{Type: domain.ClaimNameID, Value: id},
		domain.Claim{Type: domain.ClaimEmail, Value: u.Email},
		domain.Claim{Type: domain.ClaimIsUserAuth, Value: strconv.FormatBool(isUserAuth)},
		domain.Claim{Type: domain.ClaimUserID, Value: id},
	)
	for _, r := range roles {
		claims = append(claims, domain.Claim{Type: domain.ClaimRole, Value: r})
	}
	return claims
}

// SubjectID reads the nameid claim as a user id.
func SubjectID(claims []domain.Claim) (int64, bool) {
	v, ok := ClaimValue(claims, domain.ClaimNameID)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ClaimValue returns the first value of the given claim type.
func ClaimValue(claims []domain.Claim, typ string) (string, bool) {
	for _, c := range claims {
		if c.Type == typ {
			return c.Value, true
		}
	}
	return "", false
}

// ClaimValues returns every value of the given claim type, in order.
func ClaimValues(claims []domain.Claim, typ string) []string {
	var out []string
	for _, c := range claims {
		if c.Type == typ {
			out = append(out, c.Value)
		}
	}
	return out
}
