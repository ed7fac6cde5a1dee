package auth

import (
	"errors"
	"strconv"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

func domainCode(err error) string {
	if err == nil {
		return ""
	}
	var de *domain.Error
	if asDomain(err, &de) {
		return de.Code
	}
	return "non_domain_error"
}

func asDomain(err error, target **domain.Error) bool {
	return errors.As(err, target)
}

// auditResult emits one audit record; err may be nil on success.
func (s *Service) auditResult(action string, userID int64, err error, extra map[string]string) {
	fields := map[string]string{"result": "success"}
	if userID != 0 {
		fields["user_id"] = strconv.FormatInt(userID, 10)
	}
	if err != nil {
		fields["result"] = "error"
		fields["error_code"] = domainCode(err)
	}
	for k, v := range extra {
		fields[k] = v
	}
	s.audit(action, fields)
}
