package auth

import (
	"context"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type AccountPage struct {
	Items    []AccountView
	Total    int
	Page     int
	PageSize int
}

// AccountSearch matches accounts whose full name or identifier contains
// the given text. Blank fields are ignored; all blank matches everyone.
type AccountSearch struct {
	Name       string
	Identifier string
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// ListAccounts pages through back-office accounts: those holding any role
// besides User.
func (s *Service) ListAccounts(ctx context.Context, page, pageSize int) (AccountPage, error) {
	return s.listAccounts(ctx, domain.AccountFilter{BackOfficeOnly: true}, page, pageSize)
}

// SearchAccounts pages through every account matching q, whatever its roles.
func (s *Service) SearchAccounts(ctx context.Context, q AccountSearch, page, pageSize int) (AccountPage, error) {
	return s.listAccounts(ctx, domain.AccountFilter{
		Name:       strings.TrimSpace(q.Name),
		Identifier: strings.TrimSpace(q.Identifier),
	}, page, pageSize)
}

func (s *Service) listAccounts(ctx context.Context, f domain.AccountFilter, page, pageSize int) (AccountPage, error) {
	page, pageSize = normalizePage(page, pageSize)
	f.Limit = pageSize
	f.Offset = (page - 1) * pageSize

	users, total, err := s.store.ListAccounts(ctx, f)
	if err != nil {
		return AccountPage{}, err
	}

	items := make([]AccountView, 0, len(users))
	for _, u := range users {
		items = append(items, newAccountView(u, u.Roles))
	}
	return AccountPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}
