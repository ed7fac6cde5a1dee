package auth

import (
	"context"
	"strconv"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type RegisterInput struct {
	Identifier  string
	FullName    string
	Email       string
	PhoneNumber string
	Password    string
	Roles       []string
}

type UpdateAccountInput struct {
	Identifier  string
	FullName    string
	Email       string
	PhoneNumber string
	// Roles is the complete desired set. Nil leaves the current roles
	// untouched; an empty, non-nil slice clears them.
	Roles []string
}

// Register creates an active account that still uses its initial password
// and assigns it the requested roles.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	const action = "account.register"

	u, err := s.register(ctx, in)
	s.auditResult(action, u.ID, err, map[string]string{
		"identifier": strings.TrimSpace(in.Identifier),
		"roles":      strings.Join(in.Roles, ","),
	})
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (s *Service) register(ctx context.Context, in RegisterInput) (domain.User, error) {
	if err := s.checkRoles(ctx, in.Roles); err != nil {
		return domain.User{}, err
	}

	created, err := s.store.Create(ctx, domain.User{
		Identifier:        strings.TrimSpace(in.Identifier),
		FullName:          strings.TrimSpace(in.FullName),
		Email:             strings.TrimSpace(in.Email),
		PhoneNumber:       strings.TrimSpace(in.PhoneNumber),
		IsActive:          true,
		IsDefaultPassword: true,
	}, in.Password)
	if err := s.storeError("create", err); err != nil {
		return domain.User{}, err
	}

	if err := s.store.AddToRoles(ctx, created.ID, in.Roles); err != nil {
		return domain.User{}, domain.ErrRoleAssignmentFailed(err)
	}

	created.Roles = append([]string(nil), in.Roles...)
	return created, nil
}

// UpdateAccount applies profile changes and then, when in.Roles is set,
// synchronizes roles to that complete set.
func (s *Service) UpdateAccount(ctx context.Context, userID int64, in UpdateAccountInput) (AccountView, error) {
	const action = "account.update"

	view, err := s.updateAccount(ctx, userID, in)
	s.auditResult(action, userID, err, nil)
	if err != nil {
		return AccountView{}, err
	}
	return view, nil
}

func (s *Service) updateAccount(ctx context.Context, userID int64, in UpdateAccountInput) (AccountView, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return AccountView{}, err
	}

	u.Identifier = strings.TrimSpace(in.Identifier)
	u.FullName = strings.TrimSpace(in.FullName)
	u.Email = strings.TrimSpace(in.Email)
	u.PhoneNumber = strings.TrimSpace(in.PhoneNumber)

	if err := s.storeError("update", s.store.Update(ctx, u)); err != nil {
		return AccountView{}, err
	}

	if in.Roles != nil {
		if _, err := s.SynchronizeRoles(ctx, userID, in.Roles); err != nil {
			return AccountView{}, err
		}
	}

	return s.GetAccount(ctx, userID)
}

// ToggleActive flips the active flag and returns the new value. Accounts
// are never deleted; deactivation is the only removal.
func (s *Service) ToggleActive(ctx context.Context, userID int64) (bool, error) {
	const action = "account.toggle_active"

	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		s.auditResult(action, userID, err, nil)
		return false, err
	}

	u.IsActive = !u.IsActive
	err = s.store.Update(ctx, u)
	s.auditResult(action, userID, err, map[string]string{"is_active": strconv.FormatBool(u.IsActive)})
	if err != nil {
		return false, err
	}
	return u.IsActive, nil
}

func (s *Service) GetAccount(ctx context.Context, userID int64) (AccountView, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return AccountView{}, err
	}
	roles, err := s.store.GetRoles(ctx, userID)
	if err != nil {
		return AccountView{}, err
	}
	return newAccountView(u, roles), nil
}

// storeError passes through the store failures callers can act on
// (duplicate identifier or email, infrastructure outages). Anything else is
// logged and dropped so the flow continues.
func (s *Service) storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.Is(err, domain.CodeDuplicateIdentifier) || domain.Is(err, domain.CodeDuplicateEmail) {
		return err
	}
	var de *domain.Error
	if asDomain(err, &de) && de.Kind == domain.KindInfrastructure {
		return err
	}
	s.log.Warn().Err(err).Str("op", op).Msg("store_error_ignored")
	return nil
}
