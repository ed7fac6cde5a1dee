package auth

import (
	"context"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// RoleSyncResult reports what a synchronization changed.
type RoleSyncResult struct {
	Added   []string
	Removed []string
}

// SynchronizeRoles makes the user's role set equal to desired.
// Additions are applied before removals and there is no rollback: if the
// removal step fails the additions stay.
func (s *Service) SynchronizeRoles(ctx context.Context, userID int64, desired []string) (RoleSyncResult, error) {
	const action = "roles.sync"

	res, err := s.synchronizeRoles(ctx, userID, desired)
	extra := map[string]string{
		"added":   strings.Join(res.Added, ","),
		"removed": strings.Join(res.Removed, ","),
	}
	s.auditResult(action, userID, err, extra)
	if err != nil {
		return RoleSyncResult{}, err
	}
	return res, nil
}

func (s *Service) synchronizeRoles(ctx context.Context, userID int64, desired []string) (RoleSyncResult, error) {
	if _, err := s.store.FindByID(ctx, userID); err != nil {
		return RoleSyncResult{}, err
	}

	if err := s.checkRoles(ctx, desired); err != nil {
		return RoleSyncResult{}, err
	}

	current, err := s.store.GetRoles(ctx, userID)
	if err != nil {
		return RoleSyncResult{}, err
	}

	toAdd := difference(desired, current)
	toRemove := difference(current, desired)

	if len(toAdd) > 0 {
		if err := s.store.AddToRoles(ctx, userID, toAdd); err != nil {
			return RoleSyncResult{}, domain.ErrRoleAssignmentFailed(err)
		}
	}
	if len(toRemove) > 0 {
		if err := s.store.RemoveFromRoles(ctx, userID, toRemove); err != nil {
			return RoleSyncResult{Added: toAdd}, domain.ErrRoleAssignmentFailed(err)
		}
	}

	return RoleSyncResult{Added: toAdd, Removed: toRemove}, nil
}

// checkRoles rejects any name the registry does not know, listing the
// unknown names in input order.
func (s *Service) checkRoles(ctx context.Context, names []string) error {
	known, err := s.registry.ListRoles(ctx)
	if err != nil {
		return err
	}
	if unknown := difference(names, known); len(unknown) > 0 {
		return domain.ErrInvalidRoles(unknown)
	}
	return nil
}

// difference returns the distinct elements of a that are not in b,
// preserving a's order.
func difference(a, b []string) []string {
	exclude := make(map[string]struct{}, len(b))
	for _, v := range b {
		exclude[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := exclude[v]; ok {
			continue
		}
		exclude[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
