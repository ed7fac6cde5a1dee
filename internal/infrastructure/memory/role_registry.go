package memory

import (
	"context"
	"sync"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type roleEntry struct {
	id   int64
	role domain.Role
}

type RoleRegistry struct {
	mu       sync.RWMutex
	nextID   int64
	entries  []roleEntry
	removers []func(roleID int64)
}

// NewRoleRegistry returns a registry already holding roles.
func NewRoleRegistry(roles ...domain.Role) *RoleRegistry {
	r := &RoleRegistry{}
	_ = r.EnsureRoles(context.Background(), roles)
	return r
}

func (r *RoleRegistry) ListRoles(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.role.Name)
	}
	return names, nil
}

func (r *RoleRegistry) EnsureRoles(ctx context.Context, roles []domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, role := range roles {
		if _, ok := r.idLocked(role.Name); ok {
			continue
		}
		r.nextID++
		r.entries = append(r.entries, roleEntry{id: r.nextID, role: role})
	}
	return nil
}

// RemoveRole deletes a role and every user link to it.
func (r *RoleRegistry) RemoveRole(ctx context.Context, name string) error {
	r.mu.Lock()
	id, ok := r.idLocked(name)
	if !ok {
		r.mu.Unlock()
		return domain.ErrInvalidRoles([]string{name})
	}
	for i, e := range r.entries {
		if e.id == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	removers := append([]func(int64){}, r.removers...)
	r.mu.Unlock()

	for _, fn := range removers {
		fn(id)
	}
	return nil
}

func (r *RoleRegistry) onRemove(fn func(roleID int64)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removers = append(r.removers, fn)
}

func (r *RoleRegistry) idLocked(name string) (int64, bool) {
	for _, e := range r.entries {
		if e.role.Name == name {
			return e.id, true
		}
	}
	return 0, false
}

// idsFor resolves names; any unknown name fails the whole lookup.
func (r *RoleRegistry) idsFor(names []string) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(names))
	var unknown []string
	for _, n := range names {
		id, ok := r.idLocked(n)
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		ids = append(ids, id)
	}
	if len(unknown) > 0 {
		return nil, domain.ErrInvalidRoles(unknown)
	}
	return ids, nil
}

func (r *RoleRegistry) namesFor(ids []int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for _, id := range ids {
		for _, e := range r.entries {
			if e.id == id {
				names = append(names, e.role.Name)
				break
			}
		}
	}
	return names
}
