package postgres

import (
	"context"
	"database/sql"

	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type RoleRegistry struct {
	db *sql.DB
}

func NewRoleRegistry(db *sql.DB) *RoleRegistry {
	return &RoleRegistry{db: db}
}

func (r *RoleRegistry) ListRoles(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM roles ORDER BY id`)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return names, nil
}

// EnsureRoles inserts any missing role. Safe to run on every start.
func (r *RoleRegistry) EnsureRoles(ctx context.Context, roles []domain.Role) error {
	const q = `
INSERT INTO roles (name, description)
VALUES ($1, $2)
ON CONFLICT (name) DO NOTHING`

	created := 0
	for _, role := range roles {
		res, err := r.db.ExecContext(ctx, q, role.Name, role.Description)
		if err != nil {
			return domain.ErrDBUnavailable(err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			created++
		}
	}

	zlog.Info().Int("created", created).Int("total", len(roles)).Msg("roles seeded")
	return nil
}
