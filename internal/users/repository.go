// Package users reads the CRM's user directory. Accounts are managed by the
// identity provider; this module only resolves who a quote belongs to.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medcrm_backend/platform/apperr"
)

// Role is a CRM role, matching the permission table.
type Role string

const (
	RoleSuperAdmin   Role = "super_admin"
	RoleAdmin        Role = "admin"
	RoleSalesManager Role = "sales_manager"
	RoleSalesRep     Role = "sales_rep"
	RoleViewer       Role = "viewer"
)

// User is a CRM user.
type User struct {
	ID        uuid.UUID
	Email     string
	FullName  string
	Role      Role
	CreatedAt time.Time
}

// Repository reads users from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a users repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns the user or an apperr NotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, full_name, role, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}
