package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medcrm_backend/platform/apperr"
	"medcrm_backend/platform/db"
)

const institutionNotFoundMessage = "institution not found"

const institutionColumns = `id, name, siret, email, phone, city, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new institutions repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func scanInstitution(row pgx.Row) (Institution, error) {
	var inst Institution
	err := row.Scan(&inst.ID, &inst.Name, &inst.SIRET, &inst.Email, &inst.Phone, &inst.City, &inst.CreatedAt, &inst.UpdatedAt)
	return inst, err
}

// GetByID retrieves an institution by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Institution, error) {
	query := `SELECT ` + institutionColumns + ` FROM institutions WHERE id = $1`

	inst, err := scanInstitution(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Institution{}, apperr.NotFound(institutionNotFoundMessage)
		}
		return Institution{}, fmt.Errorf("get institution by id: %w", err)
	}
	return inst, nil
}

// List retrieves institutions ordered by name, optionally filtered on name or city.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Institution, int, error) {
	var search interface{}
	if s := strings.TrimSpace(params.Search); s != "" {
		search = db.ContainsPattern(s)
	}

	var total int
	countQuery := `
		SELECT COUNT(*) FROM institutions
		WHERE ($1::text IS NULL OR name ILIKE $1 ESCAPE '\' OR city ILIKE $1 ESCAPE '\')`
	if err := r.pool.QueryRow(ctx, countQuery, search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count institutions: %w", err)
	}

	query := `
		SELECT ` + institutionColumns + ` FROM institutions
		WHERE ($1::text IS NULL OR name ILIKE $1 ESCAPE '\' OR city ILIKE $1 ESCAPE '\')
		ORDER BY lower(name) ASC, id ASC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, search, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list institutions: %w", err)
	}
	defer rows.Close()

	items := make([]Institution, 0)
	for rows.Next() {
		inst, err := scanInstitution(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan institution: %w", err)
		}
		items = append(items, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate institutions: %w", err)
	}
	return items, total, nil
}

// Create inserts an institution.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Institution, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO institutions (id, name, siret, email, phone, city, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING ` + institutionColumns

	inst, err := scanInstitution(r.pool.QueryRow(ctx, query,
		uuid.New(), params.Name, params.SIRET, params.Email, params.Phone, params.City, now))
	if err != nil {
		if db.IsUniqueViolation(err, "institutions_siret_key") {
			return Institution{}, apperr.Conflict("an institution with this SIRET already exists").WithCode("INSTITUTION_SIRET_TAKEN")
		}
		return Institution{}, fmt.Errorf("create institution: %w", err)
	}
	return inst, nil
}
