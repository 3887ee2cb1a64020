package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Institution is a medical institution quotes are addressed to.
type Institution struct {
	ID        uuid.UUID
	Name      string
	SIRET     *string
	Email     *string
	Phone     *string
	City      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateParams contains parameters for creating an institution.
type CreateParams struct {
	Name  string
	SIRET *string
	Email *string
	Phone *string
	City  *string
}

// ListParams contains parameters for listing institutions.
type ListParams struct {
	Search string
	Offset int
	Limit  int
}

// InstitutionReader provides read operations for institutions.
type InstitutionReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Institution, error)
	List(ctx context.Context, params ListParams) ([]Institution, int, error)
}

// InstitutionWriter provides write operations for institutions.
type InstitutionWriter interface {
	Create(ctx context.Context, params CreateParams) (Institution, error)
}

// Repository combines all institution repository operations.
type Repository interface {
	InstitutionReader
	InstitutionWriter
}
