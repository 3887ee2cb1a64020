package adapters

import (
	"context"

	quotesvc "medcrm_backend/internal/quotes/service"
	"medcrm_backend/internal/users"

	"github.com/google/uuid"
)

// UserGetter is the narrow read interface over the users repository.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (users.User, error)
}

// QuotesUserReader adapts the users repository to the quotes service's UserReader port.
type QuotesUserReader struct {
	users UserGetter
}

// NewQuotesUserReader creates a new user reader adapter.
func NewQuotesUserReader(users UserGetter) *QuotesUserReader {
	return &QuotesUserReader{users: users}
}

// GetUser returns the user; a missing one keeps the repository's NotFound error.
func (r *QuotesUserReader) GetUser(ctx context.Context, id uuid.UUID) (*quotesvc.UserRef, error) {
	u, err := r.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &quotesvc.UserRef{
		ID:       u.ID,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     string(u.Role),
	}, nil
}

// Compile-time check that QuotesUserReader implements quotes/service.UserReader.
var _ quotesvc.UserReader = (*QuotesUserReader)(nil)
