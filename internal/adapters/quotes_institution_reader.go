package adapters

import (
	"context"

	institutionrepo "medcrm_backend/internal/institutions/repository"
	quotesvc "medcrm_backend/internal/quotes/service"

	"github.com/google/uuid"
)

// InstitutionGetter is the narrow read interface over the institutions repository.
type InstitutionGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (institutionrepo.Institution, error)
}

// PhoneFormatter renders a stored E.164 number for humans.
type PhoneFormatter interface {
	International(e164 string) string
}

// QuotesInstitutionReader adapts the institutions repository to the
// quotes service's InstitutionReader port.
type QuotesInstitutionReader struct {
	repo   InstitutionGetter
	phones PhoneFormatter
}

// NewQuotesInstitutionReader creates a new institution reader adapter.
func NewQuotesInstitutionReader(repo InstitutionGetter, phones PhoneFormatter) *QuotesInstitutionReader {
	return &QuotesInstitutionReader{repo: repo, phones: phones}
}

// GetInstitution returns the institution; a missing one keeps the repository's NotFound error.
func (r *QuotesInstitutionReader) GetInstitution(ctx context.Context, id uuid.UUID) (*quotesvc.InstitutionRef, error) {
	inst, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ref := &quotesvc.InstitutionRef{
		ID:    inst.ID,
		Name:  inst.Name,
		Email: derefString(inst.Email),
		City:  derefString(inst.City),
	}
	if inst.Phone != nil && *inst.Phone != "" {
		ref.Phone = *inst.Phone
		if r.phones != nil {
			ref.Phone = r.phones.International(*inst.Phone)
		}
	}
	return ref, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Compile-time check that QuotesInstitutionReader implements quotes/service.InstitutionReader.
var _ quotesvc.InstitutionReader = (*QuotesInstitutionReader)(nil)
