// Package service orchestrates the quote lifecycle: validation, ownership,
// transactions, totals recomputation and post-commit notifications.
package service

import (
	"context"
	"time"

	"medcrm_backend/internal/events"
	"medcrm_backend/internal/quotes/domain"
	"medcrm_backend/internal/quotes/repository"
	"medcrm_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const defaultNumberRetries = 5

// InstitutionRef is the part of an institution the quotes module reads.
type InstitutionRef struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone string
	City  string
}

// UserRef is the part of a user the quotes module reads.
type UserRef struct {
	ID       uuid.UUID
	FullName string
	Email    string
	Role     string
}

// InstitutionReader resolves institutions. A missing institution must surface
// as an apperr NotFound error.
type InstitutionReader interface {
	GetInstitution(ctx context.Context, id uuid.UUID) (*InstitutionRef, error)
}

// UserReader resolves users. A missing user must surface as an apperr NotFound error.
type UserReader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*UserRef, error)
}

// PDFRenderer turns a quote document into PDF bytes.
type PDFRenderer interface {
	RenderQuote(ctx context.Context, doc QuoteDocument) ([]byte, error)
}

// PDFStore keeps rendered PDFs.
type PDFStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// QuoteDetails is a quote together with its ordered lines.
type QuoteDetails struct {
	Quote domain.Quote
	Lines []domain.Line
}

// LineResult is a mutated line and the quote carrying the refreshed totals.
type LineResult struct {
	Line  domain.Line
	Quote domain.Quote
}

// Service provides business logic for quotes.
type Service struct {
	repo          repository.Store
	institutions  InstitutionReader
	users         UserReader
	bus           events.Bus
	log           *logger.Logger
	now           func() time.Time
	numberRetries int

	renderer PDFRenderer
	pdfStore PDFStore
	pdfGroup singleflight.Group
}

// New creates a new quotes service.
func New(repo repository.Store, institutions InstitutionReader, users UserReader, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:          repo,
		institutions:  institutions,
		users:         users,
		bus:           bus,
		log:           log,
		now:           func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		numberRetries: defaultNumberRetries,
	}
}

// SetNumberRetries bounds how many times creation retries after a quote number collision.
func (s *Service) SetNumberRetries(n int) {
	if n < 1 {
		n = 1
	}
	s.numberRetries = n
}

// SetPDF injects the renderer and the optional store used by GenerateQuotePDF.
func (s *Service) SetPDF(renderer PDFRenderer, store PDFStore) {
	s.renderer = renderer
	s.pdfStore = store
}

// canUserModifyQuote keeps the single-owner rule: only the assigned user mutates a quote.
func canUserModifyQuote(q *domain.Quote, userID uuid.UUID) bool {
	return q.AssignedUserID == userID
}

// loadForMutation locks the quote and checks ownership.
func loadForMutation(ctx context.Context, store repository.Store, id, userID uuid.UUID) (*domain.Quote, error) {
	q, err := store.GetQuoteForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canUserModifyQuote(q, userID) {
		return nil, domain.ErrInsufficientPermissions()
	}
	return q, nil
}

// loadModifiable additionally requires a draft or sent quote.
func loadModifiable(ctx context.Context, store repository.Store, id, userID uuid.UUID) (*domain.Quote, error) {
	q, err := loadForMutation(ctx, store, id, userID)
	if err != nil {
		return nil, err
	}
	if !q.CanBeModified() {
		return nil, domain.ErrNotModifiable()
	}
	return q, nil
}

// touch stamps a change and invalidates the cached PDF.
func touch(q *domain.Quote, now time.Time) {
	q.UpdatedAt = now
	q.PDFFileKey = nil
}

// recalculateTotals recomputes the rollups from the persisted lines and writes the quote.
func (s *Service) recalculateTotals(ctx context.Context, store repository.Store, q *domain.Quote) ([]domain.Line, error) {
	lines, err := store.ListLines(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	q.Totals = domain.SumTotals(lines)
	if err := domain.CheckTotals(q.Totals); err != nil {
		return nil, err
	}
	touch(q, s.now())
	if err := store.UpdateQuote(ctx, q); err != nil {
		return nil, err
	}
	return lines, nil
}

// RecalculateQuoteTotals recomputes a quote's rollups from its lines.
func (s *Service) RecalculateQuoteTotals(ctx context.Context, id uuid.UUID) (*QuoteDetails, error) {
	var details *QuoteDetails
	err := s.repo.WithTx(ctx, func(store repository.Store) error {
		q, err := store.GetQuoteForUpdate(ctx, id)
		if err != nil {
			return err
		}
		lines, err := s.recalculateTotals(ctx, store, q)
		if err != nil {
			return err
		}
		details = &QuoteDetails{Quote: *q, Lines: lines}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

func quoteRef(q *domain.Quote) events.QuoteRef {
	return events.QuoteRef{
		QuoteID:        q.ID,
		QuoteNumber:    q.QuoteNumber,
		Title:          q.Title,
		InstitutionID:  q.InstitutionID,
		AssignedUserID: q.AssignedUserID,
		Total:          q.Totals.Total,
		ValidUntil:     q.ValidUntil,
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, event)
}
