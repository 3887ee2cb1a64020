package service

import (
	"context"

	"medcrm_backend/internal/quotes/domain"
	"medcrm_backend/internal/quotes/repository"
	"medcrm_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListFilter narrows ListQuotes.
type ListFilter struct {
	Status         *domain.Status
	InstitutionID  *uuid.UUID
	AssignedUserID *uuid.UUID
	Search         string
	SortBy         string
	SortOrder      string
	Page           int
	PageSize       int
}

// CreateQuote validates the input, allocates a quote number and stores the
// quote with its lines. The caller becomes the assigned user.
func (s *Service) CreateQuote(ctx context.Context, in domain.QuoteInput, userID uuid.UUID) (*QuoteDetails, error) {
	now := s.now()
	if err := domain.ValidateQuoteData(in, now); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, in.InstitutionID, userID, in.TemplateID); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.numberRetries; attempt++ {
		details, err := s.createOnce(ctx, in, userID)
		if err == nil {
			return details, nil
		}
		if !apperr.HasCode(err, domain.CodeQuoteNumberConflict) {
			return nil, err
		}
		lastErr = err
		s.log.WithContext(ctx).Warn("quote number collision, retrying", "attempt", attempt)
	}
	return nil, lastErr
}

func (s *Service) checkReferences(ctx context.Context, institutionID, userID uuid.UUID, templateID *uuid.UUID) error {
	if _, err := s.institutions.GetInstitution(ctx, institutionID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return domain.ErrInstitutionNotFound()
		}
		return err
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return domain.ErrUserNotFound()
		}
		return err
	}
	if templateID != nil {
		if _, err := s.repo.GetTemplate(ctx, *templateID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) createOnce(ctx context.Context, in domain.QuoteInput, userID uuid.UUID) (*QuoteDetails, error) {
	var details *QuoteDetails
	err := s.repo.WithTx(ctx, func(store repository.Store) error {
		now := s.now()
		latest, err := store.LatestNumber(ctx, domain.NumberPrefix(now))
		if err != nil {
			return err
		}
		number, err := domain.NextNumber(domain.NumberPrefix(now), latest)
		if err != nil {
			return err
		}

		q := &domain.Quote{
			ID:             uuid.New(),
			QuoteNumber:    number,
			Title:          in.Title,
			Description:    in.Description,
			InstitutionID:  in.InstitutionID,
			AssignedUserID: userID,
			TemplateID:     in.TemplateID,
			Status:         domain.StatusDraft,
			ValidUntil:     in.ValidUntil,
			Notes:          in.Notes,
			Totals:         domain.SumTotals(nil),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := store.CreateQuote(ctx, q); err != nil {
			return err
		}

		for i, lineIn := range in.Lines {
			line := newLine(q.ID, lineIn, i+1, now)
			if err := store.CreateLine(ctx, &line); err != nil {
				return err
			}
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

// GetQuoteByID returns a quote with its lines.
func (s *Service) GetQuoteByID(ctx context.Context, id uuid.UUID) (*QuoteDetails, error) {
	q, err := s.repo.GetQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.ListLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return &QuoteDetails{Quote: *q, Lines: lines}, nil
}

// ListQuotes returns a page of quotes without their lines.
func (s *Service) ListQuotes(ctx context.Context, filter ListFilter) (*repository.ListResult, error) {
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return s.repo.ListQuotes(ctx, repository.ListParams{
		Status:         filter.Status,
		InstitutionID:  filter.InstitutionID,
		AssignedUserID: filter.AssignedUserID,
		Search:         filter.Search,
		SortBy:         filter.SortBy,
		SortOrder:      filter.SortOrder,
		Page:           max(filter.Page, 1),
		PageSize:       pageSize,
	})
}

// UpdateQuote applies a header patch while the quote is still modifiable.
func (s *Service) UpdateQuote(ctx context.Context, id uuid.UUID, patch domain.QuotePatch, userID uuid.UUID) (*QuoteDetails, error) {
	if err := domain.ValidatePatch(patch, s.now()); err != nil {
		return nil, err
	}
	if patch.TemplateID != nil {
		if _, err := s.repo.GetTemplate(ctx, *patch.TemplateID); err != nil {
			return nil, err
		}
	}

	var details *QuoteDetails
	err := s.repo.WithTx(ctx, func(store repository.Store) error {
		q, err := loadModifiable(ctx, store, id, userID)
		if err != nil {
			return err
		}
		patch.Apply(q)
		touch(q, s.now())
		if err := store.UpdateQuote(ctx, q); err != nil {
			return err
		}
		lines, err := store.ListLines(ctx, id)
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

// DeleteQuote hard-deletes a draft quote.
func (s *Service) DeleteQuote(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	var pdfKey *string
	err := s.repo.WithTx(ctx, func(store repository.Store) error {
		q, err := loadForMutation(ctx, store, id, userID)
		if err != nil {
			return err
		}
		if !q.CanBeDeleted() {
			return domain.ErrNotDeletable()
		}
		pdfKey = q.PDFFileKey
		return store.DeleteQuote(ctx, id)
	})
	if err != nil {
		return err
	}

	if pdfKey != nil && s.pdfStore != nil {
		if err := s.pdfStore.Delete(ctx, *pdfKey); err != nil {
			s.log.WithContext(ctx).SideEffectFailed("delete_quote_pdf", err, "quoteId", id)
		}
	}
	return nil
}

// GetQuoteStatistics aggregates quote counts, optionally for one assignee.
func (s *Service) GetQuoteStatistics(ctx context.Context, userID *uuid.UUID) (domain.Statistics, error) {
	stats, err := s.repo.Statistics(ctx, userID)
	if err != nil {
		return domain.Statistics{}, err
	}
	stats.ConversionRate = domain.ConversionRate(stats.AcceptedQuotes, stats.SentQuotes)
	return stats, nil
}
