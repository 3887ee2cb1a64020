package service

import (
	"context"
	"strings"

	"medcrm_backend/internal/events"
	"medcrm_backend/internal/quotes/domain"
	"medcrm_backend/internal/quotes/repository"

	"github.com/google/uuid"
)

// transition runs one lifecycle change under the quote row lock.
func (s *Service) transition(ctx context.Context, id, userID uuid.UUID, apply func(store repository.Store, q *domain.Quote) error) (*QuoteDetails, error) {
	var details *QuoteDetails
	var from domain.Status
	err := s.repo.WithTx(ctx, func(store repository.Store) error {
		q, err := loadForMutation(ctx, store, id, userID)
		if err != nil {
			return err
		}
		from = q.Status
		if err := apply(store, q); err != nil {
			return err
		}
		touch(q, q.UpdatedAt)
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
	s.log.WithContext(ctx).QuoteTransition(details.Quote.ID.String(), details.Quote.QuoteNumber, string(from), string(details.Quote.Status))
	return details, nil
}

// SendQuote moves a draft with at least one line to sent.
func (s *Service) SendQuote(ctx context.Context, id, userID uuid.UUID) (*QuoteDetails, error) {
	details, err := s.transition(ctx, id, userID, func(store repository.Store, q *domain.Quote) error {
		if err := q.Send(s.now()); err != nil {
			return err
		}
		lines, err := store.ListLines(ctx, q.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return domain.ErrNoLines()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.QuoteSent{
		BaseEvent: events.NewBaseEventAt(s.now()),
		QuoteRef:  quoteRef(&details.Quote),
		SentBy:    userID,
	})
	return details, nil
}

// AcceptQuote records client acceptance.
func (s *Service) AcceptQuote(ctx context.Context, id uuid.UUID, comments *string, userID uuid.UUID) (*QuoteDetails, error) {
	comments = normalizeComments(comments)
	if err := domain.ValidateComments(comments); err != nil {
		return nil, err
	}
	details, err := s.transition(ctx, id, userID, func(_ repository.Store, q *domain.Quote) error {
		return q.Accept(s.now(), comments)
	})
	if err != nil {
		return nil, err
	}

	q := details.Quote
	s.publish(ctx, events.QuoteAccepted{
		BaseEvent:      events.NewBaseEventAt(s.now()),
		QuoteRef:       quoteRef(&q),
		AcceptedAt:     *q.AcceptedAt,
		ClientComments: q.ClientComments,
	})
	return details, nil
}

// RejectQuote records client refusal.
func (s *Service) RejectQuote(ctx context.Context, id uuid.UUID, comments *string, userID uuid.UUID) (*QuoteDetails, error) {
	comments = normalizeComments(comments)
	if err := domain.ValidateComments(comments); err != nil {
		return nil, err
	}
	details, err := s.transition(ctx, id, userID, func(_ repository.Store, q *domain.Quote) error {
		return q.Reject(s.now(), comments)
	})
	if err != nil {
		return nil, err
	}

	q := details.Quote
	s.publish(ctx, events.QuoteRejected{
		BaseEvent:      events.NewBaseEventAt(s.now()),
		QuoteRef:       quoteRef(&q),
		RejectedAt:     *q.RejectedAt,
		ClientComments: q.ClientComments,
	})
	return details, nil
}

// CancelQuote withdraws a draft or sent quote.
func (s *Service) CancelQuote(ctx context.Context, id, userID uuid.UUID) (*QuoteDetails, error) {
	details, err := s.transition(ctx, id, userID, func(_ repository.Store, q *domain.Quote) error {
		return q.Cancel(s.now())
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.QuoteCancelled{
		BaseEvent:   events.NewBaseEventAt(s.now()),
		QuoteRef:    quoteRef(&details.Quote),
		CancelledBy: userID,
	})
	return details, nil
}

// MarkExpiredQuotes flips every sent quote past its validity date and returns
// how many changed.
func (s *Service) MarkExpiredQuotes(ctx context.Context) (int64, error) {
	ids, err := s.repo.MarkExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	count := int64(len(ids))
	if count > 0 {
		s.publish(ctx, events.QuotesExpired{
			BaseEvent: events.NewBaseEventAt(s.now()),
			Count:     count,
			QuoteIDs:  ids,
		})
	}
	return count, nil
}

func normalizeComments(comments *string) *string {
	if comments == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*comments)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
