package service

import (
	"context"
	"strings"
	"time"

	"medcrm_backend/internal/quotes/domain"
	"medcrm_backend/internal/quotes/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LinePatch lists line fields an update may change. Nil means unchanged.
type LinePatch struct {
	Description   *string
	Quantity      *decimal.Decimal
	UnitPrice     *decimal.Decimal
	DiscountType  *domain.DiscountType
	DiscountValue *decimal.Decimal
	TaxRate       *decimal.Decimal
	OrderIndex    *int
}

func newLine(quoteID uuid.UUID, in domain.LineInput, orderIndex int, now time.Time) domain.Line {
	line := domain.Line{
		ID:            uuid.New(),
		QuoteID:       quoteID,
		OrderIndex:    orderIndex,
		Description:   strings.TrimSpace(in.Description),
		Quantity:      in.Quantity,
		UnitPrice:     in.UnitPrice,
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		TaxRate:       in.TaxRate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	line.Recalculate()
	return line
}

func mergeLine(line domain.Line, patch LinePatch) domain.LineInput {
	in := domain.LineInput{
		Description:   line.Description,
		Quantity:      line.Quantity,
		UnitPrice:     line.UnitPrice,
		DiscountType:  line.DiscountType,
		DiscountValue: line.DiscountValue,
		TaxRate:       line.TaxRate,
		OrderIndex:    patch.OrderIndex,
	}
	if patch.Description != nil {
		in.Description = *patch.Description
	}
	if patch.Quantity != nil {
		in.Quantity = *patch.Quantity
	}
	if patch.UnitPrice != nil {
		in.UnitPrice = *patch.UnitPrice
	}
	if patch.DiscountType != nil {
		in.DiscountType = *patch.DiscountType
	}
	if patch.DiscountValue != nil {
		in.DiscountValue = *patch.DiscountValue
	}
	if patch.TaxRate != nil {
		in.TaxRate = *patch.TaxRate
	}
	return in
}

// moveLine returns lines reordered so that lineID sits at position target
// (clamped to 1..N).
func moveLine(lines []domain.Line, lineID uuid.UUID, target int) ([]domain.Line, error) {
	target = min(max(target, 1), len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		if l.ID != lineID {
			ids = append(ids, l.ID)
		}
	}
	ids = append(ids[:target-1], append([]uuid.UUID{lineID}, ids[target-1:]...)...)
	return domain.ApplyOrder(lines, ids)
}

// GetQuoteLines returns the lines of a quote in display order.
func (s *Service) GetQuoteLines(ctx context.Context, quoteID uuid.UUID) ([]domain.Line, error) {
	if _, err := s.repo.GetQuote(ctx, quoteID); err != nil {
		return nil, err
	}
	return s.repo.ListLines(ctx, quoteID)
}

// AddQuoteLine appends a line, or inserts it at OrderIndex shifting later lines down.
func (s *Service) AddQuoteLine(ctx context.Context, quoteID uuid.UUID, in domain.LineInput, userID uuid.UUID) (*LineResult, error) {
	if err := domain.ValidateLineData(in); err != nil {
		return nil, err
	}

	var result *LineResult
	err := s.repo.WithTx(ctx, func(store repository.Store) error {
		q, err := loadModifiable(ctx, store, quoteID, userID)
		if err != nil {
			return err
		}
		existing, err := store.ListLines(ctx, quoteID)
		if err != nil {
			return err
		}

		next := domain.NextOrderIndex(existing)
		position := next
		if in.OrderIndex != nil && *in.OrderIndex < next {
			position = *in.OrderIndex
		}
		if position < next {
			shifted := make([]domain.Line, 0, len(existing))
			for _, l := range existing {
				if l.OrderIndex >= position {
					l.OrderIndex++
					shifted = append(shifted, l)
				}
			}
			if err := store.UpdateLineOrder(ctx, quoteID, shifted); err != nil {
				return err
			}
		}

		line := newLine(quoteID, in, position, s.now())
		if err := store.CreateLine(ctx, &line); err != nil {
			return err
		}
		if _, err := s.recalculateTotals(ctx, store, q); err != nil {
			return err
		}
		result = &LineResult{Line: line, Quote: *q}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateQuoteLine patches a line and always recomputes its amounts.
func (s *Service) UpdateQuoteLine(ctx context.Context, quoteID, lineID uuid.UUID, patch LinePatch, userID uuid.UUID) (*LineResult, error) {
	var result *LineResult
	err := s.repo.WithTx(ctx, func(store repository.Store) error {
		q, err := loadModifiable(ctx, store, quoteID, userID)
		if err != nil {
			return err
		}
		line, err := store.GetLine(ctx, quoteID, lineID)
		if err != nil {
			return err
		}

		in := mergeLine(*line, patch)
		if err := domain.ValidateLineData(in); err != nil {
			return err
		}

		line.Description = strings.TrimSpace(in.Description)
		line.Quantity = in.Quantity
		line.UnitPrice = in.UnitPrice
		line.DiscountType = in.DiscountType
		line.DiscountValue = in.DiscountValue
		line.TaxRate = in.TaxRate
		line.UpdatedAt = s.now()
		line.Recalculate()

		if patch.OrderIndex != nil && *patch.OrderIndex != line.OrderIndex {
			lines, err := store.ListLines(ctx, quoteID)
			if err != nil {
				return err
			}
			ordered, err := moveLine(lines, lineID, *patch.OrderIndex)
			if err != nil {
				return err
			}
			if err := store.UpdateLineOrder(ctx, quoteID, ordered); err != nil {
				return err
			}
			for _, l := range ordered {
				if l.ID == lineID {
					line.OrderIndex = l.OrderIndex
				}
			}
		}

		if err := store.UpdateLine(ctx, line); err != nil {
			return err
		}
		if _, err := s.recalculateTotals(ctx, store, q); err != nil {
			return err
		}
		result = &LineResult{Line: *line, Quote: *q}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteQuoteLine removes a line and compacts the remaining order indexes.
func (s *Service) DeleteQuoteLine(ctx context.Context, quoteID, lineID uuid.UUID, userID uuid.UUID) (*QuoteDetails, error) {
	var details *QuoteDetails
	err := s.repo.WithTx(ctx, func(store repository.Store) error {
		q, err := loadModifiable(ctx, store, quoteID, userID)
		if err != nil {
			return err
		}
		if err := store.DeleteLine(ctx, quoteID, lineID); err != nil {
			return err
		}
		if err := s.updateOrderIndexes(ctx, store, quoteID); err != nil {
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

// updateOrderIndexes re-densifies order indexes to 1..N.
func (s *Service) updateOrderIndexes(ctx context.Context, store repository.Store, quoteID uuid.UUID) error {
	lines, err := store.ListLines(ctx, quoteID)
	if err != nil {
		return err
	}
	_, changed := domain.Compact(lines)
	return store.UpdateLineOrder(ctx, quoteID, changed)
}

// ReorderQuoteLines assigns order indexes from a full permutation of the quote's line ids.
func (s *Service) ReorderQuoteLines(ctx context.Context, quoteID uuid.UUID, orderedIDs []uuid.UUID, userID uuid.UUID) (*QuoteDetails, error) {
	var details *QuoteDetails
	err := s.repo.WithTx(ctx, func(store repository.Store) error {
		q, err := loadModifiable(ctx, store, quoteID, userID)
		if err != nil {
			return err
		}
		lines, err := store.ListLines(ctx, quoteID)
		if err != nil {
			return err
		}
		ordered, err := domain.ApplyOrder(lines, orderedIDs)
		if err != nil {
			return err
		}
		if err := store.UpdateLineOrder(ctx, quoteID, ordered); err != nil {
			return err
		}
		recalculated, err := s.recalculateTotals(ctx, store, q)
		if err != nil {
			return err
		}
		details = &QuoteDetails{Quote: *q, Lines: recalculated}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

// Calculation is a preview of line amounts and quote totals. Nothing is stored.
type Calculation struct {
	Lines  []domain.LineAmounts
	Totals domain.Totals
}

// CalculateQuote validates lines and computes their amounts and rollups.
func (s *Service) CalculateQuote(lines []domain.LineInput) (*Calculation, error) {
	calculated := make([]domain.Line, 0, len(lines))
	for _, in := range lines {
		if err := domain.ValidateLineData(in); err != nil {
			return nil, err
		}
		line := domain.Line{Amounts: domain.CalculateLine(in.Pricing())}
		calculated = append(calculated, line)
	}

	result := &Calculation{Lines: make([]domain.LineAmounts, 0, len(calculated)), Totals: domain.SumTotals(calculated)}
	if err := domain.CheckTotals(result.Totals); err != nil {
		return nil, err
	}
	for _, l := range calculated {
		result.Lines = append(result.Lines, l.Amounts)
	}
	return result, nil
}
