package repository

import (
	"context"
	"errors"
	"fmt"

	"medcrm_backend/internal/quotes/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const lineColumns = `
	id, quote_id, order_index, description, quantity, unit_price,
	discount_type, discount_value, tax_rate,
	subtotal, discount_amount, total_after_discount, tax_amount, total,
	created_at, updated_at`

func scanLine(row pgx.Row) (*domain.Line, error) {
	var l domain.Line
	var discountType string
	err := row.Scan(
		&l.ID, &l.QuoteID, &l.OrderIndex, &l.Description, &l.Quantity, &l.UnitPrice,
		&discountType, &l.DiscountValue, &l.TaxRate,
		&l.Amounts.Subtotal, &l.Amounts.DiscountAmount, &l.Amounts.TotalAfterDiscount, &l.Amounts.TaxAmount, &l.Amounts.Total,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.DiscountType = domain.DiscountType(discountType)
	return &l, nil
}

// ListLines returns the lines of a quote in display order.
func (r *Repository) ListLines(ctx context.Context, quoteID uuid.UUID) ([]domain.Line, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+lineColumns+` FROM quote_lines WHERE quote_id = $1 ORDER BY order_index ASC`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("query quote lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.Line, 0)
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote line: %w", err)
		}
		lines = append(lines, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quote lines: %w", err)
	}
	return lines, nil
}

// GetLine retrieves one line scoped to its quote.
func (r *Repository) GetLine(ctx context.Context, quoteID, lineID uuid.UUID) (*domain.Line, error) {
	l, err := scanLine(r.db.QueryRow(ctx,
		`SELECT `+lineColumns+` FROM quote_lines WHERE id = $1 AND quote_id = $2`, lineID, quoteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLineNotFound()
		}
		return nil, fmt.Errorf("get quote line: %w", err)
	}
	return l, nil
}

// CreateLine inserts a line with its derived amounts.
func (r *Repository) CreateLine(ctx context.Context, l *domain.Line) error {
	query := `
		INSERT INTO quote_lines (
			id, quote_id, order_index, description, quantity, unit_price,
			discount_type, discount_value, tax_rate,
			subtotal, discount_amount, total_after_discount, tax_amount, total,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	if _, err := r.db.Exec(ctx, query,
		l.ID, l.QuoteID, l.OrderIndex, l.Description, l.Quantity, l.UnitPrice,
		string(l.DiscountType), l.DiscountValue, l.TaxRate,
		l.Amounts.Subtotal, l.Amounts.DiscountAmount, l.Amounts.TotalAfterDiscount, l.Amounts.TaxAmount, l.Amounts.Total,
		l.CreatedAt, l.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert quote line: %w", err)
	}
	return nil
}

// UpdateLine rewrites the inputs and derived amounts of a line.
func (r *Repository) UpdateLine(ctx context.Context, l *domain.Line) error {
	query := `
		UPDATE quote_lines SET
			order_index = $3, description = $4, quantity = $5, unit_price = $6,
			discount_type = $7, discount_value = $8, tax_rate = $9,
			subtotal = $10, discount_amount = $11, total_after_discount = $12, tax_amount = $13, total = $14,
			updated_at = $15
		WHERE id = $1 AND quote_id = $2`

	result, err := r.db.Exec(ctx, query,
		l.ID, l.QuoteID, l.OrderIndex, l.Description, l.Quantity, l.UnitPrice,
		string(l.DiscountType), l.DiscountValue, l.TaxRate,
		l.Amounts.Subtotal, l.Amounts.DiscountAmount, l.Amounts.TotalAfterDiscount, l.Amounts.TaxAmount, l.Amounts.Total,
		l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update quote line: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrLineNotFound()
	}
	return nil
}

// DeleteLine removes one line from a quote.
func (r *Repository) DeleteLine(ctx context.Context, quoteID, lineID uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM quote_lines WHERE id = $1 AND quote_id = $2`, lineID, quoteID)
	if err != nil {
		return fmt.Errorf("delete quote line: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrLineNotFound()
	}
	return nil
}

// UpdateLineOrder writes new order indexes. quote_lines_order_key is deferred,
// so intermediate duplicates inside the transaction are allowed.
func (r *Repository) UpdateLineOrder(ctx context.Context, quoteID uuid.UUID, lines []domain.Line) error {
	if len(lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(`UPDATE quote_lines SET order_index = $3 WHERE id = $1 AND quote_id = $2`,
			l.ID, quoteID, l.OrderIndex)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for range lines {
		tag, err := results.Exec()
		if err != nil {
			return fmt.Errorf("update quote line order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrLineNotFound()
		}
	}
	return nil
}
