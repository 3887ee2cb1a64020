// Package repository persists quotes and their lines in PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medcrm_backend/internal/quotes/domain"
	"medcrm_backend/platform/apperr"
	"medcrm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	constraintQuoteNumber = "quotes_quote_number_key"
	templateNotFoundCode  = "QUOTE_TEMPLATE_NOT_FOUND"
)

// Store is the persistence port of the quotes service. Implementations hand a
// transaction-bound Store to the WithTx callback.
type Store interface {
	WithTx(ctx context.Context, fn func(Store) error) error

	LatestNumber(ctx context.Context, prefix string) (string, error)
	CreateQuote(ctx context.Context, quote *domain.Quote) error
	GetQuote(ctx context.Context, id uuid.UUID) (*domain.Quote, error)
	GetQuoteForUpdate(ctx context.Context, id uuid.UUID) (*domain.Quote, error)
	UpdateQuote(ctx context.Context, quote *domain.Quote) error
	DeleteQuote(ctx context.Context, id uuid.UUID) error
	ListQuotes(ctx context.Context, params ListParams) (*ListResult, error)
	MarkExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	Statistics(ctx context.Context, assignedUserID *uuid.UUID) (domain.Statistics, error)
	SetPDFKey(ctx context.Context, id uuid.UUID, key string, renderedAt time.Time) error

	ListLines(ctx context.Context, quoteID uuid.UUID) ([]domain.Line, error)
	GetLine(ctx context.Context, quoteID, lineID uuid.UUID) (*domain.Line, error)
	CreateLine(ctx context.Context, line *domain.Line) error
	UpdateLine(ctx context.Context, line *domain.Line) error
	DeleteLine(ctx context.Context, quoteID, lineID uuid.UUID) error
	UpdateLineOrder(ctx context.Context, quoteID uuid.UUID, lines []domain.Line) error

	GetTemplate(ctx context.Context, id uuid.UUID) (*domain.Template, error)
}

// ListParams contains parameters for listing quotes.
type ListParams struct {
	Status         *domain.Status
	InstitutionID  *uuid.UUID
	AssignedUserID *uuid.UUID
	Search         string
	SortBy         string
	SortOrder      string
	Page           int
	PageSize       int
}

// ListResult contains the paginated result of listing quotes.
type ListResult struct {
	Items      []domain.Quote
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Repository is the pgx implementation of Store.
type Repository struct {
	pool *pgxpool.Pool
	db   dbtx
}

var _ Store = (*Repository)(nil)

// New creates a new quotes repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

// WithTx runs fn in a read-committed transaction. Nested calls reuse the
// outer transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(Store) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repository{db: tx})
	})
}

const quoteColumns = `
	id, quote_number, title, description, institution_id, assigned_user_id, template_id,
	status, valid_until, accepted_at, rejected_at, client_comments, notes,
	subtotal, total_discount_amount, total_tax_amount, total, pdf_file_key,
	created_at, updated_at`

func scanQuote(row pgx.Row) (*domain.Quote, error) {
	var q domain.Quote
	var status string
	err := row.Scan(
		&q.ID, &q.QuoteNumber, &q.Title, &q.Description, &q.InstitutionID, &q.AssignedUserID, &q.TemplateID,
		&status, &q.ValidUntil, &q.AcceptedAt, &q.RejectedAt, &q.ClientComments, &q.Notes,
		&q.Totals.Subtotal, &q.Totals.TotalDiscountAmount, &q.Totals.TotalTaxAmount, &q.Totals.Total, &q.PDFFileKey,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	q.Status = domain.Status(status)
	return &q, nil
}

// LatestNumber returns the greatest quote number starting with prefix, or "".
func (r *Repository) LatestNumber(ctx context.Context, prefix string) (string, error) {
	var latest *string
	err := r.db.QueryRow(ctx,
		`SELECT MAX(quote_number) FROM quotes WHERE quote_number LIKE $1`, prefix+"%",
	).Scan(&latest)
	if err != nil {
		return "", fmt.Errorf("read latest quote number: %w", err)
	}
	if latest == nil {
		return "", nil
	}
	return *latest, nil
}

// CreateQuote inserts the quote header. A duplicate number surfaces as a
// QUOTE_NUMBER_CONFLICT error.
func (r *Repository) CreateQuote(ctx context.Context, q *domain.Quote) error {
	query := `
		INSERT INTO quotes (
			id, quote_number, title, description, institution_id, assigned_user_id, template_id,
			status, valid_until, notes,
			subtotal, total_discount_amount, total_tax_amount, total,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.db.Exec(ctx, query,
		q.ID, q.QuoteNumber, q.Title, q.Description, q.InstitutionID, q.AssignedUserID, q.TemplateID,
		string(q.Status), q.ValidUntil, q.Notes,
		q.Totals.Subtotal, q.Totals.TotalDiscountAmount, q.Totals.TotalTaxAmount, q.Totals.Total,
		q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err, constraintQuoteNumber) {
			return domain.ErrNumberConflict(err)
		}
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

// GetQuote retrieves a quote by id.
func (r *Repository) GetQuote(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	return r.getQuote(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id)
}

// GetQuoteForUpdate locks the quote row until the surrounding transaction ends.
func (r *Repository) GetQuoteForUpdate(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	return r.getQuote(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1 FOR UPDATE`, id)
}

func (r *Repository) getQuote(ctx context.Context, query string, id uuid.UUID) (*domain.Quote, error) {
	q, err := scanQuote(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrQuoteNotFound()
		}
		return nil, fmt.Errorf("get quote: %w", err)
	}
	return q, nil
}

// UpdateQuote writes every mutable column of the quote.
func (r *Repository) UpdateQuote(ctx context.Context, q *domain.Quote) error {
	query := `
		UPDATE quotes SET
			title = $2, description = $3, template_id = $4, status = $5, valid_until = $6,
			accepted_at = $7, rejected_at = $8, client_comments = $9, notes = $10,
			subtotal = $11, total_discount_amount = $12, total_tax_amount = $13, total = $14,
			pdf_file_key = $15, updated_at = $16
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query,
		q.ID, q.Title, q.Description, q.TemplateID, string(q.Status), q.ValidUntil,
		q.AcceptedAt, q.RejectedAt, q.ClientComments, q.Notes,
		q.Totals.Subtotal, q.Totals.TotalDiscountAmount, q.Totals.TotalTaxAmount, q.Totals.Total,
		q.PDFFileKey, q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update quote: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrQuoteNotFound()
	}
	return nil
}

// DeleteQuote removes a quote; its lines cascade.
func (r *Repository) DeleteQuote(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM quotes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrQuoteNotFound()
	}
	return nil
}

// SetPDFKey records where the rendered PDF is stored. The write is skipped
// when the quote changed after renderedAt, leaving the key cleared.
func (r *Repository) SetPDFKey(ctx context.Context, id uuid.UUID, key string, renderedAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE quotes SET pdf_file_key = $2 WHERE id = $1 AND updated_at = $3`, id, key, renderedAt)
	if err != nil {
		return fmt.Errorf("set quote pdf key: %w", err)
	}
	return nil
}

// MarkExpired flips every sent quote whose validity date is before now and
// returns the affected ids.
func (r *Repository) MarkExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE quotes SET status = 'expired', updated_at = $1
		WHERE status = 'sent' AND valid_until < $1
		RETURNING id`, now)
	if err != nil {
		return nil, fmt.Errorf("mark quotes expired: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("collect expired quote ids: %w", err)
	}
	return ids, nil
}

// Statistics counts quotes per status, optionally for one assignee.
func (r *Repository) Statistics(ctx context.Context, assignedUserID *uuid.UUID) (domain.Statistics, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'draft'),
			COUNT(*) FILTER (WHERE status = 'sent'),
			COUNT(*) FILTER (WHERE status = 'accepted'),
			COUNT(*) FILTER (WHERE status = 'rejected'),
			COUNT(*) FILTER (WHERE status = 'expired'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COALESCE(SUM(total), 0),
			COALESCE(SUM(total) FILTER (WHERE status = 'accepted'), 0)
		FROM quotes
		WHERE ($1::uuid IS NULL OR assigned_user_id = $1)`

	var s domain.Statistics
	err := r.db.QueryRow(ctx, query, assignedUserID).Scan(
		&s.TotalQuotes, &s.DraftQuotes, &s.SentQuotes, &s.AcceptedQuotes,
		&s.RejectedQuotes, &s.ExpiredQuotes, &s.CancelledQuotes,
		&s.TotalValue, &s.AcceptedValue,
	)
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("quote statistics: %w", err)
	}
	return s, nil
}

// ListQuotes retrieves quotes with filtering and pagination.
func (r *Repository) ListQuotes(ctx context.Context, params ListParams) (*ListResult, error) {
	sortBy, err := resolveSortBy(params.SortBy)
	if err != nil {
		return nil, err
	}
	sortOrder, err := resolveSortOrder(params.SortOrder)
	if err != nil {
		return nil, err
	}

	var searchParam interface{}
	if params.Search != "" {
		searchParam = db.ContainsPattern(params.Search)
	}
	var statusParam interface{}
	if params.Status != nil {
		statusParam = string(*params.Status)
	}

	baseQuery := `
		FROM quotes
		WHERE ($1::text IS NULL OR status = $1)
			AND ($2::uuid IS NULL OR institution_id = $2)
			AND ($3::uuid IS NULL OR assigned_user_id = $3)
			AND ($4::text IS NULL OR quote_number ILIKE $4 ESCAPE '\' OR title ILIKE $4 ESCAPE '\')
	`
	args := []interface{}{statusParam, params.InstitutionID, params.AssignedUserID, searchParam}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count quotes: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	selectQuery := `SELECT ` + quoteColumns + baseQuery + `
		ORDER BY
			CASE WHEN $5 = 'quoteNumber' AND $6 = 'asc' THEN quote_number END ASC,
			CASE WHEN $5 = 'quoteNumber' AND $6 = 'desc' THEN quote_number END DESC,
			CASE WHEN $5 = 'status' AND $6 = 'asc' THEN status END ASC,
			CASE WHEN $5 = 'status' AND $6 = 'desc' THEN status END DESC,
			CASE WHEN $5 = 'total' AND $6 = 'asc' THEN total END ASC,
			CASE WHEN $5 = 'total' AND $6 = 'desc' THEN total END DESC,
			CASE WHEN $5 = 'validUntil' AND $6 = 'asc' THEN valid_until END ASC,
			CASE WHEN $5 = 'validUntil' AND $6 = 'desc' THEN valid_until END DESC,
			CASE WHEN $5 = 'createdAt' AND $6 = 'asc' THEN created_at END ASC,
			CASE WHEN $5 = 'createdAt' AND $6 = 'desc' THEN created_at END DESC,
			created_at DESC
		LIMIT $7 OFFSET $8`
	args = append(args, sortBy, sortOrder, params.PageSize, offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Quote, 0, params.PageSize)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		items = append(items, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// GetTemplate loads a PDF template.
func (r *Repository) GetTemplate(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	var t domain.Template
	err := r.db.QueryRow(ctx, `SELECT id, name, html FROM quote_templates WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.HTML)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("quote template not found").WithCode(templateNotFoundCode)
		}
		return nil, fmt.Errorf("get quote template: %w", err)
	}
	return &t, nil
}

func resolveSortBy(sortBy string) (string, error) {
	if sortBy == "" {
		return "createdAt", nil
	}
	switch sortBy {
	case "quoteNumber", "status", "total", "validUntil", "createdAt":
		return sortBy, nil
	default:
		return "", apperr.BadRequest("invalid sort field")
	}
}

func resolveSortOrder(sortOrder string) (string, error) {
	if sortOrder == "" {
		return "desc", nil
	}
	switch sortOrder {
	case "asc", "desc":
		return sortOrder, nil
	default:
		return "", apperr.BadRequest("invalid sort order")
	}
}
