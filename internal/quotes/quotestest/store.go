// Package quotestest provides an in-memory quotes store for tests.
package quotestest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"medcrm_backend/internal/quotes/domain"
	"medcrm_backend/internal/quotes/repository"
	"medcrm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is an in-memory repository.Store. WithTx snapshots state and
// restores it when the callback fails, and checks line order density at
// commit like the deferred unique constraint would.
type Store struct {
	mu        sync.Mutex
	quotes    map[uuid.UUID]domain.Quote
	lines     map[uuid.UUID]domain.Line
	templates map[uuid.UUID]domain.Template
	inTx      bool

	// NumberConflicts makes the next N CreateQuote calls fail with a number conflict.
	NumberConflicts int
	// FailLineOrder makes UpdateLineOrder fail on the last line it writes.
	FailLineOrder error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		quotes:    map[uuid.UUID]domain.Quote{},
		lines:     map[uuid.UUID]domain.Line{},
		templates: map[uuid.UUID]domain.Template{},
	}
}

var _ repository.Store = (*Store)(nil)

func (m *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if m.inTx {
		return fn(m)
	}

	m.mu.Lock()
	quotes := cloneMap(m.quotes)
	lines := cloneMap(m.lines)
	m.inTx = true
	m.mu.Unlock()

	err := fn(m)
	if err == nil {
		err = m.checkOrder()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inTx = false
	if err != nil {
		m.quotes = quotes
		m.lines = lines
	}
	return err
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *Store) checkOrder() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byQuote := map[uuid.UUID][]int{}
	for _, l := range m.lines {
		byQuote[l.QuoteID] = append(byQuote[l.QuoteID], l.OrderIndex)
	}
	for quoteID, indexes := range byQuote {
		sort.Ints(indexes)
		for i, idx := range indexes {
			if idx != i+1 {
				return fmt.Errorf("quote %s: order indexes %v are not dense", quoteID, indexes)
			}
		}
	}
	return nil
}

func (m *Store) LatestNumber(_ context.Context, prefix string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := ""
	for _, q := range m.quotes {
		if strings.HasPrefix(q.QuoteNumber, prefix) && q.QuoteNumber > latest {
			latest = q.QuoteNumber
		}
	}
	return latest, nil
}

func (m *Store) CreateQuote(_ context.Context, q *domain.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NumberConflicts > 0 {
		m.NumberConflicts--
		return domain.ErrNumberConflict(errors.New("duplicate key value violates unique constraint"))
	}
	for _, existing := range m.quotes {
		if existing.QuoteNumber == q.QuoteNumber {
			return domain.ErrNumberConflict(errors.New("duplicate quote number"))
		}
	}
	m.quotes[q.ID] = *q
	return nil
}

func (m *Store) GetQuote(_ context.Context, id uuid.UUID) (*domain.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return nil, domain.ErrQuoteNotFound()
	}
	return &q, nil
}

func (m *Store) GetQuoteForUpdate(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	return m.GetQuote(ctx, id)
}

func (m *Store) UpdateQuote(_ context.Context, q *domain.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quotes[q.ID]; !ok {
		return domain.ErrQuoteNotFound()
	}
	m.quotes[q.ID] = *q
	return nil
}

func (m *Store) DeleteQuote(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quotes[id]; !ok {
		return domain.ErrQuoteNotFound()
	}
	delete(m.quotes, id)
	for lineID, l := range m.lines {
		if l.QuoteID == id {
			delete(m.lines, lineID)
		}
	}
	return nil
}

func (m *Store) ListQuotes(_ context.Context, params repository.ListParams) (*repository.ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]domain.Quote, 0)
	for _, q := range m.quotes {
		if params.Status != nil && q.Status != *params.Status {
			continue
		}
		if params.AssignedUserID != nil && q.AssignedUserID != *params.AssignedUserID {
			continue
		}
		if params.InstitutionID != nil && q.InstitutionID != *params.InstitutionID {
			continue
		}
		items = append(items, q)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].QuoteNumber < items[j].QuoteNumber })
	return &repository.ListResult{Items: items, Total: len(items), Page: params.Page, PageSize: params.PageSize, TotalPages: 1}, nil
}

func (m *Store) MarkExpired(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for id, q := range m.quotes {
		if q.Status == domain.StatusSent && q.ValidUntil.Before(now) {
			q.Status = domain.StatusExpired
			q.UpdatedAt = now
			m.quotes[id] = q
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *Store) Statistics(_ context.Context, assignedUserID *uuid.UUID) (domain.Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := domain.Statistics{TotalValue: decimal.Zero, AcceptedValue: decimal.Zero}
	for _, q := range m.quotes {
		if assignedUserID != nil && q.AssignedUserID != *assignedUserID {
			continue
		}
		s.TotalQuotes++
		s.TotalValue = s.TotalValue.Add(q.Totals.Total)
		switch q.Status {
		case domain.StatusDraft:
			s.DraftQuotes++
		case domain.StatusSent:
			s.SentQuotes++
		case domain.StatusAccepted:
			s.AcceptedQuotes++
			s.AcceptedValue = s.AcceptedValue.Add(q.Totals.Total)
		case domain.StatusRejected:
			s.RejectedQuotes++
		case domain.StatusExpired:
			s.ExpiredQuotes++
		case domain.StatusCancelled:
			s.CancelledQuotes++
		}
	}
	return s, nil
}

func (m *Store) SetPDFKey(_ context.Context, id uuid.UUID, key string, renderedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok || !q.UpdatedAt.Equal(renderedAt) {
		return nil
	}
	q.PDFFileKey = &key
	m.quotes[id] = q
	return nil
}

func (m *Store) ListLines(_ context.Context, quoteID uuid.UUID) ([]domain.Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := make([]domain.Line, 0)
	for _, l := range m.lines {
		if l.QuoteID == quoteID {
			lines = append(lines, l)
		}
	}
	domain.SortByOrder(lines)
	return lines, nil
}

func (m *Store) GetLine(_ context.Context, quoteID, lineID uuid.UUID) (*domain.Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lines[lineID]
	if !ok || l.QuoteID != quoteID {
		return nil, domain.ErrLineNotFound()
	}
	return &l, nil
}

func (m *Store) CreateLine(_ context.Context, l *domain.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[l.ID] = *l
	return nil
}

func (m *Store) UpdateLine(_ context.Context, l *domain.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.lines[l.ID]
	if !ok || existing.QuoteID != l.QuoteID {
		return domain.ErrLineNotFound()
	}
	m.lines[l.ID] = *l
	return nil
}

func (m *Store) DeleteLine(_ context.Context, quoteID, lineID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lines[lineID]
	if !ok || l.QuoteID != quoteID {
		return domain.ErrLineNotFound()
	}
	delete(m.lines, lineID)
	return nil
}

func (m *Store) UpdateLineOrder(_ context.Context, quoteID uuid.UUID, lines []domain.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range lines {
		if m.FailLineOrder != nil && i == len(lines)-1 {
			return m.FailLineOrder
		}
		existing, ok := m.lines[l.ID]
		if !ok || existing.QuoteID != quoteID {
			return domain.ErrLineNotFound()
		}
		existing.OrderIndex = l.OrderIndex
		m.lines[l.ID] = existing
	}
	return nil
}

func (m *Store) GetTemplate(_ context.Context, id uuid.UUID) (*domain.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, apperr.NotFound("quote template not found")
	}
	return &t, nil
}

// Quote returns a copy of the stored quote, or the zero value.
func (m *Store) Quote(id uuid.UUID) domain.Quote {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quotes[id]
}

// PutQuote overwrites a stored quote.
func (m *Store) PutQuote(q domain.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[q.ID] = q
}

// AddTemplate registers a quote template.
func (m *Store) AddTemplate(t domain.Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.ID] = t
}

// QuoteCount returns how many quotes are stored.
func (m *Store) QuoteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.quotes)
}

// LineCount returns how many lines are stored across quotes.
func (m *Store) LineCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines)
}
