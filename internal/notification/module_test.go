package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"medcrm_backend/internal/email"
	"medcrm_backend/internal/events"
	"medcrm_backend/internal/quotes/domain"
	quotesvc "medcrm_backend/internal/quotes/service"
	"medcrm_backend/platform/apperr"
	"medcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNotificationConfig struct{}

func (testNotificationConfig) GetAppBaseURL() string { return "https://crm.example.com/" }

type sentEmail struct {
	kind  string
	to    string
	quote email.QuoteEmail
	batch []email.ExpiredQuote
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentEmail
	fail error
}

func (s *recordingSender) record(e sentEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, e)
	return nil
}

func (s *recordingSender) SendQuoteSentEmail(_ context.Context, to string, d email.QuoteEmail) error {
	return s.record(sentEmail{kind: "sent", to: to, quote: d})
}
func (s *recordingSender) SendQuoteAcceptedEmail(_ context.Context, to string, d email.QuoteEmail) error {
	return s.record(sentEmail{kind: "accepted", to: to, quote: d})
}
func (s *recordingSender) SendQuoteRejectedEmail(_ context.Context, to string, d email.QuoteEmail) error {
	return s.record(sentEmail{kind: "rejected", to: to, quote: d})
}
func (s *recordingSender) SendQuoteCancelledEmail(_ context.Context, to string, d email.QuoteEmail) error {
	return s.record(sentEmail{kind: "cancelled", to: to, quote: d})
}
func (s *recordingSender) SendQuotesExpiredEmail(_ context.Context, to, _ string, quotes []email.ExpiredQuote) error {
	return s.record(sentEmail{kind: "expired", to: to, batch: quotes})
}

type userDirectory map[uuid.UUID]quotesvc.UserRef

func (d userDirectory) GetUser(_ context.Context, id uuid.UUID) (*quotesvc.UserRef, error) {
	u, ok := d[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return &u, nil
}

type institutionDirectory map[uuid.UUID]quotesvc.InstitutionRef

func (d institutionDirectory) GetInstitution(_ context.Context, id uuid.UUID) (*quotesvc.InstitutionRef, error) {
	i, ok := d[id]
	if !ok {
		return nil, apperr.NotFound("institution not found")
	}
	return &i, nil
}

type quoteDirectory map[uuid.UUID]domain.Quote

func (d quoteDirectory) GetQuoteByID(_ context.Context, id uuid.UUID) (*quotesvc.QuoteDetails, error) {
	q, ok := d[id]
	if !ok {
		return nil, apperr.NotFound("quote not found")
	}
	return &quotesvc.QuoteDetails{Quote: q}, nil
}

type pdfSource struct{ err error }

func (p pdfSource) GenerateQuotePDF(_ context.Context, _ uuid.UUID) (*quotesvc.RenderedPDF, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &quotesvc.RenderedPDF{FileName: "Q2025030001.pdf", Data: []byte("%PDF")}, nil
}

type fixture struct {
	module      *Module
	sender      *recordingSender
	owner       uuid.UUID
	institution uuid.UUID
	quotes      quoteDirectory
}

func newFixture(pdfs QuotePDFSource) *fixture {
	owner := uuid.New()
	inst := uuid.New()
	f := &fixture{
		sender:      &recordingSender{},
		owner:       owner,
		institution: inst,
		quotes:      quoteDirectory{},
	}
	f.module = New(f.sender, Deps{
		Users:        userDirectory{owner: {ID: owner, FullName: "Camille Martin", Email: "camille@example.com"}},
		Institutions: institutionDirectory{inst: {ID: inst, Name: "CHU de Lyon"}},
		Quotes:       f.quotes,
		PDFs:         pdfs,
	}, testNotificationConfig{}, logger.Nop())
	return f
}

func (f *fixture) ref() events.QuoteRef {
	return events.QuoteRef{
		QuoteID:        uuid.MustParse("6f1c1d2e-8a43-4b8e-9a57-0d5a2d1d7c11"),
		QuoteNumber:    "Q2025030001",
		Title:          "Bloc opératoire",
		InstitutionID:  f.institution,
		AssignedUserID: f.owner,
		Total:          decimal.RequireFromString("267.75"),
	}
}

func TestQuoteSentEmailsOwnerWithPDF(t *testing.T) {
	f := newFixture(pdfSource{})

	require.NoError(t, f.module.Handle(context.Background(), events.QuoteSent{BaseEvent: events.NewBaseEvent(), QuoteRef: f.ref()}))

	require.Len(t, f.sender.sent, 1)
	got := f.sender.sent[0]
	assert.Equal(t, "sent", got.kind)
	assert.Equal(t, "camille@example.com", got.to)
	assert.Equal(t, "CHU de Lyon", got.quote.InstitutionName)
	assert.Equal(t, "https://crm.example.com/quotes/6f1c1d2e-8a43-4b8e-9a57-0d5a2d1d7c11", got.quote.QuoteURL)
	require.Len(t, got.quote.Attachments, 1)
	assert.Equal(t, "Q2025030001.pdf", got.quote.Attachments[0].FileName)
}

func TestQuoteSentStillEmailsWhenPDFFails(t *testing.T) {
	f := newFixture(pdfSource{err: errors.New("gotenberg down")})

	require.NoError(t, f.module.Handle(context.Background(), events.QuoteSent{QuoteRef: f.ref()}))

	require.Len(t, f.sender.sent, 1)
	assert.Empty(t, f.sender.sent[0].quote.Attachments)
}

func TestDecisionEmailsCarryComments(t *testing.T) {
	f := newFixture(nil)
	comments := "Livraison en avril"

	require.NoError(t, f.module.Handle(context.Background(), events.QuoteAccepted{QuoteRef: f.ref(), ClientComments: &comments}))
	require.NoError(t, f.module.Handle(context.Background(), events.QuoteRejected{QuoteRef: f.ref()}))

	require.Len(t, f.sender.sent, 2)
	assert.Equal(t, "accepted", f.sender.sent[0].kind)
	assert.Equal(t, "Livraison en avril", f.sender.sent[0].quote.ClientComments)
	assert.Equal(t, "rejected", f.sender.sent[1].kind)
	assert.Empty(t, f.sender.sent[1].quote.ClientComments)
}

func TestCancelledByOwnerSendsNoEmail(t *testing.T) {
	f := newFixture(nil)

	require.NoError(t, f.module.Handle(context.Background(), events.QuoteCancelled{QuoteRef: f.ref(), CancelledBy: f.owner}))
	assert.Empty(t, f.sender.sent)

	require.NoError(t, f.module.Handle(context.Background(), events.QuoteCancelled{QuoteRef: f.ref(), CancelledBy: uuid.New()}))
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "cancelled", f.sender.sent[0].kind)
}

func TestUnknownOwnerIsSkipped(t *testing.T) {
	f := newFixture(nil)
	ref := f.ref()
	ref.AssignedUserID = uuid.New()

	require.NoError(t, f.module.Handle(context.Background(), events.QuoteAccepted{QuoteRef: ref}))
	assert.Empty(t, f.sender.sent)
}

func TestSenderFailureIsSwallowed(t *testing.T) {
	f := newFixture(nil)
	f.sender.fail = errors.New("smtp down")

	assert.NoError(t, f.module.Handle(context.Background(), events.QuoteAccepted{QuoteRef: f.ref()}))
}

func TestQuotesExpiredSendsOneDigestPerOwner(t *testing.T) {
	f := newFixture(nil)
	validUntil := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	first, second := uuid.New(), uuid.New()
	f.quotes[first] = domain.Quote{ID: first, QuoteNumber: "Q2025020001", AssignedUserID: f.owner, InstitutionID: f.institution, ValidUntil: validUntil}
	f.quotes[second] = domain.Quote{ID: second, QuoteNumber: "Q2025020002", AssignedUserID: f.owner, InstitutionID: f.institution, ValidUntil: validUntil}

	err := f.module.Handle(context.Background(), events.QuotesExpired{Count: 3, QuoteIDs: []uuid.UUID{first, second, uuid.New()}})
	require.NoError(t, err)

	require.Len(t, f.sender.sent, 1)
	digest := f.sender.sent[0]
	assert.Equal(t, "expired", digest.kind)
	require.Len(t, digest.batch, 2)
	assert.Equal(t, "Q2025020001", digest.batch[0].QuoteNumber)
	assert.Equal(t, "CHU de Lyon", digest.batch[1].InstitutionName)
}

func TestRegisterHandlersViaBus(t *testing.T) {
	f := newFixture(nil)
	bus := events.NewInMemoryBus(logger.Nop())
	f.module.RegisterHandlers(bus)

	require.NoError(t, bus.PublishSync(context.Background(), events.QuoteAccepted{QuoteRef: f.ref()}))
	require.Len(t, f.sender.sent, 1)
}
