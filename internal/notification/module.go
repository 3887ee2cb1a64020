// Package notification reacts to quote lifecycle events: it emails the quote
// owner and pushes the change to their open notification streams.
// Domain modules only publish events and never learn about email or SSE.
package notification

import (
	"context"
	"fmt"
	"strings"

	"medcrm_backend/internal/email"
	"medcrm_backend/internal/events"
	apphttp "medcrm_backend/internal/http"
	"medcrm_backend/internal/notification/sse"
	quotesvc "medcrm_backend/internal/quotes/service"
	"medcrm_backend/platform/config"
	"medcrm_backend/platform/httpkit"
	"medcrm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const quotePathFmt = "%s/quotes/%s"

// QuoteReader loads quotes named by bulk events.
type QuoteReader interface {
	GetQuoteByID(ctx context.Context, id uuid.UUID) (*quotesvc.QuoteDetails, error)
}

// QuotePDFSource renders or fetches the PDF attached to "quote sent" emails.
type QuotePDFSource interface {
	GenerateQuotePDF(ctx context.Context, id uuid.UUID) (*quotesvc.RenderedPDF, error)
}

// Deps groups the lookups the notification module needs.
type Deps struct {
	Users        quotesvc.UserReader
	Institutions quotesvc.InstitutionReader
	Quotes       QuoteReader
	// PDFs is optional; without it "quote sent" emails go out without attachment.
	PDFs QuotePDFSource
}

// Module handles all notification-related event subscriptions.
type Module struct {
	sender email.Sender
	stream *sse.Service
	deps   Deps
	cfg    config.NotificationConfig
	log    *logger.Logger
}

// New creates a new notification module.
func New(sender email.Sender, deps Deps, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{
		sender: sender,
		stream: sse.New(log),
		deps:   deps,
		cfg:    cfg,
		log:    log,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "notification"
}

// Stream exposes the SSE service, mostly for shutdown.
func (m *Module) Stream() *sse.Service {
	return m.stream
}

// RegisterRoutes mounts the notification stream on the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/notifications/stream", m.stream.Handler(func(c *gin.Context) (uuid.UUID, bool) {
		id, ok := httpkit.GetIdentity(c)
		return id.UserID, ok
	}))
}

// RegisterHandlers subscribes to quote lifecycle events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.QuoteSentEvent, m)
	bus.Subscribe(events.QuoteAcceptedEvent, m)
	bus.Subscribe(events.QuoteRejectedEvent, m)
	bus.Subscribe(events.QuoteCancelledEvent, m)
	bus.Subscribe(events.QuotesExpiredEvent, m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method. Delivery failures
// are logged and never returned, so publishers are not affected.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.QuoteSent:
		m.handleQuoteSent(ctx, e)
	case events.QuoteAccepted:
		m.handleQuoteDecision(ctx, e.QuoteRef, e.ClientComments, sse.EventQuoteAccepted)
	case events.QuoteRejected:
		m.handleQuoteDecision(ctx, e.QuoteRef, e.ClientComments, sse.EventQuoteRejected)
	case events.QuoteCancelled:
		m.handleQuoteCancelled(ctx, e)
	case events.QuotesExpired:
		m.handleQuotesExpired(ctx, e)
	default:
		m.log.Debug("notification module ignoring event", "event", event.EventName())
	}
	return nil
}

func (m *Module) quoteURL(id uuid.UUID) string {
	base := strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
	if base == "" {
		return ""
	}
	return fmt.Sprintf(quotePathFmt, base, id)
}

// quoteEmail resolves the owner and the institution of a quote. ok is false
// when the owner cannot be reached by email.
func (m *Module) quoteEmail(ctx context.Context, ref events.QuoteRef) (to string, data email.QuoteEmail, ok bool) {
	owner, err := m.deps.Users.GetUser(ctx, ref.AssignedUserID)
	if err != nil {
		m.log.WithContext(ctx).SideEffectFailed("resolve_quote_owner", err, "quoteId", ref.QuoteID)
		return "", email.QuoteEmail{}, false
	}

	data = email.QuoteEmail{
		RecipientName: owner.FullName,
		QuoteNumber:   ref.QuoteNumber,
		Title:         ref.Title,
		Total:         ref.Total,
		ValidUntil:    ref.ValidUntil,
		QuoteURL:      m.quoteURL(ref.QuoteID),
	}
	if inst, err := m.deps.Institutions.GetInstitution(ctx, ref.InstitutionID); err != nil {
		m.log.WithContext(ctx).SideEffectFailed("resolve_quote_institution", err, "quoteId", ref.QuoteID)
	} else {
		data.InstitutionName = inst.Name
	}

	if owner.Email == "" {
		return "", data, false
	}
	return owner.Email, data, true
}

func (m *Module) handleQuoteSent(ctx context.Context, e events.QuoteSent) {
	m.push(e.QuoteRef, sse.EventQuoteSent, "")

	to, data, ok := m.quoteEmail(ctx, e.QuoteRef)
	if !ok {
		return
	}
	if m.deps.PDFs != nil {
		pdf, err := m.deps.PDFs.GenerateQuotePDF(ctx, e.QuoteID)
		if err != nil {
			m.log.WithContext(ctx).SideEffectFailed("attach_quote_pdf", err, "quoteId", e.QuoteID)
		} else {
			data.Attachments = []email.Attachment{{Content: pdf.Data, FileName: pdf.FileName, MIMEType: "application/pdf"}}
		}
	}

	if err := m.sender.SendQuoteSentEmail(ctx, to, data); err != nil {
		m.log.WithContext(ctx).SideEffectFailed("send_quote_sent_email", err, "quoteId", e.QuoteID)
		return
	}
	m.log.Info("quote sent notification delivered", "quoteId", e.QuoteID)
}

func (m *Module) handleQuoteDecision(ctx context.Context, ref events.QuoteRef, comments *string, kind sse.EventType) {
	comment := ""
	if comments != nil {
		comment = *comments
	}
	m.push(ref, kind, comment)

	to, data, ok := m.quoteEmail(ctx, ref)
	if !ok {
		return
	}
	data.ClientComments = comment

	send := m.sender.SendQuoteAcceptedEmail
	if kind == sse.EventQuoteRejected {
		send = m.sender.SendQuoteRejectedEmail
	}
	if err := send(ctx, to, data); err != nil {
		m.log.WithContext(ctx).SideEffectFailed("send_"+string(kind)+"_email", err, "quoteId", ref.QuoteID)
	}
}

func (m *Module) handleQuoteCancelled(ctx context.Context, e events.QuoteCancelled) {
	m.push(e.QuoteRef, sse.EventQuoteCancelled, "")

	// Only the owner may cancel today, so this always returns. The email path
	// serves cancellations by someone else should an admin override be added.
	if e.CancelledBy == e.AssignedUserID {
		return
	}
	to, data, ok := m.quoteEmail(ctx, e.QuoteRef)
	if !ok {
		return
	}
	if err := m.sender.SendQuoteCancelledEmail(ctx, to, data); err != nil {
		m.log.WithContext(ctx).SideEffectFailed("send_quote_cancelled_email", err, "quoteId", e.QuoteID)
	}
}

// handleQuotesExpired sends one digest per owner.
func (m *Module) handleQuotesExpired(ctx context.Context, e events.QuotesExpired) {
	byOwner := make(map[uuid.UUID][]email.ExpiredQuote)
	var owners []uuid.UUID

	for _, id := range e.QuoteIDs {
		details, err := m.deps.Quotes.GetQuoteByID(ctx, id)
		if err != nil {
			m.log.WithContext(ctx).SideEffectFailed("load_expired_quote", err, "quoteId", id)
			continue
		}
		q := details.Quote
		m.push(events.QuoteRef{QuoteID: q.ID, QuoteNumber: q.QuoteNumber, AssignedUserID: q.AssignedUserID}, sse.EventQuoteExpired, "")

		entry := email.ExpiredQuote{
			QuoteNumber: q.QuoteNumber,
			Title:       q.Title,
			Total:       q.Totals.Total,
			ValidUntil:  q.ValidUntil,
			QuoteURL:    m.quoteURL(q.ID),
		}
		if inst, err := m.deps.Institutions.GetInstitution(ctx, q.InstitutionID); err == nil {
			entry.InstitutionName = inst.Name
		}
		if _, seen := byOwner[q.AssignedUserID]; !seen {
			owners = append(owners, q.AssignedUserID)
		}
		byOwner[q.AssignedUserID] = append(byOwner[q.AssignedUserID], entry)
	}

	for _, ownerID := range owners {
		owner, err := m.deps.Users.GetUser(ctx, ownerID)
		if err != nil {
			m.log.WithContext(ctx).SideEffectFailed("resolve_quote_owner", err, "userId", ownerID)
			continue
		}
		if owner.Email == "" {
			continue
		}
		if err := m.sender.SendQuotesExpiredEmail(ctx, owner.Email, owner.FullName, byOwner[ownerID]); err != nil {
			m.log.WithContext(ctx).SideEffectFailed("send_quotes_expired_email", err, "userId", ownerID)
		}
	}
	m.log.Info("quotes expired notifications processed", "count", e.Count, "owners", len(owners))
}

func (m *Module) push(ref events.QuoteRef, kind sse.EventType, message string) {
	m.stream.Publish(ref.AssignedUserID, sse.Event{
		Type:        kind,
		QuoteID:     ref.QuoteID,
		QuoteNumber: ref.QuoteNumber,
		Message:     message,
	})
}

// Compile-time checks.
var (
	_ apphttp.Module = (*Module)(nil)
	_ events.Handler = (*Module)(nil)
)
