// Package events defines the quote lifecycle events published by the quotes
// module. The bus itself lives in platform/events.
package events

import (
	"time"

	"medcrm_backend/platform/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
	NewInMemoryBus = events.NewInMemoryBus
)

// Event names, shared by publishers and subscribers.
const (
	QuoteSentEvent      = "quotes.quote.sent"
	QuoteAcceptedEvent  = "quotes.quote.accepted"
	QuoteRejectedEvent  = "quotes.quote.rejected"
	QuoteCancelledEvent = "quotes.quote.cancelled"
	QuotesExpiredEvent  = "quotes.expired"
)

// =============================================================================
// Quote Domain Events
// =============================================================================

// QuoteRef is the quote snapshot carried by lifecycle events.
type QuoteRef struct {
	QuoteID        uuid.UUID       `json:"quoteId"`
	QuoteNumber    string          `json:"quoteNumber"`
	Title          string          `json:"title"`
	InstitutionID  uuid.UUID       `json:"institutionId"`
	AssignedUserID uuid.UUID       `json:"assignedUserId"`
	Total          decimal.Decimal `json:"total"`
	ValidUntil     time.Time       `json:"validUntil"`
}

// QuoteSent is published after a draft quote moved to sent.
type QuoteSent struct {
	BaseEvent
	QuoteRef
	SentBy uuid.UUID `json:"sentBy"`
}

func (e QuoteSent) EventName() string { return QuoteSentEvent }

// QuoteAccepted is published after the client accepted a sent quote.
type QuoteAccepted struct {
	BaseEvent
	QuoteRef
	AcceptedAt     time.Time `json:"acceptedAt"`
	ClientComments *string   `json:"clientComments,omitempty"`
}

func (e QuoteAccepted) EventName() string { return QuoteAcceptedEvent }

// QuoteRejected is published after the client rejected a sent quote.
type QuoteRejected struct {
	BaseEvent
	QuoteRef
	RejectedAt     time.Time `json:"rejectedAt"`
	ClientComments *string   `json:"clientComments,omitempty"`
}

func (e QuoteRejected) EventName() string { return QuoteRejectedEvent }

// QuoteCancelled is published when a draft or sent quote is withdrawn.
type QuoteCancelled struct {
	BaseEvent
	QuoteRef
	CancelledBy uuid.UUID `json:"cancelledBy"`
}

func (e QuoteCancelled) EventName() string { return QuoteCancelledEvent }

// QuotesExpired is published by the expiry sweep when it flipped at least one quote.
type QuotesExpired struct {
	BaseEvent
	Count    int64       `json:"count"`
	QuoteIDs []uuid.UUID `json:"quoteIds"`
}

func (e QuotesExpired) EventName() string { return QuotesExpiredEvent }
