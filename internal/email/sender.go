// Package email renders and delivers transactional emails about quotes.
package email

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte
	FileName string // e.g. "Q2025030001.pdf"
	MIMEType string // e.g. "application/pdf"
}

// QuoteEmail carries what every quote notification shows.
type QuoteEmail struct {
	RecipientName   string
	QuoteNumber     string
	Title           string
	InstitutionName string
	Total           decimal.Decimal
	ValidUntil      time.Time
	ClientComments  string
	QuoteURL        string
	Attachments     []Attachment
}

// ExpiredQuote is one entry of the expiry digest.
type ExpiredQuote struct {
	QuoteNumber     string
	Title           string
	InstitutionName string
	Total           decimal.Decimal
	ValidUntil      time.Time
	QuoteURL        string
}

type Sender interface {
	SendQuoteSentEmail(ctx context.Context, toEmail string, data QuoteEmail) error
	SendQuoteAcceptedEmail(ctx context.Context, toEmail string, data QuoteEmail) error
	SendQuoteRejectedEmail(ctx context.Context, toEmail string, data QuoteEmail) error
	SendQuoteCancelledEmail(ctx context.Context, toEmail string, data QuoteEmail) error
	SendQuotesExpiredEmail(ctx context.Context, toEmail, recipientName string, quotes []ExpiredQuote) error
}

// NoopSender drops every email. It is used when EMAIL_ENABLED is false.
type NoopSender struct{}

func (NoopSender) SendQuoteSentEmail(context.Context, string, QuoteEmail) error      { return nil }
func (NoopSender) SendQuoteAcceptedEmail(context.Context, string, QuoteEmail) error  { return nil }
func (NoopSender) SendQuoteRejectedEmail(context.Context, string, QuoteEmail) error  { return nil }
func (NoopSender) SendQuoteCancelledEmail(context.Context, string, QuoteEmail) error { return nil }

func (NoopSender) SendQuotesExpiredEmail(context.Context, string, string, []ExpiredQuote) error {
	return nil
}

var (
	_ Sender = NoopSender{}
	_ Sender = (*SMTPSender)(nil)
)
