package email

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"medcrm_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

const smtpTimeout = 15 * time.Second

// quoteMail describes one quote notification: its template, the header
// texts and the subject built from the quote.
type quoteMail struct {
	template string
	heading  string
	cta      bool
	attach   bool
	subject  func(QuoteEmail) string
}

var (
	mailQuoteSent = quoteMail{
		template: "quote_sent.html",
		heading:  "Devis envoyé",
		cta:      true,
		attach:   true,
		subject: func(q QuoteEmail) string {
			return fmt.Sprintf(subjectQuoteSentFmt, q.QuoteNumber, q.InstitutionName)
		},
	}
	mailQuoteAccepted = quoteMail{
		template: "quote_accepted.html",
		heading:  "Devis accepté",
		cta:      true,
		attach:   true,
		subject:  func(q QuoteEmail) string { return fmt.Sprintf(subjectQuoteAcceptedFmt, q.QuoteNumber) },
	}
	mailQuoteRejected = quoteMail{
		template: "quote_rejected.html",
		heading:  "Devis refusé",
		cta:      true,
		subject:  func(q QuoteEmail) string { return fmt.Sprintf(subjectQuoteRejectedFmt, q.QuoteNumber) },
	}
	mailQuoteCancelled = quoteMail{
		template: "quote_cancelled.html",
		heading:  "Devis annulé",
		subject:  func(q QuoteEmail) string { return fmt.Sprintf(subjectQuoteCancelledFmt, q.QuoteNumber) },
	}
)

// SMTPSender delivers emails over SMTP with go-mail. STARTTLS is used when
// the server offers it.
type SMTPSender struct {
	host     string
	clientOp []gomail.Option
	from     string
	fromName string
	render   *Renderer
}

func NewSMTPSender(cfg config.EmailConfig, render *Renderer) *SMTPSender {
	opts := []gomail.Option{
		gomail.WithPort(cfg.GetSMTPPort()),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(smtpTimeout),
		// Some providers publish AAAA records that are unreachable from containers.
		gomail.WithDialContextFunc(func(ctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(ctx, "tcp4", addr)
		}),
	}
	if user := cfg.GetSMTPUsername(); user != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(user),
			gomail.WithPassword(cfg.GetSMTPPassword()),
		)
	}

	return &SMTPSender{
		host:     cfg.GetSMTPHost(),
		clientOp: opts,
		from:     cfg.GetEmailFromAddress(),
		fromName: cfg.GetEmailFromName(),
		render:   render,
	}
}

func (s *SMTPSender) buildMessage(to, subject, html string, attachments ...Attachment) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.from); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, html)

	for _, att := range attachments {
		var opts []gomail.FileOption
		if att.MIMEType != "" {
			opts = append(opts, gomail.WithFileContentType(gomail.ContentType(att.MIMEType)))
		}
		if err := msg.AttachReader(att.FileName, bytes.NewReader(att.Content), opts...); err != nil {
			return nil, fmt.Errorf("smtp attach %s: %w", att.FileName, err)
		}
	}
	return msg, nil
}

func (s *SMTPSender) deliver(ctx context.Context, msg *gomail.Msg) error {
	client, err := gomail.NewClient(s.host, s.clientOp...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) sendQuote(ctx context.Context, to string, kind quoteMail, data QuoteEmail) error {
	base := baseEmailData{Title: kind.heading, Heading: kind.heading}
	if kind.cta {
		base.CTALabel = "Voir le devis"
		base.CTAURL = data.QuoteURL
	}
	if !kind.attach {
		data.Attachments = nil
	}

	html, err := s.render.quote(kind.template, base, data)
	if err != nil {
		return err
	}
	msg, err := s.buildMessage(to, kind.subject(data), html, data.Attachments...)
	if err != nil {
		return err
	}
	return s.deliver(ctx, msg)
}

func (s *SMTPSender) SendQuoteSentEmail(ctx context.Context, to string, data QuoteEmail) error {
	return s.sendQuote(ctx, to, mailQuoteSent, data)
}

func (s *SMTPSender) SendQuoteAcceptedEmail(ctx context.Context, to string, data QuoteEmail) error {
	return s.sendQuote(ctx, to, mailQuoteAccepted, data)
}

func (s *SMTPSender) SendQuoteRejectedEmail(ctx context.Context, to string, data QuoteEmail) error {
	return s.sendQuote(ctx, to, mailQuoteRejected, data)
}

func (s *SMTPSender) SendQuoteCancelledEmail(ctx context.Context, to string, data QuoteEmail) error {
	return s.sendQuote(ctx, to, mailQuoteCancelled, data)
}

// SendQuotesExpiredEmail sends one digest listing every quote; an empty list sends nothing.
func (s *SMTPSender) SendQuotesExpiredEmail(ctx context.Context, to, recipientName string, quotes []ExpiredQuote) error {
	if len(quotes) == 0 {
		return nil
	}
	html, err := s.render.expired(recipientName, quotes)
	if err != nil {
		return err
	}
	msg, err := s.buildMessage(to, fmt.Sprintf(subjectQuotesExpiredFmt, len(quotes)), html)
	if err != nil {
		return err
	}
	return s.deliver(ctx, msg)
}
