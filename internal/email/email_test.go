package email

import (
	"context"
	"testing"
	"time"

	"medcrm_backend/platform/i18n"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"
)

type smtpConfig struct{}

func (smtpConfig) GetEmailEnabled() bool       { return true }
func (smtpConfig) GetSMTPHost() string         { return "smtp.example.com" }
func (smtpConfig) GetSMTPPort() int            { return 587 }
func (smtpConfig) GetSMTPUsername() string     { return "" }
func (smtpConfig) GetSMTPPassword() string     { return "" }
func (smtpConfig) GetEmailFromName() string    { return "MedCRM" }
func (smtpConfig) GetEmailFromAddress() string { return "noreply@medcrm.example.com" }

func sampleQuoteEmail() QuoteEmail {
	return QuoteEmail{
		RecipientName:   "Camille Martin",
		QuoteNumber:     "Q2025030001",
		Title:           "Bloc opératoire",
		InstitutionName: "CHU de Lyon",
		Total:           decimal.RequireFromString("267.75"),
		ValidUntil:      time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC),
		ClientComments:  "Merci <b>beaucoup</b>",
		QuoteURL:        "https://crm.example.com/quotes/42",
	}
}

func newTestRenderer() *Renderer {
	return NewRenderer(i18n.NewFormatter("en", "EUR"))
}

func TestRenderQuoteTemplates(t *testing.T) {
	r := newTestRenderer()
	base := baseEmailData{Title: "Devis", Heading: "Devis accepté", CTALabel: "Voir le devis", CTAURL: "https://crm.example.com/quotes/42"}

	for _, name := range []string{"quote_sent.html", "quote_accepted.html", "quote_rejected.html", "quote_cancelled.html"} {
		t.Run(name, func(t *testing.T) {
			out, err := r.quote(name, base, sampleQuoteEmail())
			require.NoError(t, err)
			assert.Contains(t, out, "Q2025030001")
			assert.Contains(t, out, "CHU de Lyon")
			assert.Contains(t, out, "Camille Martin")
			assert.Contains(t, out, `href="https://crm.example.com/quotes/42"`)
		})
	}
}

func TestRenderAcceptedShowsEscapedComments(t *testing.T) {
	out, err := newTestRenderer().quote("quote_accepted.html", baseEmailData{}, sampleQuoteEmail())
	require.NoError(t, err)
	assert.Contains(t, out, "€ 267.75")
	assert.Contains(t, out, "Merci &lt;b&gt;beaucoup&lt;/b&gt;")
}

func TestRenderSentMentionsAttachment(t *testing.T) {
	data := sampleQuoteEmail()
	data.Attachments = []Attachment{{FileName: "Q2025030001.pdf", Content: []byte("%PDF"), MIMEType: "application/pdf"}}

	out, err := newTestRenderer().quote("quote_sent.html", baseEmailData{}, data)
	require.NoError(t, err)
	assert.Contains(t, out, "14/04/2025")
	assert.Contains(t, out, "joint à ce message")
}

func TestRenderExpiredDigest(t *testing.T) {
	out, err := newTestRenderer().expired("Camille Martin", []ExpiredQuote{
		{QuoteNumber: "Q2025030001", InstitutionName: "CHU de Lyon", Total: decimal.NewFromInt(216)},
		{QuoteNumber: "Q2025030002", InstitutionName: "Clinique du Parc", Total: decimal.NewFromInt(50)},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Q2025030001")
	assert.Contains(t, out, "Clinique du Parc")
	assert.Contains(t, out, "€ 216.00")
}

func TestBuildMessage(t *testing.T) {
	s := NewSMTPSender(smtpConfig{}, newTestRenderer())

	msg, err := s.buildMessage("camille@example.com", "Devis Q2025030001", "<p>ok</p>",
		Attachment{FileName: "Q2025030001.pdf", Content: []byte("%PDF"), MIMEType: "application/pdf"})
	require.NoError(t, err)

	assert.Equal(t, []string{"<camille@example.com>"}, msg.GetToString())
	assert.Equal(t, []string{"Devis Q2025030001"}, msg.GetGenHeader(gomail.HeaderSubject))
	require.Len(t, msg.GetAttachments(), 1)
	assert.Equal(t, "Q2025030001.pdf", msg.GetAttachments()[0].Name)
}

func TestBuildMessageRejectsInvalidRecipient(t *testing.T) {
	s := NewSMTPSender(smtpConfig{}, newTestRenderer())

	_, err := s.buildMessage("not an address", "subject", "<p>ok</p>")
	require.Error(t, err)
}

func TestExpiredEmailWithoutQuotesIsSkipped(t *testing.T) {
	s := NewSMTPSender(smtpConfig{}, newTestRenderer())
	require.NoError(t, s.SendQuotesExpiredEmail(context.Background(), "camille@example.com", "Camille", nil))
}

func TestNoopSender(t *testing.T) {
	var s Sender = NoopSender{}
	require.NoError(t, s.SendQuoteSentEmail(context.Background(), "a@example.com", sampleQuoteEmail()))
	require.NoError(t, s.SendQuotesExpiredEmail(context.Background(), "a@example.com", "A", []ExpiredQuote{{}}))
}

func TestQuoteMailSubjects(t *testing.T) {
	q := sampleQuoteEmail()

	assert.Equal(t, "Devis Q2025030001 envoyé à CHU de Lyon", mailQuoteSent.subject(q))
	assert.Equal(t, "Devis Q2025030001 refusé", mailQuoteRejected.subject(q))
	assert.True(t, mailQuoteSent.attach)
	assert.False(t, mailQuoteCancelled.cta)
}
