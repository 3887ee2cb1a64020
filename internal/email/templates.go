package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"medcrm_backend/platform/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type quoteEmailData struct {
	baseEmailData
	Quote               QuoteEmail
	TotalFormatted      string
	ValidUntilFormatted string
	HasAttachments      bool
}

type expiredRow struct {
	ExpiredQuote
	TotalFormatted      string
	ValidUntilFormatted string
}

type quotesExpiredEmailData struct {
	baseEmailData
	RecipientName string
	Quotes        []expiredRow
}

// Renderer executes the embedded email templates.
type Renderer struct {
	format *i18n.Formatter
}

// NewRenderer creates a Renderer that formats amounts and dates with format.
func NewRenderer(format *i18n.Formatter) *Renderer {
	return &Renderer{format: format}
}

func (r *Renderer) quote(name string, base baseEmailData, data QuoteEmail) (string, error) {
	return renderEmailTemplate(name, quoteEmailData{
		baseEmailData:       base,
		Quote:               data,
		TotalFormatted:      r.format.Money(data.Total),
		ValidUntilFormatted: r.format.Date(data.ValidUntil),
		HasAttachments:      len(data.Attachments) > 0,
	})
}

func (r *Renderer) expired(recipientName string, quotes []ExpiredQuote) (string, error) {
	rows := make([]expiredRow, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, expiredRow{
			ExpiredQuote:        q,
			TotalFormatted:      r.format.Money(q.Total),
			ValidUntilFormatted: r.format.Date(q.ValidUntil),
		})
	}
	return renderEmailTemplate("quotes_expired.html", quotesExpiredEmailData{
		baseEmailData: baseEmailData{
			Title:   "Devis expirés",
			Heading: "Devis arrivés à échéance",
		},
		RecipientName: recipientName,
		Quotes:        rows,
	})
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
