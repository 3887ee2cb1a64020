package pdf

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"time"

	"medcrm_backend/platform/i18n"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

//go:embed templates/quote.html
var templateFS embed.FS

const qrSize = 160

// HTMLConverter turns an HTML document into PDF bytes.
type HTMLConverter interface {
	ConvertHTML(ctx context.Context, indexHTML []byte, opts ConvertOpts) ([]byte, error)
}

// Party is a named contact printed on the quote.
type Party struct {
	Name  string
	Email string
	Phone string
	City  string
}

// Item is one priced line of the quote.
type Item struct {
	Position       int
	Description    string
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	DiscountType   string
	DiscountValue  decimal.Decimal
	TaxRate        decimal.Decimal
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// QuotePDFData holds all data needed to generate a quote PDF.
type QuotePDFData struct {
	QuoteNumber    string
	Title          string
	Description    *string
	Status         string
	CreatedAt      time.Time
	ValidUntil     time.Time
	AcceptedAt     *time.Time
	RejectedAt     *time.Time
	ClientComments *string
	Notes          *string

	Institution Party
	Assignee    Party

	Items          []Item
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal

	// QRLink is encoded as a QR code in the header when set.
	QRLink string
	// TemplateHTML replaces the built-in layout when non-empty.
	TemplateHTML string
}

// Generator renders quotes to HTML and converts the result to PDF.
type Generator struct {
	converter HTMLConverter
	format    *i18n.Formatter
	layout    *template.Template
}

// NewGenerator parses the built-in layout once.
func NewGenerator(converter HTMLConverter, format *i18n.Formatter) (*Generator, error) {
	g := &Generator{converter: converter, format: format}
	layout, err := template.New("quote.html").Funcs(g.funcs()).ParseFS(templateFS, "templates/quote.html")
	if err != nil {
		return nil, fmt.Errorf("parse quote layout: %w", err)
	}
	g.layout = layout
	return g, nil
}

// GenerateQuotePDF renders data and converts it with Gotenberg.
func (g *Generator) GenerateQuotePDF(ctx context.Context, data QuotePDFData) ([]byte, error) {
	html, err := g.RenderHTML(data)
	if err != nil {
		return nil, err
	}
	opts := DefaultContentOpts()
	opts.Trace = data.QuoteNumber
	opts.Metadata = map[string]string{
		"Title":   data.QuoteNumber + " " + data.Title,
		"Subject": data.Institution.Name,
		"Author":  data.Assignee.Name,
	}
	pdf, err := g.converter.ConvertHTML(ctx, html, opts)
	if err != nil {
		return nil, fmt.Errorf("convert quote %s: %w", data.QuoteNumber, err)
	}
	return pdf, nil
}

// RenderHTML executes the quote's custom template, or the built-in layout.
func (g *Generator) RenderHTML(data QuotePDFData) ([]byte, error) {
	tmpl := g.layout
	if data.TemplateHTML != "" {
		custom, err := template.New("custom").Funcs(g.funcs()).Parse(data.TemplateHTML)
		if err != nil {
			return nil, fmt.Errorf("parse quote template: %w", err)
		}
		tmpl = custom
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute quote template: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) funcs() template.FuncMap {
	return template.FuncMap{
		"money":    g.format.Money,
		"quantity": g.format.Quantity,
		"percent":  g.format.Percent,
		"date":     g.format.Date,
		"datePtr":  g.format.DatePtr,
		"qr":       qrDataURI,
		"isZero":   func(d decimal.Decimal) bool { return d.IsZero() },
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}
}

// qrDataURI encodes content as an inline PNG usable in an img src.
func qrDataURI(content string) (template.URL, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrSize)
	if err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)), nil
}
