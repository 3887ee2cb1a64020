package pdf

import (
	"context"
	"errors"
	"testing"
	"time"

	"medcrm_backend/platform/i18n"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureConverter struct {
	html []byte
	opts ConvertOpts
	err  error
}

func (c *captureConverter) ConvertHTML(_ context.Context, indexHTML []byte, opts ConvertOpts) ([]byte, error) {
	c.html = indexHTML
	c.opts = opts
	if c.err != nil {
		return nil, c.err
	}
	return []byte("%PDF-1.7"), nil
}

func sampleData() QuotePDFData {
	notes := "Livraison sous 15 jours"
	return QuotePDFData{
		QuoteNumber: "Q2025030001",
		Title:       "Équipement bloc opératoire",
		Status:      "draft",
		CreatedAt:   time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		ValidUntil:  time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC),
		Notes:       &notes,
		Institution: Party{Name: "CHU de Lyon", City: "Lyon", Phone: "+33 1 42 34 56 78"},
		Assignee:    Party{Name: "Camille Martin", Email: "camille@example.com"},
		Items: []Item{{
			Position:       1,
			Description:    "Table <script>alert(1)</script>",
			Quantity:       decimal.NewFromInt(2),
			UnitPrice:      decimal.NewFromInt(100),
			DiscountType:   "percentage",
			DiscountValue:  decimal.NewFromInt(10),
			TaxRate:        decimal.NewFromInt(20),
			Subtotal:       decimal.NewFromInt(200),
			DiscountAmount: decimal.NewFromInt(20),
			TaxAmount:      decimal.NewFromInt(36),
			Total:          decimal.NewFromInt(216),
		}},
		Subtotal:       decimal.NewFromInt(200),
		DiscountAmount: decimal.NewFromInt(20),
		TaxAmount:      decimal.NewFromInt(36),
		Total:          decimal.NewFromInt(216),
		QRLink:         "https://crm.example.com/quotes/42",
	}
}

func newTestGenerator(t *testing.T, conv HTMLConverter) *Generator {
	t.Helper()
	g, err := NewGenerator(conv, i18n.NewFormatter("en", "EUR"))
	require.NoError(t, err)
	return g
}

func TestRenderHTMLDefaultLayout(t *testing.T) {
	g := newTestGenerator(t, &captureConverter{})

	html, err := g.RenderHTML(sampleData())
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "Devis Q2025030001")
	assert.Contains(t, out, "CHU de Lyon")
	assert.Contains(t, out, "€ 216.00")
	assert.Contains(t, out, "20 %")
	assert.Contains(t, out, "14/03/2025")
	assert.Contains(t, out, "Livraison sous 15 jours")
	assert.Contains(t, out, "data:image/png;base64,")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
}

func TestRenderHTMLWithoutQRLink(t *testing.T) {
	g := newTestGenerator(t, &captureConverter{})
	data := sampleData()
	data.QRLink = ""

	html, err := g.RenderHTML(data)
	require.NoError(t, err)
	assert.NotContains(t, string(html), "data:image/png")
}

func TestRenderHTMLAcceptedBanner(t *testing.T) {
	g := newTestGenerator(t, &captureConverter{})
	data := sampleData()
	accepted := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	data.Status = "accepted"
	data.AcceptedAt = &accepted

	html, err := g.RenderHTML(data)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Devis accepté le 20/03/2025")
}

func TestRenderHTMLCustomTemplate(t *testing.T) {
	g := newTestGenerator(t, &captureConverter{})
	data := sampleData()
	data.TemplateHTML = `<p>{{.QuoteNumber}} {{money .Total}}</p>`

	html, err := g.RenderHTML(data)
	require.NoError(t, err)
	assert.Equal(t, "<p>Q2025030001 € 216.00</p>", string(html))
}

func TestRenderHTMLInvalidCustomTemplate(t *testing.T) {
	g := newTestGenerator(t, &captureConverter{})
	data := sampleData()
	data.TemplateHTML = `{{.QuoteNumber`

	_, err := g.RenderHTML(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse quote template")
}

func TestGenerateQuotePDF(t *testing.T) {
	conv := &captureConverter{}
	g := newTestGenerator(t, conv)

	pdf, err := g.GenerateQuotePDF(context.Background(), sampleData())
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), pdf)
	assert.Contains(t, string(conv.html), "Q2025030001")
	assert.Equal(t, DefaultContentOpts().MarginBottom, conv.opts.MarginBottom)
	assert.Equal(t, "Q2025030001", conv.opts.Trace)
	assert.Equal(t, map[string]string{
		"Title":   "Q2025030001 Équipement bloc opératoire",
		"Subject": "CHU de Lyon",
		"Author":  "Camille Martin",
	}, conv.opts.Metadata)
}

func TestGenerateQuotePDFConverterError(t *testing.T) {
	g := newTestGenerator(t, &captureConverter{err: errors.New("boom")})

	_, err := g.GenerateQuotePDF(context.Background(), sampleData())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "convert quote Q2025030001")
}
