package adapters

import (
	"context"
	"fmt"
	"strings"

	"medcrm_backend/internal/pdf"
	quotesvc "medcrm_backend/internal/quotes/service"
)

// QuotePDFGenerator is the narrow interface over pdf.Generator.
type QuotePDFGenerator interface {
	GenerateQuotePDF(ctx context.Context, data pdf.QuotePDFData) ([]byte, error)
}

// QuotesPDFRenderer maps quote documents onto the PDF generator's data model.
type QuotesPDFRenderer struct {
	generator  QuotePDFGenerator
	appBaseURL string
}

// NewQuotesPDFRenderer creates a renderer. When appBaseURL is set every PDF
// carries a QR code linking back to the quote in the CRM.
func NewQuotesPDFRenderer(generator QuotePDFGenerator, appBaseURL string) *QuotesPDFRenderer {
	return &QuotesPDFRenderer{generator: generator, appBaseURL: strings.TrimRight(appBaseURL, "/")}
}

// RenderQuote renders the document to PDF bytes.
func (r *QuotesPDFRenderer) RenderQuote(ctx context.Context, doc quotesvc.QuoteDocument) ([]byte, error) {
	return r.generator.GenerateQuotePDF(ctx, r.toPDFData(doc))
}

func (r *QuotesPDFRenderer) toPDFData(doc quotesvc.QuoteDocument) pdf.QuotePDFData {
	q := doc.Quote
	data := pdf.QuotePDFData{
		QuoteNumber:    q.QuoteNumber,
		Title:          q.Title,
		Description:    q.Description,
		Status:         string(q.Status),
		CreatedAt:      q.CreatedAt,
		ValidUntil:     q.ValidUntil,
		AcceptedAt:     q.AcceptedAt,
		RejectedAt:     q.RejectedAt,
		ClientComments: q.ClientComments,
		Notes:          q.Notes,
		Institution: pdf.Party{
			Name:  doc.Institution.Name,
			Email: doc.Institution.Email,
			Phone: doc.Institution.Phone,
			City:  doc.Institution.City,
		},
		Assignee: pdf.Party{
			Name:  doc.Assignee.FullName,
			Email: doc.Assignee.Email,
		},
		Subtotal:       q.Totals.Subtotal,
		DiscountAmount: q.Totals.TotalDiscountAmount,
		TaxAmount:      q.Totals.TotalTaxAmount,
		Total:          q.Totals.Total,
		TemplateHTML:   doc.TemplateHTML,
	}
	if r.appBaseURL != "" {
		data.QRLink = fmt.Sprintf("%s/quotes/%s", r.appBaseURL, q.ID)
	}

	data.Items = make([]pdf.Item, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		data.Items = append(data.Items, pdf.Item{
			Position:       line.OrderIndex,
			Description:    line.Description,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			DiscountType:   string(line.DiscountType),
			DiscountValue:  line.DiscountValue,
			TaxRate:        line.TaxRate,
			Subtotal:       line.Amounts.Subtotal,
			DiscountAmount: line.Amounts.DiscountAmount,
			TaxAmount:      line.Amounts.TaxAmount,
			Total:          line.Amounts.Total,
		})
	}
	return data
}

// Compile-time check that QuotesPDFRenderer implements quotes/service.PDFRenderer.
var _ quotesvc.PDFRenderer = (*QuotesPDFRenderer)(nil)
