package service

import (
	"context"
	"fmt"

	"medcrm_backend/internal/quotes/domain"
	"medcrm_backend/platform/apperr"

	"github.com/google/uuid"
)

const codePDFUnavailable = "PDF_UNAVAILABLE"

// QuoteDocument is everything a renderer needs to lay out a quote.
type QuoteDocument struct {
	Quote        domain.Quote
	Lines        []domain.Line
	Institution  InstitutionRef
	Assignee     UserRef
	TemplateHTML string
}

// RenderedPDF is a generated quote document.
type RenderedPDF struct {
	FileName string
	Data     []byte
}

// PDFFileKey is the object key of a quote's PDF: {quoteId}/{quoteNumber}.pdf.
func PDFFileKey(q *domain.Quote) string {
	return fmt.Sprintf("%s/%s.pdf", q.ID, q.QuoteNumber)
}

// GenerateQuotePDF returns the quote PDF, reusing the stored copy when the
// quote has not changed since it was rendered. Concurrent requests for the
// same quote share one rendering.
func (s *Service) GenerateQuotePDF(ctx context.Context, id uuid.UUID) (*RenderedPDF, error) {
	if s.renderer == nil {
		return nil, apperr.Internal("PDF generation is not configured").WithCode(codePDFUnavailable)
	}

	// The shared render must outlive the caller that started it; each caller
	// still stops waiting when its own context ends.
	renderCtx := context.WithoutCancel(ctx)
	result := s.pdfGroup.DoChan(id.String(), func() (interface{}, error) {
		return s.generatePDF(renderCtx, id)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*RenderedPDF), nil
	}
}

func (s *Service) generatePDF(ctx context.Context, id uuid.UUID) (*RenderedPDF, error) {
	details, err := s.GetQuoteByID(ctx, id)
	if err != nil {
		return nil, err
	}
	q := details.Quote
	fileName := q.QuoteNumber + ".pdf"

	if q.PDFFileKey != nil && s.pdfStore != nil {
		data, err := s.pdfStore.Get(ctx, *q.PDFFileKey)
		if err == nil {
			return &RenderedPDF{FileName: fileName, Data: data}, nil
		}
		s.log.WithContext(ctx).SideEffectFailed("read_cached_quote_pdf", err, "quoteId", id)
	}

	doc, err := s.buildDocument(ctx, details)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.RenderQuote(ctx, *doc)
	if err != nil {
		return nil, fmt.Errorf("render quote pdf: %w", err)
	}

	if s.pdfStore != nil {
		key := PDFFileKey(&q)
		if err := s.pdfStore.Put(ctx, key, data); err != nil {
			s.log.WithContext(ctx).SideEffectFailed("store_quote_pdf", err, "quoteId", id)
		} else if err := s.repo.SetPDFKey(ctx, id, key, q.UpdatedAt); err != nil {
			s.log.WithContext(ctx).SideEffectFailed("record_quote_pdf_key", err, "quoteId", id)
		}
	}

	return &RenderedPDF{FileName: fileName, Data: data}, nil
}

func (s *Service) buildDocument(ctx context.Context, details *QuoteDetails) (*QuoteDocument, error) {
	q := details.Quote
	institution, err := s.institutions.GetInstitution(ctx, q.InstitutionID)
	if err != nil {
		return nil, err
	}
	assignee, err := s.users.GetUser(ctx, q.AssignedUserID)
	if err != nil {
		return nil, err
	}

	doc := &QuoteDocument{
		Quote:       q,
		Lines:       details.Lines,
		Institution: *institution,
		Assignee:    *assignee,
	}
	if q.TemplateID != nil {
		tmpl, err := s.repo.GetTemplate(ctx, *q.TemplateID)
		if err != nil {
			return nil, err
		}
		doc.TemplateHTML = tmpl.HTML
	}
	return doc, nil
}
