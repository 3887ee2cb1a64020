package adapters

import (
	"context"
	"errors"
	"testing"

	"medcrm_backend/internal/adapters/storage"
	institutionrepo "medcrm_backend/internal/institutions/repository"
	"medcrm_backend/internal/pdf"
	"medcrm_backend/internal/quotes/domain"
	quotesvc "medcrm_backend/internal/quotes/service"
	"medcrm_backend/internal/users"
	"medcrm_backend/platform/apperr"
	"medcrm_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type institutionMap map[uuid.UUID]institutionrepo.Institution

func (m institutionMap) GetByID(_ context.Context, id uuid.UUID) (institutionrepo.Institution, error) {
	inst, ok := m[id]
	if !ok {
		return institutionrepo.Institution{}, apperr.NotFound("institution not found")
	}
	return inst, nil
}

type userMap map[uuid.UUID]users.User

func (m userMap) GetByID(_ context.Context, id uuid.UUID) (users.User, error) {
	u, ok := m[id]
	if !ok {
		return users.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func strPtr(s string) *string { return &s }

func TestInstitutionReaderFormatsPhone(t *testing.T) {
	id := uuid.New()
	reader := NewQuotesInstitutionReader(institutionMap{id: {
		ID:    id,
		Name:  "CHU de Lyon",
		Phone: strPtr("+33142345678"),
		City:  strPtr("Lyon"),
	}}, phone.NewNormalizer(phone.DefaultRegion))

	ref, err := reader.GetInstitution(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Phone != "+33 1 42 34 56 78" {
		t.Fatalf("expected international phone, got %q", ref.Phone)
	}
	if ref.Email != "" || ref.City != "Lyon" {
		t.Fatalf("unexpected optional fields: %+v", ref)
	}
}

func TestInstitutionReaderKeepsNotFound(t *testing.T) {
	reader := NewQuotesInstitutionReader(institutionMap{}, nil)

	_, err := reader.GetInstitution(context.Background(), uuid.New())
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUserReaderMapsRole(t *testing.T) {
	id := uuid.New()
	reader := NewQuotesUserReader(userMap{id: {ID: id, FullName: "Camille Martin", Email: "camille@example.com", Role: users.RoleSalesRep}})

	ref, err := reader.GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Role != "sales_rep" || ref.FullName != "Camille Martin" {
		t.Fatalf("unexpected user ref: %+v", ref)
	}

	if _, err := reader.GetUser(context.Background(), uuid.New()); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

type memObjects struct {
	objects map[string]storage.Object
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string]storage.Object{}}
}

func (m *memObjects) PutObject(_ context.Context, bucket string, obj storage.Object) error {
	m.objects[bucket+"/"+obj.Key] = obj
	return nil
}

func (m *memObjects) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	obj, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return obj.Data, nil
}

func (m *memObjects) DeleteObject(_ context.Context, bucket, key string) error {
	delete(m.objects, bucket+"/"+key)
	return nil
}

func (m *memObjects) EnsureBucketExists(context.Context, string) error { return nil }

func TestPDFStoreUsesBucket(t *testing.T) {
	objects := newMemObjects()
	store := NewQuotesPDFStore(objects, "quote-pdfs")
	ctx := context.Background()

	if err := store.Put(ctx, "q1/Q2025030001.pdf", []byte("%PDF")); err != nil {
		t.Fatalf("put: %v", err)
	}
	stored := objects.objects["quote-pdfs/q1/Q2025030001.pdf"]
	if stored.ContentType != "application/pdf" {
		t.Fatalf("expected application/pdf content type, got %q", stored.ContentType)
	}
	if stored.FileName != "Q2025030001.pdf" || stored.Metadata["quote-id"] != "q1" {
		t.Fatalf("unexpected download name or metadata: %q %#v", stored.FileName, stored.Metadata)
	}

	data, err := store.Get(ctx, "q1/Q2025030001.pdf")
	if err != nil || string(data) != "%PDF" {
		t.Fatalf("get: %q %v", data, err)
	}

	if err := store.Delete(ctx, "q1/Q2025030001.pdf"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "q1/Q2025030001.pdf"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("expected missing object, got %v", err)
	}
}

type capturingGenerator struct {
	data pdf.QuotePDFData
}

func (g *capturingGenerator) GenerateQuotePDF(_ context.Context, data pdf.QuotePDFData) ([]byte, error) {
	g.data = data
	return []byte("%PDF"), nil
}

func TestPDFRendererMapsDocument(t *testing.T) {
	gen := &capturingGenerator{}
	renderer := NewQuotesPDFRenderer(gen, "https://crm.example.com/")
	quoteID := uuid.MustParse("6f1c1d2e-8a43-4b8e-9a57-0d5a2d1d7c11")

	doc := quotesvc.QuoteDocument{
		Quote: domain.Quote{
			ID:          quoteID,
			QuoteNumber: "Q2025030001",
			Title:       "Bloc opératoire",
			Status:      domain.StatusSent,
			Totals:      domain.Totals{Total: decimal.RequireFromString("267.75")},
		},
		Lines: []domain.Line{
			{OrderIndex: 1, Description: "Table", Quantity: decimal.NewFromInt(2), DiscountType: domain.DiscountPercentage, Amounts: domain.LineAmounts{Total: decimal.NewFromInt(216)}},
			{OrderIndex: 2, Description: "Lampe", Quantity: decimal.NewFromInt(1), DiscountType: domain.DiscountFixedAmount, Amounts: domain.LineAmounts{Total: decimal.RequireFromString("51.75")}},
		},
		Institution:  quotesvc.InstitutionRef{Name: "CHU de Lyon"},
		Assignee:     quotesvc.UserRef{FullName: "Camille Martin", Email: "camille@example.com"},
		TemplateHTML: "<p>{{.QuoteNumber}}</p>",
	}

	if _, err := renderer.RenderQuote(context.Background(), doc); err != nil {
		t.Fatalf("render: %v", err)
	}

	got := gen.data
	if got.QRLink != "https://crm.example.com/quotes/"+quoteID.String() {
		t.Fatalf("unexpected qr link %q", got.QRLink)
	}
	if got.Status != "sent" || got.Assignee.Name != "Camille Martin" || got.TemplateHTML == "" {
		t.Fatalf("unexpected header mapping: %+v", got)
	}
	if len(got.Items) != 2 || got.Items[1].Position != 2 || got.Items[1].DiscountType != "fixed_amount" {
		t.Fatalf("unexpected items: %+v", got.Items)
	}
	if !got.Total.Equal(decimal.RequireFromString("267.75")) {
		t.Fatalf("unexpected total %s", got.Total)
	}
}

func TestPDFRendererWithoutBaseURLHasNoQR(t *testing.T) {
	gen := &capturingGenerator{}
	renderer := NewQuotesPDFRenderer(gen, "")

	if _, err := renderer.RenderQuote(context.Background(), quotesvc.QuoteDocument{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if gen.data.QRLink != "" {
		t.Fatalf("expected no qr link, got %q", gen.data.QRLink)
	}
}
