package adapters

import (
	"context"
	"path"

	"medcrm_backend/internal/adapters/storage"
	quotesvc "medcrm_backend/internal/quotes/service"
)

const contentTypePDF = "application/pdf"

// QuotesPDFStore keeps rendered quote PDFs in one object storage bucket.
type QuotesPDFStore struct {
	storage storage.ObjectStore
	bucket  string
}

// NewQuotesPDFStore creates a new PDF store adapter bound to bucket.
func NewQuotesPDFStore(storageSvc storage.ObjectStore, bucket string) *QuotesPDFStore {
	return &QuotesPDFStore{storage: storageSvc, bucket: bucket}
}

// Put stores the PDF under key. Keys are "{quoteId}/{quoteNumber}.pdf", so
// the last segment doubles as the download name.
func (s *QuotesPDFStore) Put(ctx context.Context, key string, data []byte) error {
	return s.storage.PutObject(ctx, s.bucket, storage.Object{
		Key:         key,
		ContentType: contentTypePDF,
		Data:        data,
		FileName:    path.Base(key),
		Metadata:    map[string]string{"quote-id": path.Dir(key)},
	})
}

// Get reads a stored PDF.
func (s *QuotesPDFStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.storage.GetObject(ctx, s.bucket, key)
}

// Delete removes a stored PDF.
func (s *QuotesPDFStore) Delete(ctx context.Context, key string) error {
	return s.storage.DeleteObject(ctx, s.bucket, key)
}

// Compile-time check that QuotesPDFStore implements quotes/service.PDFStore.
var _ quotesvc.PDFStore = (*QuotesPDFStore)(nil)
