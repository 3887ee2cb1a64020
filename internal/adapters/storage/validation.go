package storage

import (
	"errors"
	"fmt"
	"mime"
	"strings"
)

var (
	ErrContentTypeNotAllowed = errors.New("content type not allowed")
	ErrEmptyObject           = errors.New("object is empty")
	ErrObjectTooLarge        = errors.New("object too large")
)

// allowedContentTypes lists what the backend generates: quote PDFs and
// their HTML sources.
var allowedContentTypes = map[string]struct{}{
	"application/pdf": {},
	"text/html":       {},
}

// ValidateContentType accepts an allowed media type, parameters included.
func ValidateContentType(contentType string) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrContentTypeNotAllowed, contentType)
	}
	if _, ok := allowedContentTypes[strings.ToLower(mediaType)]; !ok {
		return fmt.Errorf("%w: %q", ErrContentTypeNotAllowed, contentType)
	}
	return nil
}

// ValidateFileSize checks if the size is within limits. A non-positive limit disables the upper bound.
func ValidateFileSize(sizeBytes, maxFileSize int64) error {
	if sizeBytes <= 0 {
		return ErrEmptyObject
	}
	if maxFileSize > 0 && sizeBytes > maxFileSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrObjectTooLarge, sizeBytes, maxFileSize)
	}
	return nil
}

// validateObject runs every check PutObject needs before touching the network.
func validateObject(obj Object, maxFileSize int64) error {
	if strings.TrimSpace(obj.Key) == "" || strings.HasPrefix(obj.Key, "/") {
		return fmt.Errorf("invalid object key %q", obj.Key)
	}
	if err := ValidateContentType(obj.ContentType); err != nil {
		return err
	}
	return ValidateFileSize(int64(len(obj.Data)), maxFileSize)
}
