package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusByKind(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:          http.StatusNotFound,
		KindValidation:        http.StatusBadRequest,
		KindConflict:          http.StatusConflict,
		KindInvalidTransition: http.StatusConflict,
		KindForbidden:         http.StatusForbidden,
		KindInternal:          http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, New(kind, "x").HTTPStatus(), "kind %d", kind)
	}
}

func TestDefaultCodeIsOverriddenByWithCode(t *testing.T) {
	err := NotFound("quote not found")
	assert.Equal(t, CodeNotFound, err.Code)

	err = err.WithCode("QUOTE_NOT_FOUND")
	assert.Equal(t, "QUOTE_NOT_FOUND", err.Code)
}

func TestKindAndCodeSurviveWrapping(t *testing.T) {
	base := Conflict("duplicate quote number").WithCode("QUOTE_NUMBER_CONFLICT")
	wrapped := fmt.Errorf("insert quote: %w", base)

	assert.True(t, Is(wrapped, KindConflict))
	assert.True(t, HasCode(wrapped, "QUOTE_NUMBER_CONFLICT"))
	assert.Equal(t, KindUnknown, GetKind(fmt.Errorf("plain")))
	assert.Equal(t, "", GetCode(nil))
}

func TestUnknownKindIsInternal(t *testing.T) {
	err := New(KindUnknown, "odd")
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
	assert.Equal(t, CodeInternal, err.Code)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(KindInternal, "load quote", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "load quote: connection reset", err.Error())
	assert.Equal(t, "quote not found", NotFound("quote not found").Error())
}
