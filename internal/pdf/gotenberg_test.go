package pdf

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/forms/chromium/convert/html", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "gotenberg", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "0.5", r.FormValue("marginTop"))
		assert.Equal(t, "8.27", r.FormValue("paperWidth"))
		assert.Equal(t, "print", r.FormValue("emulatedMediaType"))
		assert.JSONEq(t, `{"Title":"Q2026030001 Échographes"}`, r.FormValue("metadata"))
		assert.Equal(t, "Q2026030001", r.Header.Get("Gotenberg-Trace"))
		_, hasDelay := r.MultipartForm.Value["waitDelay"]
		assert.False(t, hasDelay)

		files := r.MultipartForm.File["files"]
		require.Len(t, files, 1)
		assert.Equal(t, "index.html", files[0].Filename)
		f, err := files[0].Open()
		require.NoError(t, err)
		body, _ := io.ReadAll(f)
		assert.Equal(t, "<p>hi</p>", string(body))

		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	opts := DefaultContentOpts()
	opts.Trace = "Q2026030001"
	opts.Metadata = map[string]string{"Title": "Q2026030001 Échographes"}

	client := NewGotenbergClient(srv.URL+"/", "gotenberg", "secret")
	pdf, err := client.ConvertHTML(context.Background(), []byte("<p>hi</p>"), opts)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), pdf)
}

func TestConvertHTMLErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth := r.Header["Authorization"]
		assert.False(t, hasAuth)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("chromium down"))
	}))
	defer srv.Close()

	client := NewGotenbergClient(srv.URL, "", "")
	_, err := client.ConvertHTML(context.Background(), []byte("<p>hi</p>"), DefaultContentOpts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 503: chromium down")
	assert.ErrorIs(t, err, ErrConverterUnavailable)

	var convErr *ConvertError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, http.StatusServiceUnavailable, convErr.Status)
}

func TestConvertErrorIsTransientOnlyForOverload(t *testing.T) {
	assert.ErrorIs(t, &ConvertError{Status: http.StatusTooManyRequests}, ErrConverterUnavailable)
	assert.ErrorIs(t, &ConvertError{Status: http.StatusGatewayTimeout}, ErrConverterUnavailable)
	assert.NotErrorIs(t, &ConvertError{Status: http.StatusBadRequest}, ErrConverterUnavailable)
	assert.NotErrorIs(t, &ConvertError{Status: http.StatusInternalServerError}, ErrConverterUnavailable)
}

func TestPing(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewGotenbergClient(srv.URL, "", "")
	require.NoError(t, client.Ping(context.Background()))

	healthy = false
	require.Error(t, client.Ping(context.Background()))
}
