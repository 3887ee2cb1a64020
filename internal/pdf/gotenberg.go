// Package pdf renders quotes to HTML and converts them to PDF through Gotenberg.
package pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	convertHTMLPath = "/forms/chromium/convert/html"
	healthPath      = "/health"

	// A4 in inches, the unit Gotenberg expects.
	a4Width  = "8.27"
	a4Height = "11.7"

	maxErrorBody = 4096
)

// ErrConverterUnavailable marks Gotenberg answers worth retrying later
// (overload or a gateway in front of it failing).
var ErrConverterUnavailable = errors.New("pdf converter unavailable")

// ConvertError is a non-200 answer from Gotenberg.
type ConvertError struct {
	Status int
	Body   string
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("gotenberg returned %d: %s", e.Status, e.Body)
}

// Is lets errors.Is(err, ErrConverterUnavailable) match transient statuses.
func (e *ConvertError) Is(target error) bool {
	if target != ErrConverterUnavailable {
		return false
	}
	switch e.Status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// GotenbergClient converts HTML to PDF via a Gotenberg instance.
type GotenbergClient struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// NewGotenbergClient creates a client pointing at the given Gotenberg URL.
// Basic auth is sent only when both username and password are set.
func NewGotenbergClient(baseURL, username, password string) *GotenbergClient {
	return &GotenbergClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// ConvertOpts configures one conversion. Empty fields are left to Gotenberg's defaults.
type ConvertOpts struct {
	MarginTop    string
	MarginBottom string
	MarginLeft   string
	MarginRight  string
	FooterHTML   []byte
	// WaitDelay adds a delay before capture (e.g. "1s") for font loading.
	WaitDelay string
	// Metadata is written into the PDF document info (Title, Author...).
	Metadata map[string]string
	// Trace is sent as Gotenberg-Trace so both logs share an identifier.
	Trace string
}

// DefaultContentOpts returns the A4 margins used for quote pages.
func DefaultContentOpts() ConvertOpts {
	return ConvertOpts{
		MarginTop:    "0.5",
		MarginBottom: "0.7",
		MarginLeft:   "0.5",
		MarginRight:  "0.5",
	}
}

// ConvertHTML sends index.html to Chromium and returns the PDF bytes.
func (g *GotenbergClient) ConvertHTML(ctx context.Context, indexHTML []byte, opts ConvertOpts) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writeFields(writer, opts); err != nil {
		return nil, err
	}
	if err := addHTMLPart(writer, "index.html", indexHTML); err != nil {
		return nil, err
	}
	if len(opts.FooterHTML) > 0 {
		if err := addHTMLPart(writer, "footer.html", opts.FooterHTML); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := g.newRequest(ctx, http.MethodPost, convertHTMLPath, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if opts.Trace != "" {
		req.Header.Set("Gotenberg-Trace", opts.Trace)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gotenberg convert: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gotenberg response: %w", err)
	}
	return pdf, nil
}

// Ping checks that Gotenberg answers its health endpoint.
func (g *GotenbergClient) Ping(ctx context.Context) error {
	req, err := g.newRequest(ctx, http.MethodGet, healthPath, nil)
	if err != nil {
		return err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("gotenberg health: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (g *GotenbergClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create gotenberg request: %w", err)
	}
	if g.username != "" && g.password != "" {
		req.SetBasicAuth(g.username, g.password)
	}
	return req, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &ConvertError{Status: resp.StatusCode, Body: strings.TrimSpace(string(errBody))}
}

func writeFields(w *multipart.Writer, opts ConvertOpts) error {
	fields := [][2]string{
		{"paperWidth", a4Width},
		{"paperHeight", a4Height},
		{"marginTop", opts.MarginTop},
		{"marginBottom", opts.MarginBottom},
		{"marginLeft", opts.MarginLeft},
		{"marginRight", opts.MarginRight},
		{"printBackground", "true"},
		{"emulatedMediaType", "print"},
		{"waitDelay", opts.WaitDelay},
	}
	if len(opts.Metadata) > 0 {
		raw, err := json.Marshal(opts.Metadata)
		if err != nil {
			return fmt.Errorf("encode pdf metadata: %w", err)
		}
		fields = append(fields, [2]string{"metadata", string(raw)})
	}

	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	return nil
}

func addHTMLPart(w *multipart.Writer, filename string, content []byte) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, filename))
	h.Set("Content-Type", "text/html; charset=utf-8")

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %s: %w", filename, err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("write part %s: %w", filename, err)
	}
	return nil
}
