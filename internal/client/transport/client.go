package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldreport/internal/client/models"
	"github.com/dmitrijs2005/fieldreport/internal/logging"
	"github.com/dmitrijs2005/fieldreport/internal/netx"
)

// Body modes.
const (
	ModeJSON      = "json"
	ModeMultipart = "multipart"
)

// DataField is the multipart field carrying the record JSON.
const DataField = "data"

const defaultUserAgent = "fieldreport/1.0"

// Submitter delivers one record once.
type Submitter interface {
	Submit(ctx context.Context, rec models.SubmissionRecord) (models.Outcome, error)
}

// HTTPClient posts records to a configurable endpoint.
type HTTPClient struct {
	mu       sync.RWMutex
	endpoint string

	mode      string
	client    *http.Client
	userAgent string
	log       logging.Logger
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying client (timeouts live there).
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.client = c }
}

func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) { h.client = &http.Client{Timeout: d} }
}

func WithBodyMode(mode string) Option {
	return func(h *HTTPClient) { h.mode = mode }
}

func WithUserAgent(ua string) Option {
	return func(h *HTTPClient) { h.userAgent = ua }
}

func NewHTTPClient(endpoint string, log logging.Logger, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		endpoint:  endpoint,
		mode:      ModeJSON,
		client:    &http.Client{},
		userAgent: defaultUserAgent,
		log:       log.With("module", "transport"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) Endpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint
}

// SetEndpoint re-points subsequent requests; in-flight requests are unaffected.
func (c *HTTPClient) SetEndpoint(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.endpoint != url {
		c.log.Info(context.Background(), "endpoint changed", "from", c.endpoint, "to", url)
	}
	c.endpoint = url
}

// Submit sends rec once and normalizes the reply.
func (c *HTTPClient) Submit(ctx context.Context, rec models.SubmissionRecord) (models.Outcome, error) {
	body, contentType, err := c.buildBody(rec)
	if err != nil {
		return models.Outcome{}, &TransportError{Op: "encode", Err: err}
	}

	endpoint := c.Endpoint()
	resp, err := netx.Do(ctx, c.client, netx.Request{
		Method:      http.MethodPost,
		URL:         endpoint,
		ContentType: contentType,
		UserAgent:   c.userAgent,
		Body:        body,
	})
	if err != nil {
		c.log.Debug(ctx, "submit failed", "id", rec.ID, "error", err)
		return models.Outcome{}, &TransportError{Op: "submit", Err: err}
	}

	r := Normalize(resp.StatusCode, resp.Body)
	if opaque, ok := r.(OpaqueResponse); ok && !netx.IsSuccess(opaque.Status) {
		return models.Outcome{}, &TransportError{
			Op:         "submit",
			StatusCode: opaque.Status,
			Err:        fmt.Errorf("unexpected reply %q", netx.Snippet(opaque.Body, 120)),
		}
	}

	out := r.Outcome()
	c.log.Debug(ctx, "submit answered", "id", rec.ID, "status", resp.StatusCode, "ok", out.OK)
	return out, nil
}

func (c *HTTPClient) buildBody(rec models.SubmissionRecord) (io.Reader, string, error) {
	switch c.mode {
	case ModeJSON, "":
		b, err := json.Marshal(rec)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(b), "application/json", nil
	case ModeMultipart:
		return buildMultipart(rec)
	default:
		return nil, "", fmt.Errorf("unknown body mode %q", c.mode)
	}
}

// buildMultipart writes the record without payloads as the data field and
// one photo_<n> file part per attachment.
func buildMultipart(rec models.SubmissionRecord) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	data, err := json.Marshal(rec.WithoutPayloads())
	if err != nil {
		return nil, "", err
	}
	if err := mw.WriteField(DataField, string(data)); err != nil {
		return nil, "", err
	}

	for i, a := range rec.Attachments {
		raw, err := base64.StdEncoding.DecodeString(a.Data)
		if err != nil {
			return nil, "", fmt.Errorf("attachment %d: %w", i, err)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo_%d"; filename="%s"`, i, escapeQuotes(a.Name)))
		h.Set("Content-Type", a.MimeType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(raw); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
