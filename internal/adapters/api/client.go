package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"testinsure/internal/adapters/metrics"
	"testinsure/internal/domain/session"
)

// DefaultBaseURL is the remote API root used when none is configured.
const DefaultBaseURL = "http://localhost:8080/api"

// DefaultTimeout bounds every call when none is configured.
const DefaultTimeout = 15 * time.Second

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client calls the remote hospital API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	tracer trace.Tracer
}

// New creates a client whose transport attaches the context's session token.
// PRE: baseURL is absolute; timeout <= 0 selects DefaultTimeout
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: NewBearerTransport(http.DefaultTransport),
		},
		tracer: otel.Tracer("testinsure/api"),
	}
}

// bearerTransport adds the session token carried by the request context.
type bearerTransport struct {
	base http.RoundTripper
}

// NewBearerTransport wraps base so requests carry "Authorization: Bearer <token>"
// whenever the request context holds a session.
func NewBearerTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &bearerTransport{base: base}
}

// RoundTrip implements http.RoundTripper.
// POST: the caller's request is not mutated
func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := session.TokenFromContext(req.Context())
	if token == "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(r)
}

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// do performs one request, traced and measured under op.
// POST: on a nil error the caller owns resp.Body; non-2xx statuses are returned as *Error
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, headers map[string]string) (*http.Response, error) {
	ctx, span := c.tracer.Start(ctx, "api."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metrics.ObserveAPI(op, 0, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	metrics.ObserveAPI(op, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := parseError(resp.StatusCode, b)
		span.SetStatus(codes.Error, apiErr.Message)
		return nil, apiErr
	}
	return resp, nil
}

// doJSON sends in as JSON (when non-nil) and decodes the response into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	headers := map[string]string{"Accept": "application/json"}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
		headers["Content-Type"] = "application/json"
	}

	resp, err := c.do(ctx, op, method, path, body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
