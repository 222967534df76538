package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/victornm/equiz-client/internal/errors"
)

const (
	PathTitle        = "/title"
	PathLogin        = "/login"
	PathRelogin      = "/relogin"
	PathLastEvent    = "/last_event"
	PathSubmitAnswer = "/submit_answer"
	PathSSE          = "/sse"
)

const (
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeJSON = "application/json"
	headerRequestID = "X-Request-Id"
)

type Config struct {
	// BaseURL of the quiz server, e.g. http://localhost:8080
	BaseURL    string
	HTTPClient *http.Client
}

// Client talks to the quiz server. Requests are never retried and carry no
// timeout of their own; the context passed by the caller is the only bound.
type Client struct {
	base string
	http *http.Client
}

func NewClient(c Config) *Client {
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		base: strings.TrimSuffix(c.BaseURL, "/"),
		http: hc,
	}
}

// Response is a completed request. Each endpoint defines its own success status.
type Response struct {
	Status int
	Body   string
}

// Expect returns nil if the response has the given status, or a rejected error carrying the body.
func (r *Response) Expect(status int) error {
	if r.Status == status {
		return nil
	}

	return errors.Rejected(r.Status, r.Body)
}

// Request sends body as plain text.
func (c *Client) Request(ctx context.Context, method, path string, body []byte) (*Response, error) {
	return c.do(ctx, method, path, contentTypeText, body)
}

// PostJSON sends v encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, path string, v any) (*Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.New(errors.CodeInternal,
			errors.WithMessagef("marshal request for %s", path),
			errors.WithCause(err),
		)
	}

	return c.do(ctx, http.MethodPost, path, contentTypeJSON, b)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte) (*Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), r)
	if err != nil {
		return nil, errors.New(errors.CodeInternal,
			errors.WithMessagef("new request %s %s", method, path),
			errors.WithCause(err),
		)
	}

	req.Header.Set(headerRequestID, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("%s %s", method, path),
			errors.WithCause(err),
		)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("read response of %s %s", method, path),
			errors.WithCause(err),
		)
	}

	return &Response{
		Status: resp.StatusCode,
		Body:   string(b),
	}, nil
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("%s%s", c.base, path)
}
