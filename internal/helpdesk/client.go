package helpdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jmehdipour/formdesk/internal/logger"
	"github.com/jmehdipour/formdesk/internal/metrics"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single helpdesk call.
const DefaultTimeout = 30 * time.Second

// maxBody caps how much of a response is read. Longer bodies are cut and
// end with truncatedMark.
const maxBody = 1 << 20

const truncatedMark = "...[truncated]"

// TransportError means the request never produced a response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a response outside [200,300). Body is kept verbatim up to
// maxBody bytes; a longer body ends with truncatedMark.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d - %s", e.Status, e.Body)
}

// Client talks to one helpdesk instance.
type Client struct {
	vendor  Vendor
	baseURL string
	creds   Credentials
	client  *http.Client
}

func NewClient(vendor Vendor, baseURL string, creds Credentials, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		vendor:  vendor,
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) Vendor() Vendor { return c.vendor }

// CreateConversation shapes conv for the vendor and POSTs it once.
func (c *Client) CreateConversation(ctx context.Context, conv Conversation) (Created, error) {
	payload := c.vendor.Shape(conv)
	b, err := json.Marshal(payload)
	if err != nil {
		return Created{}, fmt.Errorf("marshal %s payload: %w", c.vendor.Name(), err)
	}

	logger.Log.Debug("sending conversation",
		zap.String("vendor", c.vendor.Name()),
		zap.ByteString("payload", b))

	body, err := c.do(ctx, http.MethodPost, c.vendor.ConversationPath(), b)
	if err != nil {
		return Created{}, err
	}

	return c.vendor.Identifiers(body), nil
}

// Probe performs the vendor's read-only credential check.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, c.vendor.ProbePath(), nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.vendor.Authorize(req, c.creds)

	start := time.Now()
	res, err := c.client.Do(req)
	metrics.RequestDuration.WithLabelValues(c.vendor.Name(), method).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	defer res.Body.Close()

	// the status line is in; a body cut short no longer changes the outcome
	body, readErr := io.ReadAll(io.LimitReader(res.Body, maxBody+1))
	truncated := len(body) > maxBody
	if truncated {
		body = body[:maxBody]
	}

	logger.Log.Debug("helpdesk response",
		zap.String("vendor", c.vendor.Name()),
		zap.String("path", path),
		zap.Int("status", res.StatusCode),
		zap.ByteString("body", body))

	if readErr != nil {
		logger.Log.Warn("helpdesk response body cut short",
			zap.String("vendor", c.vendor.Name()),
			zap.String("path", path),
			zap.Int("status", res.StatusCode),
			zap.Int("read", len(body)),
			zap.Error(readErr))
	}

	if res.StatusCode/100 != 2 {
		msg := string(body)
		if truncated {
			msg += truncatedMark
		}
		return nil, &StatusError{Status: res.StatusCode, Body: msg}
	}

	return body, nil
}
