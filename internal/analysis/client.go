// Package analysis talks to the remote stock analysis service.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const DefaultUserAgent = "StockAnalyzer/1.0"

type Options struct {
	Endpoint  string
	UserAgent string
	Logger    *zap.Logger
	// Transport replaces the HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

// Client sends analysis requests. It never retries: a failed request is
// reported once and the user decides whether to resubmit.
type Client struct {
	client   *resty.Client
	endpoint string
	logger   *zap.Logger
}

func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	client := resty.New()
	client.SetRetryCount(0)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "application/json")
	client.SetLogger(logger.Named("resty").Sugar())
	if opts.Transport != nil {
		client.SetTransport(opts.Transport)
	}

	return &Client{
		client:   client,
		endpoint: opts.Endpoint,
		logger:   logger,
	}
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Analyze posts req and returns the analysis text. Failures are either a
// *ServiceError or a *TransportError; use Message to render them.
func (c *Client) Analyze(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	c.logger.Debug("dispatching analysis request",
		zap.String("endpoint", c.endpoint),
		zap.Object("request", req))

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(c.endpoint)
	if err != nil {
		c.logger.Warn("analysis request failed",
			zap.String("stock", req.Stock),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", &TransportError{Err: err}
	}

	var body Response
	decodeErr := decode(resp.Body(), &body)

	fields := []zap.Field{
		zap.String("stock", req.Stock),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", time.Since(start)),
	}

	if !resp.IsSuccess() {
		// Status is authoritative; an unreadable body just means no message.
		message := ""
		if decodeErr == nil {
			message = body.Error
		}
		c.logger.Info("analysis service rejected request", fields...)
		return "", &ServiceError{StatusCode: resp.StatusCode(), Message: message}
	}

	if decodeErr != nil {
		c.logger.Warn("analysis response malformed", append(fields, zap.Error(decodeErr))...)
		return "", &TransportError{Err: decodeErr}
	}

	if body.Analysis == nil {
		c.logger.Info("analysis response missing payload", fields...)
		return "", &ServiceError{StatusCode: resp.StatusCode(), Message: body.Error}
	}

	c.logger.Info("analysis received", append(fields, zap.Int("bytes", len(*body.Analysis)))...)
	return *body.Analysis, nil
}

func decode(data []byte, body *Response) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("empty response body")
	}
	return json.Unmarshal(data, body)
}
