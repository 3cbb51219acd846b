// Package softphone sends commands to the phone engine over HTTP.
package softphone

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"softphone-governor/pkg/constants"
	"softphone-governor/pkg/metrics"
	"softphone-governor/pkg/models"
	"softphone-governor/pkg/protocol"
)

const maxErrorBody = 4 << 10

// StatusError is returned when the phone engine answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("softphone error %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	BaseURL    string
	Secret     string
	Bearer     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	endpoint   string
	secret     string
	bearer     string
	httpClient *http.Client
	logger     *logrus.Logger
	metrics    *metrics.Metrics
}

func NewClient(cfg Config, logger *logrus.Logger, metrics *metrics.Metrics) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid softphone URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.MillisecondsToDuration(constants.DefaultOutboundTimeoutMS)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:   strings.TrimRight(base.String(), "/") + "/",
		secret:     cfg.Secret,
		bearer:     cfg.Bearer,
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// Send translates cmd to the wire format and POSTs it to the engine root.
func (c *Client) Send(ctx context.Context, cmd models.Command) error {
	body, err := protocol.Encode(cmd)
	if err != nil {
		return err
	}

	wireType := protocol.WireType(cmd.Type())
	start := time.Now()
	err = c.post(ctx, wireType, body)
	c.metrics.OutboundDuration.WithLabelValues(wireType).Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.OutboundCommands.WithLabelValues(wireType, status).Inc()

	return err
}

func (c *Client) post(ctx context.Context, wireType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.targetURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build softphone request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	entry := c.logger.WithFields(logrus.Fields{
		"url":          c.maskedURL(),
		"command_type": wireType,
		"auth":         c.maskedAuth(),
	})
	if wireType == protocol.WireType(models.CommandSetConfig) {
		entry.WithField("body_bytes", len(body)).Debug("Softphone request")
	} else {
		entry.WithField("body", string(body)).Debug("Softphone request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("softphone request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(text)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	entry.WithField("status", resp.StatusCode).Debug("Softphone response OK")
	return nil
}

func (c *Client) targetURL() string {
	if c.secret == "" {
		return c.endpoint
	}
	return c.endpoint + "?secret=" + url.QueryEscape(c.secret)
}

func (c *Client) maskedURL() string {
	if c.secret == "" {
		return c.endpoint
	}
	return c.endpoint + "?secret=***"
}

func (c *Client) maskedAuth() string {
	if c.bearer == "" {
		return ""
	}
	return "Bearer ***"
}
