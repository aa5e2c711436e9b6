// Package client provides the GROBID HTTP gateway with response
// classification and overload retry handling.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for GROBID request operations.
var (
	grobidRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grobid_requests_total",
		Help: "Total GROBID requests by service and status",
	}, []string{"service", "status"})

	grobidRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grobid_request_duration_seconds",
		Help:    "GROBID request duration in seconds by service",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"service"})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the GROBID server root, e.g. "http://localhost:8070".
	// Immutable after New; every worker reads the same value.
	BaseURL string

	// Timeout is the transport-level timeout per attempt. Zero means no
	// timeout, matching the baseline behavior.
	Timeout time.Duration

	// Policy governs the reaction to 503 overload responses.
	Policy RetryPolicy
}

// Client is the GROBID service gateway. Safe for concurrent use; it holds
// no per-request mutable state.
type Client struct {
	httpClient *http.Client
	baseURL    string
	policy     RetryPolicy
	logger     zerolog.Logger
}

// New creates a new GROBID client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https, got %q", cfg.BaseURL)
	}

	logger := log.With().Str("component", "grobid-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		policy:  cfg.Policy.normalized(),
		logger:  logger,
	}, nil
}

// IsAlive checks the server's liveness endpoint. Called once at startup;
// any failure is fatal for the run before work begins.
func (c *Client) IsAlive(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/isalive", nil)
	if err != nil {
		return fmt.Errorf("create liveness request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServerDown, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: liveness status %d", ErrServerDown, resp.StatusCode)
	}

	c.logger.Info().Str("base_url", c.baseURL).Msg("GROBID server is up and running")
	return nil
}

// Submit performs a single submission attempt for one document. It returns
// the raw status and body without interpreting them.
func (c *Client) Submit(ctx context.Context, r Request) (*Response, error) {
	startTime := time.Now()
	defer func() {
		grobidRequestDuration.WithLabelValues(string(r.Service)).Observe(time.Since(startTime).Seconds())
	}()

	body, contentType, err := c.buildPayload(r)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/%s", c.baseURL, r.Service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/plain")

	c.logger.Debug().
		Str("file", r.FilePath).
		Str("service", string(r.Service)).
		Msg("Submitting document")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		grobidRequestsTotal.WithLabelValues(string(r.Service), "network_error").Inc()
		return nil, fmt.Errorf("submit %s: %w", r.FilePath, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		grobidRequestsTotal.WithLabelValues(string(r.Service), "network_error").Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	grobidRequestsTotal.WithLabelValues(string(r.Service), fmt.Sprintf("%d", resp.StatusCode)).Inc()

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
	}, nil
}

// buildPayload assembles the multipart form for one document: the file
// bytes under field "input" plus one form field per enabled option.
func (c *Client) buildPayload(r Request) (io.Reader, string, error) {
	file, err := os.Open(r.FilePath)
	if err != nil {
		return nil, "", fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="input"; filename=%q`, filepath.Base(r.FilePath)))
	header.Set("Content-Type", "application/pdf")
	header.Set("Expires", "0")

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart field: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("read input: %w", err)
	}

	for field, value := range r.Options.formFields() {
		if err := mw.WriteField(field, value); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", field, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}

	return &buf, mw.FormDataContentType(), nil
}

// formFields maps the enabled options to their wire form fields.
func (o Options) formFields() map[string]string {
	fields := make(map[string]string)
	if o.GenerateIDs {
		fields["generate_ids"] = "1"
	}
	if o.ConsolidateHeader {
		fields["consolidate_header"] = "1"
	}
	if o.ConsolidateCitations {
		fields["consolidate_citations"] = "1"
	}
	if o.TEICoordinates {
		fields["tei_coordinates"] = o.CoordinateTypes
	}
	return fields
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// BaseURL returns the configured server root.
func (c *Client) BaseURL() string {
	return c.baseURL
}
