package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for overload retry handling.
var (
	grobidRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grobid_retries_total",
		Help: "Total resubmissions after a 503 overload response by service",
	}, []string{"service"})

	grobidRetryWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "grobid_retry_wait_seconds",
		Help:    "Wait duration before resubmission after a 503 response",
		Buckets: []float64{1, 2, 5, 10, 30, 60},
	})

	grobidRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grobid_retry_exhausted_total",
		Help: "Total number of times a bounded retry policy gave up by service",
	}, []string{"service"})
)

// RetryPolicy governs the reaction to 503 overload responses.
//
// The baseline behavior is an unbounded fixed-delay retry: the server will
// eventually free capacity, so a busy file waits out every 503. MaxAttempts
// and BackoffMultiplier opt into a bounded or growing policy instead; both
// defaults preserve the literal baseline semantics.
type RetryPolicy struct {
	// Delay is the wait after a 503 before resubmitting.
	Delay time.Duration

	// MaxAttempts is the total number of submissions allowed per file.
	// Zero means unbounded.
	MaxAttempts int

	// BackoffMultiplier grows the delay after each 503 when > 1.0.
	BackoffMultiplier float64

	// MaxBackoff caps the grown delay. Only relevant with a multiplier.
	MaxBackoff time.Duration
}

// DefaultRetryPolicy returns the baseline policy: retry 503 forever with a
// fixed 5 second delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Delay:             5 * time.Second,
		MaxAttempts:       0,
		BackoffMultiplier: 1.0,
		MaxBackoff:        60 * time.Second,
	}
}

// normalized fills zero values so a partially specified policy behaves
// like the default.
func (p RetryPolicy) normalized() RetryPolicy {
	if p.Delay <= 0 {
		p.Delay = 5 * time.Second
	}
	if p.BackoffMultiplier < 1.0 {
		p.BackoffMultiplier = 1.0
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 60 * time.Second
	}
	return p
}

// Process submits a request and waits out overload responses until the
// server produces a terminal answer. The identical request is resubmitted
// after each wait; the sleep blocks only the calling goroutine.
//
// An explicit loop rather than recursion: unbounded retries must not grow
// the call stack under pathological overload.
func (c *Client) Process(ctx context.Context, r Request) (*Response, error) {
	delay := c.policy.Delay

	for attempt := 1; ; attempt++ {
		resp, err := c.Submit(ctx, r)

		class := Classify(resp, err)
		if !retriable(class) {
			return c.finish(r, resp, err, class, attempt)
		}

		if c.policy.MaxAttempts > 0 && attempt >= c.policy.MaxAttempts {
			grobidRetryExhaustedTotal.WithLabelValues(string(r.Service)).Inc()
			c.logger.Warn().
				Str("file", r.FilePath).
				Int("max_attempts", c.policy.MaxAttempts).
				Msg("Retry attempts exhausted")
			return nil, fmt.Errorf("%w for %s after %d attempts", ErrRetryExhausted, r.FilePath, attempt)
		}

		grobidRetriesTotal.WithLabelValues(string(r.Service)).Inc()
		grobidRetryWaitSeconds.Observe(delay.Seconds())

		c.logger.Warn().
			Str("file", r.FilePath).
			Str("service", string(r.Service)).
			Int("attempt", attempt).
			Dur("wait", delay).
			Msg("GROBID overloaded, waiting before resubmission")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(delay):
		}

		if c.policy.BackoffMultiplier > 1.0 {
			delay = time.Duration(float64(delay) * c.policy.BackoffMultiplier)
			if delay > c.policy.MaxBackoff {
				delay = c.policy.MaxBackoff
			}
		}
	}
}

// finish maps a terminal attempt to the caller-facing result.
func (c *Client) finish(r Request, resp *Response, err error, class Class, attempt int) (*Response, error) {
	switch class {
	case ClassOK:
		if attempt > 1 {
			c.logger.Info().
				Str("file", r.FilePath).
				Int("attempts", attempt).
				Msg("Request succeeded after overload waits")
		}
		return resp, nil

	case ClassNetwork:
		return nil, &GrobidError{
			Class:   ClassNetwork,
			Message: "transport failure",
			Err:     err,
		}

	default:
		c.logger.Error().
			Str("file", r.FilePath).
			Str("service", string(r.Service)).
			Int("status_code", resp.StatusCode).
			Msg("Processing failed")
		return nil, &GrobidError{
			StatusCode: resp.StatusCode,
			Class:      ClassPermanent,
			Message:    http.StatusText(resp.StatusCode),
		}
	}
}
