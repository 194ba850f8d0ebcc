// Package marketapi talks JSON over HTTP to the remote catalog/order API.
package marketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/TeninChristopher/SAM/internal/domain/apperr"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/platform/metrics"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout         = 10 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
	maxBodyBytes           = 4 << 20
)

type Config struct {
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

type rawResponse struct {
	status int
	body   []byte
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*rawResponse]
	log     logger.Logger
	metrics *metrics.MetricsManager
}

// NewClient builds a client. metricsManager may be nil.
func NewClient(cfg Config, log logger.Logger, metricsManager *metrics.MetricsManager) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid market API base URL %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}

	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log:     log,
		metrics: metricsManager,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:    "market-api",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("Circuit breaker %s changed state: %s -> %s", name, from, to)
		},
	})
	return c, nil
}

// do performs one call. Transport failures (network, 5xx, open breaker,
// undecodable body) become apperr transport errors; 4xx become rejections
// carrying the server's message verbatim. out may be nil.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	started := time.Now()
	err := c.exchange(ctx, op, method, path, query, body, out)
	c.metrics.ObserveMarketCall(op, started, string(apperr.KindOf(err)))
	return err
}

func (c *Client) exchange(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request body: %w", op, err)
		}
	}

	target := c.baseURL.JoinPath(path)
	if !strings.HasSuffix(target.Path, "/") {
		target.Path += "/"
	}
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	raw, err := c.breaker.Execute(func() (*rawResponse, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("server error %d", resp.StatusCode)
		}
		return &rawResponse{status: resp.StatusCode, body: data}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.log.Warnf("%s: market API circuit open: %v", op, err)
		} else {
			c.log.Errorf("%s %s failed: %v", method, target.Path, err)
		}
		return apperr.Transport(op, err)
	}

	if raw.status >= http.StatusBadRequest {
		return rejection(op, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw.body)) == 0 {
		if out != nil {
			return apperr.Transport(op, errors.New("empty response body"))
		}
		return nil
	}
	if err := json.Unmarshal(raw.body, out); err != nil {
		return apperr.Transport(op, fmt.Errorf("non-JSON or mistyped response: %w", err))
	}
	if v, ok := out.(validator); ok {
		if err := v.validate(); err != nil {
			return apperr.Transport(op, fmt.Errorf("unexpected response shape: %w", err))
		}
	}
	return nil
}

func rejection(op string, raw *rawResponse) error {
	var body errorDTO
	if err := json.Unmarshal(raw.body, &body); err != nil {
		return apperr.Rejected(op, raw.status, http.StatusText(raw.status))
	}
	msg := body.message()
	if msg == "" {
		msg = http.StatusText(raw.status)
	}
	rej := apperr.Rejected(op, raw.status, msg)
	rej.Details = body
	return rej
}
