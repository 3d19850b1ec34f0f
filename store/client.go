// Package store talks to Civil Memory, the key-value HTTP service that holds
// all Sparkpad data. Values are addressed by a mode and a key.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"sparkpad/pkg/apperr"
	"sparkpad/pkg/logger"
	"sparkpad/pkg/metrics"
)

// Mode selects the Civil Memory storage tier.
type Mode string

const (
	Disk     Mode = "disk"
	Volatile Mode = "volatile"
)

// ErrKeyNotFound is returned by Get when the key holds no value.
var ErrKeyNotFound = errors.New("key not found")

// StatusError is a non-2xx reply from Civil Memory.
type StatusError struct {
	Op     string
	Key    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("civil memory %s %s: status %d: %s", e.Op, e.Key, e.Status, e.Body)
}

type Options struct {
	URL        string
	Path       string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Breaker    BreakerSettings
}

// BreakerSettings tunes the circuit breaker around Civil Memory calls.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerSettings trips after 60% failures over at least 5 calls and
// probes again after 30s.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

type Client struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
}

func NewClient(opts Options) *Client {
	if opts.Path == "" {
		opts.Path = "/api/data"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Breaker == (BreakerSettings{}) {
		opts.Breaker = DefaultBreakerSettings()
	}
	bs := opts.Breaker

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "civil-memory",
		MaxRequests: bs.MaxRequests,
		Interval:    bs.Interval,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bs.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bs.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Sugar.Warnf("Circuit breaker '%s' state changed from %v to %v", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, ErrKeyNotFound) {
				return true
			}
			var se *StatusError
			if errors.As(err, &se) {
				return se.Status < http.StatusInternalServerError
			}
			return false
		},
	})

	return &Client{
		endpoint: opts.URL + opts.Path,
		apiKey:   opts.APIKey,
		timeout:  opts.Timeout,
		http:     opts.HTTPClient,
		breaker:  cb,
	}
}

// Get decodes the value stored at key into out.
func (c *Client) Get(ctx context.Context, mode Mode, key string, out any) error {
	body, err := c.execute(ctx, "get", http.MethodGet, mode, key, nil)
	if err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ErrKeyNotFound
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Set replaces the value stored at key.
func (c *Client) Set(ctx context.Context, mode Mode, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = c.execute(ctx, "set", http.MethodPost, mode, key, payload)
	return err
}

// Delete removes key. Deleting a missing key succeeds.
func (c *Client) Delete(ctx context.Context, mode Mode, key string) error {
	_, err := c.execute(ctx, "delete", http.MethodDelete, mode, key, nil)
	if errors.Is(err, ErrKeyNotFound) {
		return nil
	}
	return err
}

// Ping checks that Civil Memory answers. A missing key is a healthy answer.
func (c *Client) Ping(ctx context.Context, key string) error {
	var v json.RawMessage
	err := c.Get(ctx, Volatile, key, &v)
	if err == nil || errors.Is(err, ErrKeyNotFound) {
		return nil
	}
	return err
}

func (c *Client) execute(ctx context.Context, op, method string, mode Mode, key string, payload []byte) ([]byte, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		return c.do(ctx, op, method, mode, key, payload)
	})
	outcome := "ok"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "rejected"
		err = fmt.Errorf("civil memory %s %s: %w", op, key, apperr.ErrUnavailable)
	case errors.Is(err, ErrKeyNotFound):
		outcome = "missing"
	case err != nil:
		outcome = "error"
	}
	metrics.StoreCalls.WithLabelValues(op, outcome).Inc()
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func (c *Client) do(ctx context.Context, op, method string, mode Mode, key string, payload []byte) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	q := url.Values{}
	q.Set("mode", string(mode))
	q.Set("key", key)

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+"?"+q.Encode(), body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("civil memory %s %s: %w", op, key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("civil memory %s %s: read body: %w", op, key, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrKeyNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: op, Key: key, Status: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}
	return data, nil
}
