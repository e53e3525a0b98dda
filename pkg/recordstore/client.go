// Package recordstore is a thin typed client for the external record
// store. It exposes the store's collection CRUD contract and nothing
// else: no retries, no backoff, no business logic. Callers own error
// recovery.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medscribe/scribe-api/pkg/circuitbreaker"
	"github.com/medscribe/scribe-api/pkg/metrics"
)

// Collection names understood by the store.
const (
	CollectionPatients      = "patients"
	CollectionConsultations = "consultations"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	cb      *circuitbreaker.CircuitBreaker
	logger  *zerolog.Logger
	metrics *metrics.Metrics
}

// StatusError is returned for non-2xx store responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("record store returned %d: %s", e.StatusCode, e.Body)
}

func NewClient(cfg Config, logger *zerolog.Logger, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "record-store",
			MaxFailures: 5,
			Timeout:     15 * time.Second,
		}),
		logger:  logger,
		metrics: m,
	}
}

// List fetches every record in a collection.
func List[T any](ctx context.Context, c *Client, collection string) ([]T, error) {
	body, err := c.do(ctx, http.MethodGet, "/"+collection, collection, "list", nil)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s list: %w", collection, err)
	}
	return out, nil
}

// Get fetches one record by id.
func Get[T any](ctx context.Context, c *Client, collection string, id int) (*T, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/%s/%d", collection, id), collection, "get", nil)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s record: %w", collection, err)
	}
	return &out, nil
}

// Create posts a new record and returns it with the store-assigned id.
func Create[T any](ctx context.Context, c *Client, collection string, record interface{}) (*T, error) {
	body, err := c.do(ctx, http.MethodPost, "/"+collection, collection, "create", record)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode created %s record: %w", collection, err)
	}
	return &out, nil
}

// Patch applies a partial update and returns the updated record.
func Patch[T any](ctx context.Context, c *Client, collection string, id int, partial interface{}) (*T, error) {
	body, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/%s/%d", collection, id), collection, "patch", partial)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode patched %s record: %w", collection, err)
	}
	return &out, nil
}

// Delete removes one record by id.
func Delete(ctx context.Context, c *Client, collection string, id int) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/%s/%d", collection, id), collection, "delete", nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path, collection, operation string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	var respBody []byte
	var clientErr error
	err = c.cb.Execute(func() error {
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode >= 500 {
			return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			// 4xx means the request was wrong, not that the store is
			// unhealthy; it must not count toward opening the breaker.
			clientErr = &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
		}
		return nil
	})
	if err == nil {
		err = clientErr
	}

	c.observe(collection, operation, time.Since(start), err)
	if err != nil {
		c.logger.Error().Err(err).
			Str("collection", collection).
			Str("operation", operation).
			Msg("record store call failed")
		return nil, err
	}
	return respBody, nil
}

func (c *Client) observe(collection, operation string, elapsed time.Duration, err error) {
	if c.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.StoreOperations.WithLabelValues(collection, operation, status).Inc()
	c.metrics.StoreLatency.WithLabelValues(collection, operation).Observe(elapsed.Seconds())
}
