// Package supabase implements the store port on Supabase (PostgREST).
// Reads go through the circuit breaker with retry; writes go through the
// breaker once and are never retried, so a timed-out insert can't be applied twice.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	bulkhead       *resilience.Bulkhead
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	c := &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
	if cfg.MaxConcurrency > 0 {
		c.bulkhead = resilience.NewBulkhead(cfg.MaxConcurrency)
	}
	return c
}

// Ping checks that PostgREST answers.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	_, err := c.read(ctx, "clients", "clients?select=id&limit=1")
	return err
}

// read runs a GET with breaker, bulkhead and retry.
func (c *Client) read(ctx context.Context, table, path string) ([]byte, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, c.classify(table, err)
	}
	defer c.release()

	var body []byte
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			var err error
			body, err = c.doRequest(ctx, http.MethodGet, path, nil, "")
			return err
		})
	})
	if err != nil {
		return nil, c.classify(table, err)
	}
	return body, nil
}

// write runs a single POST, PATCH or DELETE through the breaker.
func (c *Client) write(ctx context.Context, method, table, path string, payload any, prefer string) ([]byte, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, c.classify(table, err)
	}
	defer c.release()

	var body []byte
	_, err := c.cb.Execute(func() (any, error) {
		var err error
		body, err = c.doRequest(ctx, method, path, payload, prefer)
		return nil, err
	})
	if err != nil {
		return nil, c.classify(table, err)
	}
	return body, nil
}

func (c *Client) acquire(ctx context.Context) error {
	if c.bulkhead == nil {
		return nil
	}
	return c.bulkhead.Acquire(ctx)
}

func (c *Client) release() {
	if c.bulkhead != nil {
		c.bulkhead.Release()
	}
}

// classify maps transport failures to domain errors.
func (c *Client) classify(table string, err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: "supabase"}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: "supabase/" + table}
	case errors.Is(err, context.Canceled):
		return err
	}
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		return &domain.ErrConflict{Message: apiErr.Message()}
	}
	return &domain.ErrExternalService{Service: "supabase/" + table, Err: err}
}

// decodeRows unmarshals a PostgREST array response. An empty body is an empty list.
func decodeRows[T any](body []byte, what string) ([]T, error) {
	var rows []T
	if len(body) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", what, err)
	}
	return rows, nil
}
