// Package resultstore reads the paginated event result store, over HTTP or
// from an in-memory fixture.
package resultstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/logger"
	"github.com/okian/ringside/pkg/metrics"
)

const (
	defaultTimeout          = 10 * time.Second
	defaultRetries          = 2
	defaultBackoff          = 250 * time.Millisecond
	defaultRateLimit        = 20
	defaultFailureThreshold = 5
	defaultBreakerTimeout   = 30 * time.Second
	breakerName             = "result_store"
	maxErrorBody            = 512
)

// resultsDocument is the body of GET /events/{id}/results.
type resultsDocument struct {
	EventID string                `json:"event_id"`
	Results []model.FighterResult `json:"results"`
}

// Client talks to the result store HTTP API.
//
// Transport errors, 429 and 5xx are retried with linear backoff and counted
// by a circuit breaker; 404 maps to model.ErrNotFound. Exhausted retries and
// an open breaker surface as model.ErrTransientIO.
type Client struct {
	baseURL          string
	http             Doer
	limiter          *rate.Limiter
	breaker          *gobreaker.CircuitBreaker[[]byte]
	retries          int
	backoff          time.Duration
	timeout          time.Duration
	failureThreshold uint32
	breakerTimeout   time.Duration
	log              logger.Logger
}

// NewClient creates a client for the store at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:          strings.TrimSuffix(baseURL, "/"),
		limiter:          rate.NewLimiter(defaultRateLimit, 1),
		retries:          defaultRetries,
		backoff:          defaultBackoff,
		timeout:          defaultTimeout,
		failureThreshold: defaultFailureThreshold,
		breakerTimeout:   defaultBreakerTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	if c.log == nil {
		c.log = logger.NewNop()
	}

	threshold := c.failureThreshold
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    breakerName,
		Timeout: c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, errRetryable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerState(name, int(to))
			c.log.Warn(context.Background(), "circuit breaker state changed",
				logger.String("name", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
	metrics.UpdateBreakerState(breakerName, int(gobreaker.StateClosed))
	return c
}

// ListEvents fetches one catalog page.
func (c *Client) ListEvents(ctx context.Context, cursor string, pageSize int) (model.EventPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(pageSize))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	body, err := c.get(ctx, "/events", q)
	if err != nil {
		return model.EventPage{}, err
	}
	var page model.EventPage
	if err := json.Unmarshal(body, &page); err != nil {
		return model.EventPage{}, fmt.Errorf("decode event page: %w", err)
	}
	return page, nil
}

// GetEvent fetches one event's metadata.
func (c *Client) GetEvent(ctx context.Context, eventID string) (model.Event, error) {
	body, err := c.get(ctx, "/events/"+url.PathEscape(eventID), nil)
	if err != nil {
		return model.Event{}, err
	}
	var ev model.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return model.Event{}, fmt.Errorf("decode event %s: %w", eventID, err)
	}
	return ev, nil
}

// Results fetches an event's result document.
func (c *Client) Results(ctx context.Context, eventID string) ([]model.FighterResult, error) {
	body, err := c.get(ctx, "/events/"+url.PathEscape(eventID)+"/results", nil)
	if err != nil {
		return nil, err
	}
	var doc resultsDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode results of %s: %w", eventID, err)
	}
	return doc.Results, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * c.backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		body, err := c.breaker.Execute(func() ([]byte, error) {
			return c.attempt(ctx, path, query)
		})
		switch {
		case err == nil:
			return body, nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return nil, fmt.Errorf("%w: %s: %w", model.ErrTransientIO, path, err)
		case !errors.Is(err, errRetryable):
			return nil, err
		}
		lastErr = err
		c.log.Debug(ctx, "result store request failed, retrying",
			logger.String("path", path),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}
	return nil, fmt.Errorf("%w: %s after %d attempts: %w", model.ErrTransientIO, path, c.retries+1, lastErr)
}

func (c *Client) attempt(ctx context.Context, path string, query url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errRetryable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: read response: %w", errRetryable, err)
		}
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", path, model.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d: %s", errRetryable, resp.StatusCode, readSnippet(resp.Body))
	default:
		return nil, fmt.Errorf("%w %d from %s: %s", ErrUnexpectedStatus, resp.StatusCode, path, readSnippet(resp.Body))
	}
}

func readSnippet(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(body))
}
