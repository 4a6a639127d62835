package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Mars1836/drug-recognition/internal/entity"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

const detectPath = "/api/v1/detect-drug"

// maxResponseBytes bounds how much of a backend reply is buffered.
const maxResponseBytes = 16 << 20

type BackendConfig struct {
	BaseURL string
	// Timeout of zero leaves requests unbounded.
	Timeout time.Duration

	BreakerEnabled             bool
	BreakerConsecutiveFailures uint32
	BreakerOpenTimeout         time.Duration
}

// Backend submits one encoded image and returns the raw JSON object it answers with.
type Backend interface {
	Detect(ctx context.Context, req entity.DetectRequest) (json.RawMessage, error)
}

type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("detection backend status: %s", e.Status)
	}
	return fmt.Sprintf("detection backend status: %s: %s", e.Status, strings.TrimSpace(e.Body))
}

type BackendClient struct {
	endpoint   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[json.RawMessage]
}

func NewBackendClient(cfg BackendConfig, httpClient *http.Client) *BackendClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &BackendClient{
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + detectPath,
		httpClient: httpClient,
	}

	if cfg.BreakerEnabled {
		failures := cfg.BreakerConsecutiveFailures
		if failures == 0 {
			failures = 5
		}
		c.breaker = gobreaker.NewCircuitBreaker[json.RawMessage](gobreaker.Settings{
			Name:        "detect-drug",
			MaxRequests: 1,
			Timeout:     cfg.BreakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				if err == nil {
					return true
				}
				// the caller gave up; that says nothing about the backend
				if errors.Is(err, context.Canceled) {
					return true
				}
				var statusErr *StatusError
				if errors.As(err, &statusErr) {
					return statusErr.StatusCode < http.StatusInternalServerError
				}
				return false
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logrus.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("circuit breaker state change")
			},
		})
	}

	return c
}

func (c *BackendClient) Endpoint() string {
	return c.endpoint
}

func (c *BackendClient) Detect(ctx context.Context, req entity.DetectRequest) (json.RawMessage, error) {
	if c.breaker == nil {
		return c.detect(ctx, req)
	}
	return c.breaker.Execute(func() (json.RawMessage, error) {
		return c.detect(ctx, req)
	})
}

func (c *BackendClient) detect(ctx context.Context, req entity.DetectRequest) (json.RawMessage, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal detect request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create detect request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send detect request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read detect response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(body, &object); err != nil {
		return nil, fmt.Errorf("decode detect response: %w", err)
	}
	if object == nil {
		return nil, fmt.Errorf("decode detect response: expected a JSON object")
	}
	return json.RawMessage(body), nil
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
