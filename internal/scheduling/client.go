// Package scheduling books advisor appointments with the external
// scheduling service. The client is wrapped in a circuit breaker and a
// client-side rate limit; booking failure degrades gracefully and never
// takes the core down with it.
package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

const defaultRetryCount = 3

// Client calls the advisor booking service and returns appointment
// contracts.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	retryCount int
	log        *logrus.Logger
}

// NewClient creates a new advisor scheduling client.
func NewClient(cfg domain.SchedulingConfig, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 5
	}
	retries := cfg.RetryCount
	if retries <= 0 {
		retries = defaultRetryCount
	}
	name := cfg.BreakerName
	if name == "" {
		name = "advisor-scheduling"
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Scheduling circuit breaker state changed")
		},
	})

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		breaker:    breaker,
		retryCount: retries,
		log:        logger,
	}
}

// bookingResponse is the wire shape returned by the booking service.
type bookingResponse struct {
	ID           string    `json:"id"`
	AdvisorID    string    `json:"advisor_id"`
	Channel      string    `json:"channel"`
	ScheduledFor time.Time `json:"scheduled_for"`
	Status       string    `json:"status"`
}

// Book requests an advisor appointment and returns the resulting contract.
func (c *Client) Book(ctx context.Context, req *domain.AppointmentRequest) (*domain.Appointment, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("booking advisor appointment: %w", domain.ErrSchedulingUnavailable)
	}
	if req.SessionID == "" {
		return nil, domain.NewValidationError("session_id", "session id is required", req.SessionID)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for scheduling rate limit: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling booking request: %w", err)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.bookWithRetry(ctx, body)
	})
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"session_id": req.SessionID,
			"error":      err,
		}).Warn("Advisor booking failed")
		return nil, fmt.Errorf("booking advisor appointment: %w", err)
	}

	appointment := result.(*domain.Appointment)
	if err := appointment.Validate(); err != nil {
		return nil, fmt.Errorf("booking service returned invalid appointment: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"session_id":     req.SessionID,
		"appointment_id": appointment.ID,
		"advisor_id":     appointment.AdvisorID,
		"status":         appointment.Status,
	}).Info("Advisor appointment booked")

	return appointment, nil
}

// bookWithRetry retries transient failures with linear backoff. 4xx
// responses are terminal; only transport errors and 5xx responses retry.
func (c *Client) bookWithRetry(ctx context.Context, body []byte) (*domain.Appointment, error) {
	var lastErr error
	for attempt := 0; attempt < c.retryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		appointment, retryable, err := c.bookOnce(ctx, body)
		if err == nil {
			return appointment, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", c.retryCount, lastErr)
}

func (c *Client) bookOnce(ctx context.Context, body []byte) (*domain.Appointment, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/appointments", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("creating booking request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, true, fmt.Errorf("calling booking service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, true, fmt.Errorf("booking service returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		io.Copy(io.Discard, resp.Body)
		return nil, false, fmt.Errorf("booking service rejected request with %d", resp.StatusCode)
	}

	var wire bookingResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, false, fmt.Errorf("decoding booking response: %w", err)
	}

	status := domain.AppointmentStatus(wire.Status)
	if !status.IsValid() {
		return nil, false, fmt.Errorf("booking service returned unknown status %q: %w", wire.Status, domain.ErrInvalidStatus)
	}

	return &domain.Appointment{
		ID:            wire.ID,
		SchemaVersion: "1",
		AdvisorID:     wire.AdvisorID,
		Channel:       wire.Channel,
		ScheduledFor:  wire.ScheduledFor,
		Status:        status,
		GeneratedAt:   time.Now().UTC(),
	}, false, nil
}
