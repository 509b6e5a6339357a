// Package gateway talks to the external messaging system that delivers bulk
// messages and later reports delivery status to the webhook.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/axellelanca/scanlead/internal/metrics"
	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// MessageType is the webhook_data.type sent for bulk dispatches.
const MessageType = "bulk_message"

// Envelope is the body posted to the gateway.
type Envelope struct {
	WebhookURL  string      `json:"webhook_url"`
	WebhookData WebhookData `json:"webhook_data"`
}

// WebhookData carries the message and the correlation data the gateway echoes
// back on the delivery callback.
type WebhookData struct {
	Type          string    `json:"type"`
	Content       string    `json:"content"`
	FilterType    string    `json:"filter_type"`
	FilterValue   string    `json:"filter_value"`
	SendOnlyToNew bool      `json:"send_only_to_new"`
	DeliveryCode  string    `json:"delivery_code"`
	CallbackURL   string    `json:"callback_url"`
	Timestamp     time.Time `json:"timestamp"`
}

// Gateway submits a dispatch. A nil error means the gateway accepted it.
type Gateway interface {
	Submit(ctx context.Context, url string, env Envelope) error
}

// RejectedError is returned when the gateway answered with a non-2xx status.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Body)
}

// HTTPGateway posts envelopes as JSON behind a circuit breaker.
type HTTPGateway struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
	log     *zap.Logger
}

// NewHTTPGateway creates a client with the given timeout. The breaker opens
// after failureThreshold consecutive failures and probes again after 30s.
func NewHTTPGateway(timeout time.Duration, failureThreshold uint32, log *zap.Logger) *HTTPGateway {
	if failureThreshold == 0 {
		failureThreshold = 5
	}
	settings := gobreaker.Settings{
		Name:        "gateway",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("gateway circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &HTTPGateway{
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
		log:     log,
	}
}

// State reports the breaker state for health output.
func (g *HTTPGateway) State() string {
	return g.breaker.State().String()
}

// Submit posts env to url and waits for the gateway's verdict.
func (g *HTTPGateway) Submit(ctx context.Context, url string, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal gateway payload: %w", err)
	}

	_, err = g.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, g.post(ctx, url, body)
	})
	return err
}

func (g *HTTPGateway) post(ctx context.Context, url string, body []byte) error {
	start := time.Now()
	defer func() { metrics.GatewayRequestDuration.Observe(time.Since(start).Seconds()) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "scanlead-dispatch/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &RejectedError{StatusCode: resp.StatusCode, Body: string(respBody)}
}
