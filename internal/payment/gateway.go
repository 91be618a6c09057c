package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Gateway is the outbound half of the payment collaborator. The engine asks
// for a payment and later receives paid/failed/expired callbacks over the
// webhook; no synchronous payment logic lives here.
type Gateway interface {
	RequestPayment(ctx context.Context, requestID string, amountCents int64) error
}

// HTTPGateway posts payment requests to the configured provider.
type HTTPGateway struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewHTTPGateway builds a gateway against the provider URL.
func NewHTTPGateway(url string, timeout time.Duration, logger *zap.Logger) *HTTPGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPGateway{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type paymentRequestBody struct {
	RequestID   string `json:"request_id"`
	AmountCents int64  `json:"amount_cents"`
}

// RequestPayment implements Gateway.
func (g *HTTPGateway) RequestPayment(ctx context.Context, requestID string, amountCents int64) error {
	body, err := json.Marshal(paymentRequestBody{RequestID: requestID, AmountCents: amountCents})
	if err != nil {
		return fmt.Errorf("marshal payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send payment request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("payment provider responded %d", resp.StatusCode)
	}

	g.logger.Info("payment requested",
		zap.String("request_id", requestID),
		zap.Int64("amount_cents", amountCents),
	)
	return nil
}

// LogGateway stands in when no provider is configured; it records the intent
// and succeeds, leaving the request awaiting a manual callback.
type LogGateway struct {
	logger *zap.Logger
}

// NewLogGateway builds the logging stand-in.
func NewLogGateway(logger *zap.Logger) *LogGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogGateway{logger: logger}
}

// RequestPayment implements Gateway.
func (g *LogGateway) RequestPayment(_ context.Context, requestID string, amountCents int64) error {
	g.logger.Info("payment request recorded (no provider configured)",
		zap.String("request_id", requestID),
		zap.Int64("amount_cents", amountCents),
	)
	return nil
}
