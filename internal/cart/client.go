// Package cart delivers finalized customizations to the external cart
// platform over its storefront add-to-cart endpoint.
package cart

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

	"go.uber.org/zap"

	"github.com/stitchpress/api/internal/services"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultQuantity = 1
	maxDrainBytes   = 4 << 10
)

// ErrEndpointMissing indicates the client was constructed without a target endpoint.
var ErrEndpointMissing = errors.New("cart: endpoint is required")

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig configures the HTTP cart client.
type ClientConfig struct {
	Endpoint string
	Timeout  time.Duration
	Quantity int
	HTTP     httpDoer
	Logger   *zap.Logger
}

// Client posts add-to-cart payloads to the cart platform. Any 2xx response
// counts as accepted; everything else is a transport failure.
type Client struct {
	endpoint string
	quantity int
	http     httpDoer
	logger   *zap.Logger
}

var _ services.CartDispatcher = (*Client)(nil)

// NewClient constructs a cart client from the supplied configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, ErrEndpointMissing
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("cart: endpoint must be an absolute http(s) url")
	}

	quantity := cfg.Quantity
	if quantity <= 0 {
		quantity = defaultQuantity
	}
	doer := cfg.HTTP
	if doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		doer = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		endpoint: parsed.String(),
		quantity: quantity,
		http:     doer,
		logger:   logger,
	}, nil
}

type addPayload struct {
	ID         string            `json:"id"`
	Quantity   int               `json:"quantity"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Dispatch posts the handoff to the cart endpoint.
func (c *Client) Dispatch(ctx context.Context, handoff services.CartHandoff) error {
	if c == nil || c.http == nil {
		return errors.New("cart: client not initialised")
	}
	variantID := strings.TrimSpace(handoff.VariantID)
	if variantID == "" {
		return errors.New("cart: variant id is required")
	}

	quantity := handoff.Quantity
	if quantity <= 0 {
		quantity = c.quantity
	}

	body, err := json.Marshal(addPayload{
		ID:         variantID,
		Quantity:   quantity,
		Properties: handoff.Properties,
	})
	if err != nil {
		return fmt.Errorf("cart: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("cart: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cart: post add-to-cart: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("cart: add-to-cart rejected with status %d", resp.StatusCode)
	}

	c.logger.Debug("cart add accepted",
		zap.String("customization_id", handoff.CustomizationID),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}

// LoggingDispatcher records handoffs without contacting any cart platform.
// Used when no endpoint is configured.
type LoggingDispatcher struct {
	logger *zap.Logger
}

var _ services.CartDispatcher = (*LoggingDispatcher)(nil)

// NewLoggingDispatcher constructs a dispatcher that only logs.
func NewLoggingDispatcher(logger *zap.Logger) *LoggingDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingDispatcher{logger: logger}
}

// Dispatch logs the handoff and reports success.
func (d *LoggingDispatcher) Dispatch(_ context.Context, handoff services.CartHandoff) error {
	d.logger.Info("cart handoff skipped, no endpoint configured",
		zap.String("customization_id", handoff.CustomizationID),
		zap.String("variant_id", handoff.VariantID),
	)
	return nil
}
