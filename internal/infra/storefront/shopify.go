// Package storefront holds the Shopify admin-API client used to capture
// transactions once the gateway reports a successful payment.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront-payment-bridge/internal/domain"
	"storefront-payment-bridge/internal/domain/ports/adapter"
	"storefront-payment-bridge/internal/infra/metrics"
)

// Compile-time check
var _ adapter.Storefront = (*ShopifyClient)(nil)

type ShopifyClient struct {
	baseURL     string
	accessToken string
	apiVersion  string
	client      *http.Client
}

// NewShopifyClient accepts a bare shop host ("x.myshopify.com", https
// assumed) or a full base URL with scheme.
func NewShopifyClient(host, accessToken, apiVersion string, timeout time.Duration) *ShopifyClient {
	base := host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return &ShopifyClient{
		baseURL:     strings.TrimRight(base, "/"),
		accessToken: accessToken,
		apiVersion:  apiVersion,
		client:      &http.Client{Timeout: timeout},
	}
}

type captureTransaction struct {
	Kind    string `json:"kind"`
	Amount  string `json:"amount"`
	Message string `json:"message,omitempty"`
}

type captureRequest struct {
	Transaction captureTransaction `json:"transaction"`
}

// CaptureTransaction implements adapter.Storefront. A 2xx response is
// success; a well-formed 4xx (already captured, unknown order, bad amount)
// is a logical refusal reported as domain.ErrUpstreamRejected; everything
// else is a transport failure.
func (c *ShopifyClient) CaptureTransaction(ctx context.Context, orderID, amount, message string) error {
	payload := captureRequest{Transaction: captureTransaction{
		Kind:    "capture",
		Amount:  amount,
		Message: message,
	}}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal capture: %w", err)
	}

	url := fmt.Sprintf("%s/admin/api/%s/orders/%s/transactions.json", c.baseURL, c.apiVersion, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.ObserveUpstream("storefront", "capture", start, err)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: capture order %s: status %d: %s",
			domain.ErrUpstreamRejected, orderID, resp.StatusCode, string(body))
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}
