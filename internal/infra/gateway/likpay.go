// Package gateway holds the LikPay payment-provider client. The provider
// speaks form-encoded requests and replies with a JSON envelope
// {"status", "message", "data"}; a well-formed non-success status is a
// business refusal, anything else is a transport failure.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront-payment-bridge/internal/domain"
	"storefront-payment-bridge/internal/domain/ports/adapter"
	"storefront-payment-bridge/internal/infra/metrics"
)

// Compile-time check
var _ adapter.PaymentGateway = (*LikPayClient)(nil)

type LikPayClient struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

// NewLikPayClient creates a LikPay client with a bounded request timeout so
// a slow provider cannot pin inbound request capacity.
func NewLikPayClient(baseURL, accessToken string, timeout time.Duration) *LikPayClient {
	return &LikPayClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		client:      &http.Client{Timeout: timeout},
	}
}

// createOrderResponse is the provider's create-order envelope.
type createOrderResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		PaymentLink string `json:"payment_link"`
	} `json:"data"`
}

func (g *LikPayClient) postForm(ctx context.Context, op, path string, form url.Values) ([]byte, error) {
	form.Set("token", g.accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	metrics.ObserveUpstream("gateway", op, start, err)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// CreateOrder implements adapter.PaymentGateway.
func (g *LikPayClient) CreateOrder(ctx context.Context, req adapter.CreateOrderRequest) (string, error) {
	form := url.Values{}
	form.Set("order_id", req.Ref)
	form.Set("phone", req.Phone)
	form.Set("amount", req.Amount)
	form.Set("redirect_url", req.RedirectURL)
	form.Set("remark", req.Remark)

	body, err := g.postForm(ctx, "create_order", "/api/create-order", form)
	if err != nil {
		return "", err
	}

	var response createOrderResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("unmarshal response: %w, body: %s", err, string(body))
	}

	if !strings.EqualFold(response.Status, "success") {
		return "", fmt.Errorf("%w: %s", domain.ErrUpstreamRejected, response.Message)
	}
	if response.Data.PaymentLink == "" {
		return "", fmt.Errorf("success response without payment_link, body: %s", string(body))
	}
	return response.Data.PaymentLink, nil
}

// CheckStatus implements adapter.PaymentGateway. The payload is returned
// verbatim so status-query clients see exactly what the provider said.
func (g *LikPayClient) CheckStatus(ctx context.Context, ref string) (json.RawMessage, error) {
	form := url.Values{}
	form.Set("order_id", ref)

	body, err := g.postForm(ctx, "check_status", "/api/check-status", form)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("invalid status payload: %s", string(body))
	}
	return json.RawMessage(body), nil
}

// Balance implements adapter.PaymentGateway.
func (g *LikPayClient) Balance(ctx context.Context) (json.RawMessage, error) {
	body, err := g.postForm(ctx, "balance", "/api/balance", url.Values{})
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("invalid balance payload: %s", string(body))
	}
	return json.RawMessage(body), nil
}
