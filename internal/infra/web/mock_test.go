//go:build !integration

package web

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"

	"storefront-payment-bridge/internal/domain/ports/adapter"
)

// --- Mock outbound adapters ---

type mockGateway struct {
	CreateOrderCalls int64
	CreateOrderFunc  func(ctx context.Context, req adapter.CreateOrderRequest) (string, error)
	CheckStatusFunc  func(ctx context.Context, ref string) (json.RawMessage, error)
}

func (m *mockGateway) CreateOrder(ctx context.Context, req adapter.CreateOrderRequest) (string, error) {
	atomic.AddInt64(&m.CreateOrderCalls, 1)
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, req)
	}
	return "https://pay.example/" + req.Ref, nil
}

func (m *mockGateway) CheckStatus(ctx context.Context, ref string) (json.RawMessage, error) {
	if m.CheckStatusFunc != nil {
		return m.CheckStatusFunc(ctx, ref)
	}
	return json.RawMessage(`{"status":"PENDING"}`), nil
}

func (m *mockGateway) Balance(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"balance":"1000.00"}`), nil
}

type mockStorefront struct {
	CaptureCalls int64
	CaptureFunc  func(ctx context.Context, orderID, amount, message string) error
}

func (m *mockStorefront) CaptureTransaction(ctx context.Context, orderID, amount, message string) error {
	atomic.AddInt64(&m.CaptureCalls, 1)
	if m.CaptureFunc != nil {
		return m.CaptureFunc(ctx, orderID, amount, message)
	}
	return nil
}

// --- Signing helpers ---

func signStorefront(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signGateway(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
