//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"

	"storefront-payment-bridge/internal/domain/ports/adapter"
)

// MockPaymentGateway counts calls atomically so concurrency tests can
// assert the exactly-one-call properties.
type MockPaymentGateway struct {
	adapter.PaymentGateway // Embed interface for forward compatibility

	CreateOrderCalls int64
	CreateOrderFunc  func(ctx context.Context, req adapter.CreateOrderRequest) (string, error)
	CheckStatusFunc  func(ctx context.Context, ref string) (json.RawMessage, error)
	BalanceFunc      func(ctx context.Context) (json.RawMessage, error)
}

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, req adapter.CreateOrderRequest) (string, error) {
	atomic.AddInt64(&m.CreateOrderCalls, 1)
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, req)
	}
	return "https://pay.example/" + req.Ref, nil
}

func (m *MockPaymentGateway) CheckStatus(ctx context.Context, ref string) (json.RawMessage, error) {
	if m.CheckStatusFunc != nil {
		return m.CheckStatusFunc(ctx, ref)
	}
	return json.RawMessage(`{"status":"PENDING"}`), nil
}

func (m *MockPaymentGateway) Balance(ctx context.Context) (json.RawMessage, error) {
	if m.BalanceFunc != nil {
		return m.BalanceFunc(ctx)
	}
	return json.RawMessage(`{"balance":"0.00"}`), nil
}

func (m *MockPaymentGateway) Calls() int64 { return atomic.LoadInt64(&m.CreateOrderCalls) }

// MockStorefront counts capture calls the same way.
type MockStorefront struct {
	CaptureCalls int64
	CaptureFunc  func(ctx context.Context, orderID, amount, message string) error
}

func (m *MockStorefront) CaptureTransaction(ctx context.Context, orderID, amount, message string) error {
	atomic.AddInt64(&m.CaptureCalls, 1)
	if m.CaptureFunc != nil {
		return m.CaptureFunc(ctx, orderID, amount, message)
	}
	return nil
}

func (m *MockStorefront) Calls() int64 { return atomic.LoadInt64(&m.CaptureCalls) }

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
