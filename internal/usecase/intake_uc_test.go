//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"storefront-payment-bridge/internal/domain"
	"storefront-payment-bridge/internal/domain/model"
	"storefront-payment-bridge/internal/domain/ports/adapter"
	"storefront-payment-bridge/internal/infra/store/memory"
	"storefront-payment-bridge/internal/usecase"
)

func orderEvent(id, status, phone, price string) *model.OrderEvent {
	raw := fmt.Sprintf(`{"id": %s, "financial_status": %q, "total_price": %q`, id, status, price)
	if phone != "" {
		raw += fmt.Sprintf(`, "billing_address": {"phone": %q}`, phone)
	}
	raw += `}`
	var ev model.OrderEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		panic(err)
	}
	return &ev
}

func TestIntakeUseCase_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("should create a payment link for an awaiting-payment order", func(t *testing.T) {
		// --- Arrange ---
		store := memory.NewCorrelationStore()
		gw := &MockPaymentGateway{}
		uc := usecase.NewIntakeUseCase(store, gw, newTestLogger())

		// --- Act ---
		outcome, err := uc.Handle(ctx, orderEvent("1001", "pending", "+10000000000", "25.00"))

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if outcome != usecase.OutcomeLinkReady {
			t.Fatalf("outcome = %s", outcome)
		}
		if gw.Calls() != 1 {
			t.Fatalf("gateway called %d times", gw.Calls())
		}
		ref, err := store.Ref(ctx, "1001")
		if err != nil {
			t.Fatalf("ref not stored: %v", err)
		}
		if !strings.HasPrefix(ref, "LIK1001-") {
			t.Errorf("unexpected ref %s", ref)
		}
		link, err := uc.TakeLink(ctx, "1001")
		if err != nil || link == "" {
			t.Fatalf("link not stored: %q %v", link, err)
		}
	})

	t.Run("should ignore orders not awaiting payment", func(t *testing.T) {
		store := memory.NewCorrelationStore()
		gw := &MockPaymentGateway{}
		uc := usecase.NewIntakeUseCase(store, gw, newTestLogger())

		outcome, err := uc.Handle(ctx, orderEvent("1001", "paid", "+10000000000", "25.00"))
		if err != nil || outcome != usecase.OutcomeIgnored {
			t.Fatalf("outcome=%s err=%v", outcome, err)
		}
		if gw.Calls() != 0 {
			t.Fatal("gateway should not be called")
		}
	})

	t.Run("should skip orders without a resolvable phone", func(t *testing.T) {
		store := memory.NewCorrelationStore()
		gw := &MockPaymentGateway{}
		uc := usecase.NewIntakeUseCase(store, gw, newTestLogger())

		outcome, err := uc.Handle(ctx, orderEvent("1001", "pending", "", "25.00"))
		if err != nil || outcome != usecase.OutcomeNoPhone {
			t.Fatalf("outcome=%s err=%v", outcome, err)
		}
		if gw.Calls() != 0 {
			t.Fatal("gateway should not be called")
		}
	})

	t.Run("duplicate delivery after success is a no-op", func(t *testing.T) {
		store := memory.NewCorrelationStore()
		gw := &MockPaymentGateway{}
		uc := usecase.NewIntakeUseCase(store, gw, newTestLogger())

		ev := orderEvent("1001", "pending", "+10000000000", "25.00")
		if _, err := uc.Handle(ctx, ev); err != nil {
			t.Fatal(err)
		}
		outcome, err := uc.Handle(ctx, ev)
		if err != nil || outcome != usecase.OutcomeDuplicate {
			t.Fatalf("outcome=%s err=%v", outcome, err)
		}
		if gw.Calls() != 1 {
			t.Fatalf("gateway called %d times for one order", gw.Calls())
		}
	})

	t.Run("transport failure is retryable with the same ref", func(t *testing.T) {
		store := memory.NewCorrelationStore()
		gw := &MockPaymentGateway{}
		fail := true
		var refs []string
		gw.CreateOrderFunc = func(_ context.Context, req adapter.CreateOrderRequest) (string, error) {
			refs = append(refs, req.Ref)
			if fail {
				return "", errors.New("connection reset")
			}
			return "https://pay.example/" + req.Ref, nil
		}
		uc := usecase.NewIntakeUseCase(store, gw, newTestLogger())
		ev := orderEvent("1001", "pending", "+10000000000", "25.00")

		if _, err := uc.Handle(ctx, ev); err == nil {
			t.Fatal("expected a transport error")
		}

		fail = false
		outcome, err := uc.Handle(ctx, ev)
		if err != nil || outcome != usecase.OutcomeLinkReady {
			t.Fatalf("retry: outcome=%s err=%v", outcome, err)
		}
		if len(refs) != 2 || refs[0] != refs[1] {
			t.Fatalf("retry must reuse the original ref, saw %v", refs)
		}
	})

	t.Run("gateway rejection is terminal and not retried", func(t *testing.T) {
		store := memory.NewCorrelationStore()
		gw := &MockPaymentGateway{}
		gw.CreateOrderFunc = func(context.Context, adapter.CreateOrderRequest) (string, error) {
			return "", fmt.Errorf("%w: insufficient merchant quota", domain.ErrUpstreamRejected)
		}
		uc := usecase.NewIntakeUseCase(store, gw, newTestLogger())
		ev := orderEvent("1001", "pending", "+10000000000", "25.00")

		outcome, err := uc.Handle(ctx, ev)
		if err != nil || outcome != usecase.OutcomeRejected {
			t.Fatalf("outcome=%s err=%v", outcome, err)
		}
		outcome, err = uc.Handle(ctx, ev)
		if err != nil || outcome != usecase.OutcomeDuplicate {
			t.Fatalf("redelivery: outcome=%s err=%v", outcome, err)
		}
		if gw.Calls() != 1 {
			t.Fatalf("gateway called %d times after terminal rejection", gw.Calls())
		}
	})

	t.Run("concurrent duplicate delivery makes exactly one gateway call", func(t *testing.T) {
		store := memory.NewCorrelationStore()
		gw := &MockPaymentGateway{}
		uc := usecase.NewIntakeUseCase(store, gw, newTestLogger())
		ev := orderEvent("1001", "pending", "+10000000000", "25.00")

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = uc.Handle(ctx, ev)
			}()
		}
		wg.Wait()
		if gw.Calls() != 1 {
			t.Fatalf("gateway called %d times under concurrent duplicates", gw.Calls())
		}
	})
}

func TestIntakeUseCase_TakeLink(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCorrelationStore()
	gw := &MockPaymentGateway{}
	uc := usecase.NewIntakeUseCase(store, gw, newTestLogger())

	if _, err := uc.Handle(ctx, orderEvent("1001", "pending", "+10000000000", "25.00")); err != nil {
		t.Fatal(err)
	}

	first, err := uc.TakeLink(ctx, "1001")
	if err != nil || first == "" {
		t.Fatalf("first take: %q %v", first, err)
	}
	second, err := uc.TakeLink(ctx, "1001")
	if err != nil || second != "" {
		t.Fatalf("second take should be empty: %q %v", second, err)
	}
	unknown, err := uc.TakeLink(ctx, "9999")
	if err != nil || unknown != "" {
		t.Fatalf("unknown order should be empty: %q %v", unknown, err)
	}
}
