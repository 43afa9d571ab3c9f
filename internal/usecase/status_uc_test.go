//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"storefront-payment-bridge/internal/domain"
	"storefront-payment-bridge/internal/infra/store/memory"
	"storefront-payment-bridge/internal/usecase"
)

func TestStatusUseCase_OrderStatus(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCorrelationStore()
	gw := &MockPaymentGateway{}
	uc := usecase.NewStatusUseCase(store, gw)

	t.Run("unknown order is NotFound", func(t *testing.T) {
		if _, err := uc.OrderStatus(ctx, "9999"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("known order passes the gateway payload through verbatim", func(t *testing.T) {
		if err := store.Put(ctx, "1001", "LIK1001-a"); err != nil {
			t.Fatal(err)
		}
		want := `{"status":"SUCCESS","amount":"25.00","utr":"X1","extra":{"untouched":true}}`
		var gotRef string
		gw.CheckStatusFunc = func(_ context.Context, ref string) (json.RawMessage, error) {
			gotRef = ref
			return json.RawMessage(want), nil
		}

		payload, err := uc.OrderStatus(ctx, "1001")
		if err != nil {
			t.Fatal(err)
		}
		if gotRef != "LIK1001-a" {
			t.Errorf("queried ref %q", gotRef)
		}
		if string(payload) != want {
			t.Errorf("payload altered: %s", payload)
		}
	})
}

func TestStatusUseCase_WalletBalance(t *testing.T) {
	uc := usecase.NewStatusUseCase(memory.NewCorrelationStore(), &MockPaymentGateway{})
	payload, err := uc.WalletBalance(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != `{"balance":"0.00"}` {
		t.Errorf("payload = %s", payload)
	}
}
