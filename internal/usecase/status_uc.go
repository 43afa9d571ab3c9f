// File: internal/usecase/status_uc.go
package usecase

import (
	"context"
	"encoding/json"

	"storefront-payment-bridge/internal/domain/ports/adapter"
	"storefront-payment-bridge/internal/domain/ports/repository"
)

// Compile-time check
var _ StatusUseCase = (*statusUC)(nil)

// StatusUseCase answers on-demand gateway queries, the pull fallback for
// clients that missed the push notification.
type StatusUseCase interface {
	// OrderStatus returns the gateway's authoritative status payload for
	// an order, verbatim. domain.ErrNotFound when the order never reached
	// intake.
	OrderStatus(ctx context.Context, orderID string) (json.RawMessage, error)
	// WalletBalance returns the gateway account balance payload, verbatim.
	WalletBalance(ctx context.Context) (json.RawMessage, error)
}

type statusUC struct {
	store   repository.CorrelationStore
	gateway adapter.PaymentGateway
}

func NewStatusUseCase(store repository.CorrelationStore, gateway adapter.PaymentGateway) *statusUC {
	return &statusUC{store: store, gateway: gateway}
}

func (u *statusUC) OrderStatus(ctx context.Context, orderID string) (json.RawMessage, error) {
	ref, err := u.store.Ref(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return u.gateway.CheckStatus(ctx, ref)
}

func (u *statusUC) WalletBalance(ctx context.Context) (json.RawMessage, error) {
	return u.gateway.Balance(ctx)
}
