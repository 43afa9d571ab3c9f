package sched

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"storefront-payment-bridge/internal/domain/model"
	"storefront-payment-bridge/internal/domain/ports/adapter"
	"storefront-payment-bridge/internal/domain/ports/repository"
	"storefront-payment-bridge/internal/usecase"
)

// PendingSweeper periodically scans for orders stuck awaiting a payment
// result and polls the gateway's status endpoint for them. This covers
// the cases where the push notification was lost or the process crashed
// mid-reconcile; terminal results are fed through the same reconciliation
// path the webhook uses, so all idempotency guards still apply.
type PendingSweeper struct {
	uc         usecase.ReconcileUseCase
	pending    repository.PendingLister
	gateway    adapter.PaymentGateway
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending order must be to poll
	log        *zerolog.Logger
}

func NewPendingSweeper(uc usecase.ReconcileUseCase, pending repository.PendingLister, gateway adapter.PaymentGateway, interval, staleAfter time.Duration, logger *zerolog.Logger) *PendingSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &PendingSweeper{uc: uc, pending: pending, gateway: gateway, interval: interval, staleAfter: staleAfter, log: logger}
}

func (w *PendingSweeper) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PendingSweeper) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	stale, err := w.pending.ListPendingOlderThan(ctx, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("pending-sweeper: list stale orders")
		return
	}
	for _, o := range stale {
		payload, err := w.gateway.CheckStatus(ctx, o.Ref)
		if err != nil {
			w.log.Warn().Err(err).Str("order_id", o.OrderID).Msg("pending-sweeper: status poll failed")
			continue
		}
		var st adapter.StatusResult
		if err := json.Unmarshal(payload, &st); err != nil || st.Status == "" {
			w.log.Warn().Str("order_id", o.OrderID).Msg("pending-sweeper: unrecognized status payload")
			continue
		}
		res := &model.PaymentResult{
			OrderRef: o.Ref,
			Status:   st.Status,
			Amount:   st.Amount,
			UTR:      st.UTR,
		}
		// The gateway may still report an in-progress payment; only
		// terminal answers are worth reconciling.
		if !res.Succeeded() && !terminalFailure(st.Status) {
			continue
		}
		outcome, err := w.uc.Handle(ctx, res)
		if err != nil {
			w.log.Warn().Err(err).Str("order_id", o.OrderID).Msg("pending-sweeper: reconcile failed")
			continue
		}
		w.log.Info().Str("order_id", o.OrderID).Str("outcome", string(outcome)).Msg("pending-sweeper: reconciled")
	}
}

// terminalFailure lists the gateway status values that mean the payment
// will never complete.
func terminalFailure(status string) bool {
	switch status {
	case "FAILED", "failed", "EXPIRED", "expired", "CANCELLED", "cancelled":
		return true
	}
	return false
}
