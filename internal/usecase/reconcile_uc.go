// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"storefront-payment-bridge/internal/domain"
	"storefront-payment-bridge/internal/domain/model"
	"storefront-payment-bridge/internal/domain/ports/adapter"
	"storefront-payment-bridge/internal/domain/ports/repository"
	"storefront-payment-bridge/internal/infra/logging"
	"storefront-payment-bridge/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ReconcileOutcome describes how a payment-result event was settled.
type ReconcileOutcome string

const (
	OutcomeCaptured        ReconcileOutcome = "captured"
	OutcomeAlreadySettled  ReconcileOutcome = "duplicate"
	OutcomeFailed          ReconcileOutcome = "failed"
	OutcomeCaptureRejected ReconcileOutcome = "capture_rejected"
)

type ReconcileUseCase interface {
	// Handle applies one payment-result event to the original order.
	// domain.ErrNotFound means the ref resolves to nothing (forged or
	// stale). Any other error is transport-level and safe to redeliver:
	// the capture claim guarantees at most one storefront capture call.
	Handle(ctx context.Context, res *model.PaymentResult) (ReconcileOutcome, error)
}

type reconcileUC struct {
	store      repository.CorrelationStore
	storefront adapter.Storefront
	log        *zerolog.Logger
}

func NewReconcileUseCase(store repository.CorrelationStore, sf adapter.Storefront, logger *zerolog.Logger) *reconcileUC {
	return &reconcileUC{store: store, storefront: sf, log: logger}
}

func (u *reconcileUC) Handle(ctx context.Context, res *model.PaymentResult) (ReconcileOutcome, error) {
	if !res.Valid() {
		return "", fmt.Errorf("%w: payment result missing required fields", domain.ErrInvalidArgument)
	}

	// Resolve through the store's reverse mapping; a ref the store never
	// issued must not reach the storefront capture call.
	orderID, err := u.store.Resolve(ctx, res.OrderRef)
	if err != nil {
		return "", err
	}
	if parsed := model.OrderIDFromReference(res.OrderRef); parsed != "" && parsed != orderID {
		// Mapping and ref structure disagree; trust neither.
		return "", fmt.Errorf("%w: ref %q does not match order %q", domain.ErrNotFound, res.OrderRef, orderID)
	}
	ctx = logging.WithOrderID(logging.WithRef(ctx, res.OrderRef), orderID)
	log := logging.With(ctx, u.log)

	if !res.Succeeded() {
		err := u.store.MarkFailed(ctx, orderID)
		switch {
		case err == nil:
			log.Info().Str("status", res.Status).Msg("payment failed, order marked failed")
		case errors.Is(err, domain.ErrAlreadyFinalized):
			log.Debug().Msg("duplicate terminal result, nothing to do")
		default:
			return "", err
		}
		metrics.IncReconciliation(string(OutcomeFailed))
		return OutcomeFailed, nil
	}

	// Claim the capture so a duplicate delivery cannot double-capture.
	err = u.store.ClaimCapture(ctx, orderID)
	if errors.Is(err, domain.ErrAlreadyFinalized) {
		log.Debug().Msg("duplicate success result, order already finalized")
		metrics.IncReconciliation(string(OutcomeAlreadySettled))
		return OutcomeAlreadySettled, nil
	}
	if err != nil {
		return "", err
	}

	message := "payment collected via gateway, UTR " + res.UTR
	err = u.storefront.CaptureTransaction(ctx, orderID, res.Amount, message)
	if errors.Is(err, domain.ErrUpstreamRejected) {
		// Logical refusal from the storefront. Not success: release the
		// claim and surface the refusal to the caller.
		if ferr := u.store.FinishCapture(ctx, orderID, false); ferr != nil {
			log.Error().Err(ferr).Msg("releasing capture claim failed")
		}
		log.Warn().Err(err).Msg("storefront refused the capture")
		metrics.IncReconciliation(string(OutcomeCaptureRejected))
		return OutcomeCaptureRejected, nil
	}
	if err != nil {
		if ferr := u.store.FinishCapture(ctx, orderID, false); ferr != nil {
			log.Error().Err(ferr).Msg("releasing capture claim failed")
		}
		metrics.IncReconciliation("error")
		return "", err
	}

	if err := u.store.FinishCapture(ctx, orderID, true); err != nil {
		return "", err
	}
	log.Info().Str("utr", res.UTR).Msg("order captured")
	metrics.IncReconciliation(string(OutcomeCaptured))
	return OutcomeCaptured, nil
}
