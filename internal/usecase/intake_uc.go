// File: internal/usecase/intake_uc.go
package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"storefront-payment-bridge/internal/domain"
	"storefront-payment-bridge/internal/domain/model"
	"storefront-payment-bridge/internal/domain/ports/adapter"
	"storefront-payment-bridge/internal/domain/ports/repository"
	"storefront-payment-bridge/internal/infra/logging"
	"storefront-payment-bridge/internal/infra/metrics"
)

// Compile-time check
var _ IntakeUseCase = (*intakeUC)(nil)

// defaultRemark is sent to the gateway when the order carries no note.
const defaultRemark = "storefront order payment"

// IntakeOutcome describes how an order-creation event was handled. Every
// outcome except a returned error means "handled, sender must not retry".
type IntakeOutcome string

const (
	OutcomeLinkReady IntakeOutcome = "link_ready"
	OutcomeIgnored   IntakeOutcome = "ignored"
	OutcomeNoPhone   IntakeOutcome = "no_phone"
	OutcomeDuplicate IntakeOutcome = "duplicate"
	OutcomeRejected  IntakeOutcome = "rejected"
)

type IntakeUseCase interface {
	// Handle processes one order-creation event. An error return signals a
	// transport-level failure the sender should redeliver; the store's
	// link-state claims keep such redeliveries side-effect free.
	Handle(ctx context.Context, ev *model.OrderEvent) (IntakeOutcome, error)
	// TakeLink hands the stored payment link to the client at most once;
	// returns "" once consumed or when the order is unknown.
	TakeLink(ctx context.Context, orderID string) (string, error)
}

type intakeUC struct {
	store   repository.CorrelationStore
	gateway adapter.PaymentGateway
	log     *zerolog.Logger
}

func NewIntakeUseCase(store repository.CorrelationStore, gateway adapter.PaymentGateway, logger *zerolog.Logger) *intakeUC {
	return &intakeUC{store: store, gateway: gateway, log: logger}
}

func (u *intakeUC) Handle(ctx context.Context, ev *model.OrderEvent) (IntakeOutcome, error) {
	orderID := ev.OrderID()
	ctx = logging.WithOrderID(ctx, orderID)
	log := logging.With(ctx, u.log)

	if !ev.AwaitingPayment() {
		log.Debug().Str("financial_status", ev.FinancialStatus).Msg("order not awaiting payment, ignoring")
		metrics.IncIntake(string(OutcomeIgnored))
		return OutcomeIgnored, nil
	}
	phone := ev.Phone()
	if phone == "" {
		log.Info().Msg("no contact phone on order, cannot open a payment channel")
		metrics.IncIntake(string(OutcomeNoPhone))
		return OutcomeNoPhone, nil
	}

	// Register the ref before any gateway call; a duplicate Put is the
	// idempotency guard against double link creation.
	ref := model.NewReference(orderID)
	err := u.store.Put(ctx, orderID, ref)
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Either a duplicate delivery of a settled order, or a redelivery
		// after an earlier transport failure. Only the latter may proceed,
		// and it must reuse the original ref.
		ref, err = u.store.ClaimIntake(ctx, orderID)
		if errors.Is(err, domain.ErrAlreadyHandled) {
			log.Debug().Msg("duplicate order event, already handled")
			metrics.IncIntake(string(OutcomeDuplicate))
			return OutcomeDuplicate, nil
		}
		if err != nil {
			return "", err
		}
		log.Info().Str("ref", ref).Msg("resuming intake after earlier transport failure")
	} else if err != nil {
		return "", err
	}
	ctx = logging.WithRef(ctx, ref)
	log = logging.With(ctx, u.log)

	remark := ev.Note
	if remark == "" {
		remark = defaultRemark
	}
	link, err := u.gateway.CreateOrder(ctx, adapter.CreateOrderRequest{
		Ref:         ref,
		Phone:       phone,
		Amount:      ev.TotalPrice,
		RedirectURL: ev.OrderStatusURL,
		Remark:      remark,
	})
	if errors.Is(err, domain.ErrUpstreamRejected) {
		// Gateway refused the order outright. Terminal: the storefront
		// redelivers identical data, so retrying cannot change the answer.
		log.Warn().Err(err).Msg("gateway rejected order creation")
		if rerr := u.store.RejectLink(ctx, orderID); rerr != nil {
			log.Error().Err(rerr).Msg("recording gateway rejection failed")
		}
		metrics.IncIntake(string(OutcomeRejected))
		return OutcomeRejected, nil
	}
	if err != nil {
		// Transport failure: release the claim so the sender's retry can
		// repeat the gateway call with the same ref.
		if rerr := u.store.ReleaseIntake(ctx, orderID); rerr != nil {
			log.Error().Err(rerr).Msg("releasing intake claim failed")
		}
		metrics.IncIntake("error")
		return "", err
	}

	if err := u.store.StoreLink(ctx, orderID, link); err != nil {
		return "", err
	}
	log.Info().Msg("payment link stored")
	metrics.IncIntake(string(OutcomeLinkReady))
	return OutcomeLinkReady, nil
}

func (u *intakeUC) TakeLink(ctx context.Context, orderID string) (string, error) {
	link, err := u.store.TakeLink(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.IncLinkServed("absent")
		return "", nil
	}
	if err != nil {
		return "", err
	}
	metrics.IncLinkServed("served")
	return link, nil
}
