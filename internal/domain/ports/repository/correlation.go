package repository

import (
	"context"
	"time"

	"storefront-payment-bridge/internal/domain/model"
)

// CorrelationStore is the keyed state shared by intake, reconciliation and
// status queries. Implementations must serialize operations touching the
// same order while keeping distinct orders independent; every transition
// method is an atomic check-and-set against the current state so that
// duplicate deliveries and concurrent retries cannot double a side effect.
type CorrelationStore interface {
	// Put registers a brand-new order with its ref, order status pending
	// and link state requesting. Returns domain.ErrAlreadyExists when the
	// order already has a mapping; the ref must then never be regenerated.
	Put(ctx context.Context, orderID, ref string) error

	// ClaimIntake re-claims an order whose earlier gateway call failed at
	// the transport level (link state pending -> requesting) and returns
	// the stored ref. Returns domain.ErrIntakeInFlight while another
	// delivery holds the claim and domain.ErrAlreadyHandled when the link
	// was already stored, consumed or rejected.
	ClaimIntake(ctx context.Context, orderID string) (string, error)

	// ReleaseIntake demotes requesting -> pending after a transport
	// failure so a redelivered event can retry.
	ReleaseIntake(ctx context.Context, orderID string) error

	// StoreLink records the gateway's payment link (requesting -> stored).
	StoreLink(ctx context.Context, orderID, link string) error

	// RejectLink marks the gateway's business refusal (requesting ->
	// rejected). Terminal for the link half of the record.
	RejectLink(ctx context.Context, orderID string) error

	// TakeLink returns the stored link and consumes it, at most once.
	// domain.ErrNotFound when the order is unknown or no link is held.
	TakeLink(ctx context.Context, orderID string) (string, error)

	// Resolve maps a gateway ref back to the orderID.
	// domain.ErrNotFound for forged or stale refs.
	Resolve(ctx context.Context, ref string) (string, error)

	// Ref returns the ref assigned to an order, domain.ErrNotFound when
	// the order never reached intake.
	Ref(ctx context.Context, orderID string) (string, error)

	// ClaimCapture transitions pending -> capturing so that exactly one
	// delivery performs the storefront capture call. Returns
	// domain.ErrCaptureInFlight while another delivery holds the claim and
	// domain.ErrAlreadyFinalized once the order is captured or failed.
	ClaimCapture(ctx context.Context, orderID string) error

	// FinishCapture settles a held claim: capturing -> captured when the
	// storefront call succeeded, back to pending otherwise.
	FinishCapture(ctx context.Context, orderID string, captured bool) error

	// MarkFailed records a terminal non-success payment result
	// (pending -> failed). domain.ErrAlreadyFinalized when terminal.
	MarkFailed(ctx context.Context, orderID string) error
}

// PendingLister enumerates orders stuck awaiting a payment result, for the
// fallback sweeper. Optional: backends that cannot enumerate cheaply just
// don't implement it.
type PendingLister interface {
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.Order, error)
}
