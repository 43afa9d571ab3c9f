package adapter

import "context"

// Storefront is the outbound storefront-platform contract.
type Storefront interface {
	// CaptureTransaction marks the order's transaction as collected.
	// A well-formed refusal from the storefront (already captured, order
	// not found) is reported as domain.ErrUpstreamRejected so callers can
	// tell it from success and from transport failures.
	CaptureTransaction(ctx context.Context, orderID, amount, message string) error
}
