package adapter

import (
	"context"
	"encoding/json"
)

// CreateOrderRequest carries everything the gateway needs to mint a hosted
// payment link. Ref becomes the gateway's own order identifier and comes
// back verbatim in the payment-result notification. Amount stays a string
// end to end to preserve the storefront's decimal representation.
type CreateOrderRequest struct {
	Ref         string
	Phone       string
	Amount      string
	RedirectURL string
	Remark      string
}

// StatusResult is the subset of the gateway's status payload the fallback
// sweeper acts on; handlers pass the raw payload through untouched.
type StatusResult struct {
	Status string `json:"status"`
	Amount string `json:"amount"`
	UTR    string `json:"utr"`
}

// PaymentGateway is the outbound payment-provider contract.
type PaymentGateway interface {
	// CreateOrder requests a hosted payment link. A well-formed business
	// refusal is reported as domain.ErrUpstreamRejected; any other error
	// is a transport failure and safe to retry with the same ref.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (link string, err error)

	// CheckStatus returns the gateway's authoritative status payload for
	// a ref, verbatim.
	CheckStatus(ctx context.Context, ref string) (json.RawMessage, error)

	// Balance returns the gateway account balance payload, verbatim.
	Balance(ctx context.Context) (json.RawMessage, error)
}
