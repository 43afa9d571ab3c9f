package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrAlreadyExists    = errors.New("entity already exists")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrIntakeInFlight   = errors.New("payment link request already in flight")
	ErrAlreadyHandled   = errors.New("order intake already handled")
	ErrCaptureInFlight  = errors.New("capture already in flight")
	ErrAlreadyFinalized = errors.New("order already finalized")
	ErrUpstreamRejected = errors.New("upstream rejected the request")
)
