// Package memory holds the default, process-lifetime correlation store.
// Each order owns its own mutex so concurrent duplicate deliveries of the
// same order serialize while unrelated orders never block one another.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront-payment-bridge/internal/domain"
	"storefront-payment-bridge/internal/domain/model"
	"storefront-payment-bridge/internal/domain/ports/repository"
)

// Compile-time checks
var (
	_ repository.CorrelationStore = (*CorrelationStore)(nil)
	_ repository.PendingLister    = (*CorrelationStore)(nil)
)

type record struct {
	mu sync.Mutex
	model.Order
}

type CorrelationStore struct {
	mu     sync.RWMutex
	orders map[string]*record // orderID -> record
	refs   map[string]string  // ref -> orderID
}

func NewCorrelationStore() *CorrelationStore {
	return &CorrelationStore{
		orders: make(map[string]*record),
		refs:   make(map[string]string),
	}
}

func (s *CorrelationStore) Put(_ context.Context, orderID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[orderID]; ok {
		return domain.ErrAlreadyExists
	}
	s.orders[orderID] = &record{Order: model.Order{
		OrderID:   orderID,
		Ref:       ref,
		Status:    model.OrderStatusPending,
		LinkState: model.LinkRequesting,
		CreatedAt: time.Now(),
	}}
	s.refs[ref] = orderID
	return nil
}

// get returns the record for orderID without holding the global lock.
func (s *CorrelationStore) get(orderID string) (*record, error) {
	s.mu.RLock()
	rec, ok := s.orders[orderID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func (s *CorrelationStore) ClaimIntake(_ context.Context, orderID string) (string, error) {
	rec, err := s.get(orderID)
	if err != nil {
		return "", err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	switch rec.LinkState {
	case model.LinkPending:
		rec.LinkState = model.LinkRequesting
		return rec.Ref, nil
	case model.LinkRequesting:
		return "", domain.ErrIntakeInFlight
	default:
		return "", domain.ErrAlreadyHandled
	}
}

func (s *CorrelationStore) ReleaseIntake(_ context.Context, orderID string) error {
	return s.linkTransition(orderID, model.LinkPending)
}

func (s *CorrelationStore) StoreLink(_ context.Context, orderID, link string) error {
	rec, err := s.get(orderID)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.LinkState != model.LinkRequesting {
		return domain.ErrInvalidArgument
	}
	rec.Link = link
	rec.LinkState = model.LinkStored
	return nil
}

func (s *CorrelationStore) RejectLink(_ context.Context, orderID string) error {
	return s.linkTransition(orderID, model.LinkRejected)
}

// linkTransition moves requesting -> next; any other current state is a
// protocol violation by the caller.
func (s *CorrelationStore) linkTransition(orderID string, next model.LinkState) error {
	rec, err := s.get(orderID)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.LinkState != model.LinkRequesting {
		return domain.ErrInvalidArgument
	}
	rec.LinkState = next
	return nil
}

func (s *CorrelationStore) TakeLink(_ context.Context, orderID string) (string, error) {
	rec, err := s.get(orderID)
	if err != nil {
		return "", err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.LinkState != model.LinkStored {
		return "", domain.ErrNotFound
	}
	link := rec.Link
	rec.Link = ""
	rec.LinkState = model.LinkConsumed
	return link, nil
}

func (s *CorrelationStore) Resolve(_ context.Context, ref string) (string, error) {
	s.mu.RLock()
	orderID, ok := s.refs[ref]
	s.mu.RUnlock()
	if !ok {
		return "", domain.ErrNotFound
	}
	return orderID, nil
}

func (s *CorrelationStore) Ref(_ context.Context, orderID string) (string, error) {
	rec, err := s.get(orderID)
	if err != nil {
		return "", err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.Ref, nil
}

func (s *CorrelationStore) ClaimCapture(_ context.Context, orderID string) error {
	rec, err := s.get(orderID)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	switch rec.Status {
	case model.OrderStatusPending:
		rec.Status = model.OrderStatusCapturing
		return nil
	case model.OrderStatusCapturing:
		return domain.ErrCaptureInFlight
	default:
		return domain.ErrAlreadyFinalized
	}
}

func (s *CorrelationStore) FinishCapture(_ context.Context, orderID string, captured bool) error {
	rec, err := s.get(orderID)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.Status != model.OrderStatusCapturing {
		return domain.ErrInvalidArgument
	}
	if captured {
		rec.Status = model.OrderStatusCaptured
	} else {
		rec.Status = model.OrderStatusPending
	}
	return nil
}

func (s *CorrelationStore) MarkFailed(_ context.Context, orderID string) error {
	rec, err := s.get(orderID)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	switch rec.Status {
	case model.OrderStatusPending:
		rec.Status = model.OrderStatusFailed
		return nil
	case model.OrderStatusCapturing:
		return domain.ErrCaptureInFlight
	default:
		return domain.ErrAlreadyFinalized
	}
}

func (s *CorrelationStore) ListPendingOlderThan(_ context.Context, cutoff time.Time, limit int) ([]*model.Order, error) {
	s.mu.RLock()
	recs := make([]*record, 0, len(s.orders))
	for _, rec := range s.orders {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	var out []*model.Order
	for _, rec := range recs {
		rec.mu.Lock()
		if rec.Status == model.OrderStatusPending && rec.LinkState.Settled() &&
			rec.LinkState != model.LinkRejected && rec.CreatedAt.Before(cutoff) {
			o := rec.Order
			out = append(out, &o)
		}
		rec.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
