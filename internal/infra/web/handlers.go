package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"storefront-payment-bridge/internal/domain"
	"storefront-payment-bridge/internal/domain/model"
	"storefront-payment-bridge/internal/infra/logging"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleOrderIntake consumes the storefront's order-creation webhook.
// Every handled outcome answers 200 so the storefront stops redelivering;
// only transport-level failures answer 500 to invite a retry.
func (s *Server) handleOrderIntake(w http.ResponseWriter, r *http.Request, body []byte) {
	var ev model.OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil || ev.OrderID() == "" {
		http.Error(w, "malformed order event", http.StatusBadRequest)
		return
	}

	outcome, err := s.intakeUC.Handle(r.Context(), &ev)
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("order intake failed")
		http.Error(w, "order intake failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Outcome string `json:"outcome"`
	}{Outcome: string(outcome)})
}

// handlePaymentLink serves the stored link at most once: the first fetch
// consumes it, later fetches see null.
func (s *Server) handlePaymentLink(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		http.Error(w, "order_id is required", http.StatusBadRequest)
		return
	}

	link, err := s.intakeUC.TakeLink(r.Context(), orderID)
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("payment link fetch failed")
		http.Error(w, "payment link fetch failed", http.StatusInternalServerError)
		return
	}
	var payload struct {
		PaymentLink *string `json:"payment_link"`
	}
	if link != "" {
		payload.PaymentLink = &link
	}
	writeJSON(w, http.StatusOK, payload)
}

// handlePaymentResult consumes the gateway's payment-result notification.
func (s *Server) handlePaymentResult(w http.ResponseWriter, r *http.Request, body []byte) {
	var res model.PaymentResult
	if err := json.Unmarshal(body, &res); err != nil {
		http.Error(w, "malformed payment result", http.StatusBadRequest)
		return
	}

	outcome, err := s.reconcileUC.Handle(r.Context(), &res)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, struct {
			Outcome string `json:"outcome"`
		}{Outcome: string(outcome)})
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		// Unresolvable ref: forged or stale. No retry wanted.
		http.Error(w, "unknown payment reference", http.StatusBadRequest)
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Msg("payment reconciliation failed")
		http.Error(w, "payment reconciliation failed", http.StatusInternalServerError)
	}
}

// handleOrderStatus proxies the gateway's authoritative status payload.
func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		http.Error(w, "order_id is required", http.StatusBadRequest)
		return
	}

	payload, err := s.statusUC.OrderStatus(r.Context(), orderID)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "unknown order", http.StatusNotFound)
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Msg("status query failed")
		http.Error(w, "status query failed", http.StatusInternalServerError)
	}
}

func (s *Server) handleWalletBalance(w http.ResponseWriter, r *http.Request) {
	payload, err := s.statusUC.WalletBalance(r.Context())
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("balance query failed")
		http.Error(w, "balance query failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
