package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"storefront-payment-bridge/internal/infra/logging"
	"storefront-payment-bridge/internal/usecase"
)

type Server struct {
	intakeUC    usecase.IntakeUseCase
	reconcileUC usecase.ReconcileUseCase
	statusUC    usecase.StatusUseCase
	storefront  Verifier
	gateway     Verifier
	log         *zerolog.Logger
}

func NewServer(
	intakeUC usecase.IntakeUseCase,
	reconcileUC usecase.ReconcileUseCase,
	statusUC usecase.StatusUseCase,
	storefrontVerifier Verifier,
	gatewayVerifier Verifier,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		intakeUC:    intakeUC,
		reconcileUC: reconcileUC,
		statusUC:    statusUC,
		storefront:  storefrontVerifier,
		gateway:     gatewayVerifier,
		log:         logger,
	}
}

// Router builds the inbound HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Post("/order-intake", verified(s.storefront, s.handleOrderIntake))
	r.Get("/payment-link", s.handlePaymentLink)
	r.Post("/payment-result", verified(s.gateway, s.handlePaymentResult))
	r.Get("/order-status", s.handleOrderStatus)
	r.Get("/wallet-balance", s.handleWalletBalance)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// requestLogger tags every request with a trace id and logs the round trip.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := uuid.NewString()
		ctx := logging.WithTraceID(r.Context(), traceID)
		w.Header().Set("X-Trace-Id", traceID)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
