package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		intakesTotal,
		linksServedTotal,
		reconciliationsTotal,
		verifyFailuresTotal,
	)
}

var (
	intakesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_intakes_total",
			Help: "Order-creation events by outcome (link_ready/ignored/no_phone/duplicate/rejected/error).",
		},
		[]string{"outcome"},
	)

	linksServedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_links_served_total",
			Help: "Payment-link fetches by result (served/absent).",
		},
		[]string{"result"},
	)

	reconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciliations_total",
			Help: "Payment-result events by outcome (captured/duplicate/failed/capture_rejected/error).",
		},
		[]string{"outcome"},
	)

	verifyFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_verify_failures_total",
			Help: "Inbound notifications rejected by signature verification, per sender.",
		},
		[]string{"sender"},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncIntake(outcome string) { intakesTotal.WithLabelValues(norm(outcome)).Inc() }

func IncLinkServed(result string) { linksServedTotal.WithLabelValues(norm(result)).Inc() }

func IncReconciliation(outcome string) {
	reconciliationsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncVerifyFailure(sender string) { verifyFailuresTotal.WithLabelValues(norm(sender)).Inc() }
