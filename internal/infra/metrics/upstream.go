package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		upstreamRequestsTotal,
		upstreamLatencyMs,
	)
}

var (
	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Outbound calls by target (gateway/storefront), operation and success.",
		},
		[]string{"target", "op", "success"},
	)

	upstreamLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_ms",
			Help:    "Outbound call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"target", "op"},
	)
)

// ObserveUpstream records one outbound round trip.
func ObserveUpstream(target, op string, start time.Time, err error) {
	upstreamRequestsTotal.WithLabelValues(target, op, strconv.FormatBool(err == nil)).Inc()
	upstreamLatencyMs.WithLabelValues(target, op).Observe(float64(time.Since(start).Milliseconds()))
}
