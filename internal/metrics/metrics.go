package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_active_sessions",
		Help: "Number of active WebRTC signaling sessions",
	})
)

// Counters
var (
	SessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signaling_sessions_created_total",
		Help: "Total sessions successfully negotiated",
	})
	SessionsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signaling_sessions_closed_total",
		Help: "Total sessions closed",
	})
	SessionsReplacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signaling_sessions_replaced_total",
		Help: "Sessions displaced by a newer negotiation with the same explicit id",
	})
	NegotiationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_negotiation_failures_total",
		Help: "Failed negotiations by reason",
	}, []string{"reason"})
	IceCandidatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signaling_ice_candidates_total",
		Help: "Total ICE candidates relayed",
	})
)

// Histograms
var (
	OfferLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "signaling_offer_duration_ms",
		Help:    "Offer/answer negotiation duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2000, 5000, 10000},
	})
)
