package ai

import "github.com/prometheus/client_golang/prometheus"

var turnsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "harold",
		Subsystem: "dialogue",
		Name:      "turns_total",
		Help:      "Chat turns handled, by intent and outcome",
	},
	[]string{"intent", "outcome"}, // outcome: prompt, reserved, rejected, faq, fallback, handover, error
)

var reservationOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "harold",
		Subsystem: "dialogue",
		Name:      "reservation_outcomes_total",
		Help:      "Reservation attempts made by the booking dialogue",
	},
	[]string{"result"}, // created or an error code
)

var llmLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "harold",
		Subsystem: "llm",
		Name:      "latency_seconds",
		Help:      "Latency of language model calls",
		Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 8, 10, 15, 20, 30},
	},
	[]string{"call", "status"}, // call: stream, extract, classify
)

func init() {
	prometheus.MustRegister(turnsTotal, reservationOutcomes, llmLatency)
}
