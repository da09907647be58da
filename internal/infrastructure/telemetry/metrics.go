package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facilityhub",
		Subsystem: "lifecycle",
		Name:      "transitions_total",
		Help:      "Lifecycle operations broken down by operation and result kind.",
	}, []string{"operation", "result"})

	transitionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "facilityhub",
		Subsystem: "lifecycle",
		Name:      "latency_seconds",
		Help:      "Latency of lifecycle operations including retries.",
		Buckets: []float64{
			0.001, 0.002, 0.005, 0.01,
			0.02, 0.05, 0.1, 0.2,
			0.5, 1, 2, 5,
		},
	}, []string{"operation"})

	txAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facilityhub",
		Subsystem: "store",
		Name:      "tx_attempts_total",
		Help:      "Storage transaction attempts broken down by outcome.",
	}, []string{"outcome"})

	allocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facilityhub",
		Subsystem: "sequence",
		Name:      "allocations_total",
		Help:      "Sequence numbers minted per counter domain.",
	}, []string{"domain"})

	sweepTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facilityhub",
		Subsystem: "sweeper",
		Name:      "delayed_total",
		Help:      "Requests moved to DELAYED by the sweeper.",
	})

	sweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facilityhub",
		Subsystem: "sweeper",
		Name:      "runs_total",
		Help:      "Sweeper runs broken down by result.",
	}, []string{"result"})

	notifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facilityhub",
		Subsystem: "notify",
		Name:      "failures_total",
		Help:      "Event publish failures per transport.",
	}, []string{"transport"})
)

// RecordTransition counts one lifecycle operation. result is "ok" or an error kind.
func RecordTransition(operation, result string, latency time.Duration) {
	transitions.With(prometheus.Labels{"operation": operation, "result": result}).Inc()
	transitionLatency.With(prometheus.Labels{"operation": operation}).Observe(latency.Seconds())
}

// RecordTxAttempt counts one storage transaction attempt.
func RecordTxAttempt(outcome string) {
	txAttempts.With(prometheus.Labels{"outcome": outcome}).Inc()
}

func RecordAllocation(domain string) {
	allocations.With(prometheus.Labels{"domain": domain}).Inc()
}

func RecordSweep(delayed int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	sweepRuns.With(prometheus.Labels{"result": result}).Inc()
	sweepTransitions.Add(float64(delayed))
}

func RecordNotifyFailure(transport string) {
	notifyFailures.With(prometheus.Labels{"transport": transport}).Inc()
}
