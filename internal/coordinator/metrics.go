// Prometheus collectors for the coordinator's control-plane state. Labels
// are bounded: bot_type is a closed enumeration and op names are the fixed
// protocol operations, so cardinality stays small.
package coordinator

import "github.com/prometheus/client_golang/prometheus"

var (
	// circuitState reports each worker's circuit position
	// (0=closed, 1=open, 2=half-open).
	circuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "voicefleet_circuit_state",
			Help: "Circuit breaker state per worker (0=closed, 1=open, 2=half-open).",
		},
		[]string{"bot_type"},
	)

	// circuitTransitions counts breaker transitions by destination state.
	circuitTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicefleet_circuit_transitions_total",
			Help: "Total circuit breaker state transitions.",
		},
		[]string{"bot_type", "to"},
	)

	// workerCalls counts gated calls by outcome
	// (success, rejected, upstream_error, circuit_open).
	workerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicefleet_worker_calls_total",
			Help: "Total worker protocol calls issued through the coordinator gate.",
		},
		[]string{"bot_type", "op", "outcome"},
	)

	// callDuration records gated call latency, including client retries.
	callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voicefleet_worker_call_duration_seconds",
			Help:    "Duration of worker protocol calls in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"bot_type", "op"},
	)

	// healthStatus reports advisory health (0=healthy, 1=degraded, 2=down).
	healthStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "voicefleet_worker_health_status",
			Help: "Advisory worker health from the polling loop (0=healthy, 1=degraded, 2=down).",
		},
		[]string{"bot_type"},
	)
)

func init() {
	prometheus.MustRegister(circuitState, circuitTransitions, workerCalls, callDuration, healthStatus)
}
