// Advisory health statuses tracked per worker by the coordinator's polling
// loop. Health is observable state only; whether calls are attempted is
// decided by the circuit breaker, not by these values.
package domain

import "time"

// HealthStatus classifies a worker's recent readiness-probe history.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthDown     HealthStatus = "down"
)

// HealthRecord is the per-worker advisory health state. Mutated only by the
// coordinator's polling loop; command paths read it for diagnostics.
type HealthRecord struct {
	Status              HealthStatus `json:"status"`
	LastCheckedAt       time.Time    `json:"last_checked_at"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
}
