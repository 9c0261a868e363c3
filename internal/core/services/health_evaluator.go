package services

import (
	"math"

	"streampulse/internal/core/domain"
)

// EvaluateHealth scores a snapshot in [0,100] and maps the score to a tier.
// It has no side effects.
func EvaluateHealth(s domain.HealthSnapshot, dropPct float64) (int, domain.HealthStatus) {
	score := HealthScore(s, dropPct)
	return score, domain.StatusForScore(score)
}

// HealthScore applies the capped penalties for drops, CPU, latency and memory
func HealthScore(s domain.HealthSnapshot, dropPct float64) int {
	score := 100.0

	score -= math.Min(dropPct*2, 30)
	score -= math.Min(math.Max(s.CPUUsage-70, 0)*0.5, 20)
	score -= math.Min(s.NetworkLatency/10, 20)
	score -= math.Min(math.Max(0, 100-s.MemoryUsage/1024*100)*0.1, 10)

	return int(math.Round(clamp(score, 0, 100)))
}
