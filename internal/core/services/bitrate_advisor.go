package services

import (
	"math"

	"streampulse/internal/core/domain"
)

const (
	ReasonHighLatency   = "high latency"
	ReasonDroppedFrames = "dropped frames"
	ReasonHighCPU       = "high CPU"
	ReasonOptimal       = "optimal"

	// share of measured upload speed a stream may use, in kbps per Mbps
	uploadBudgetKbps = 1000 * 0.7
)

// RecommendBitrate derives a bitrate band from the current conditions. Rules
// are checked in priority order and the first match wins.
func RecommendBitrate(s domain.HealthSnapshot, dropPct float64) domain.BitrateRecommendation {
	budget := s.UploadSpeed * uploadBudgetKbps

	switch {
	case s.NetworkLatency > 100:
		return domain.BitrateRecommendation{
			Recommended: math.Min(3000, budget),
			Min:         2000,
			Max:         4000,
			Reason:      ReasonHighLatency,
		}
	case dropPct > 1:
		return domain.BitrateRecommendation{
			Recommended: math.Max(2000, s.Bitrate*0.8),
			Min:         2000,
			Max:         s.Bitrate,
			Reason:      ReasonDroppedFrames,
		}
	case s.CPUUsage > 80:
		return domain.BitrateRecommendation{
			Recommended: math.Min(4000, s.Bitrate),
			Min:         2000,
			Max:         5000,
			Reason:      ReasonHighCPU,
		}
	default:
		return domain.BitrateRecommendation{
			Recommended: math.Min(6000, budget),
			Min:         3000,
			Max:         math.Min(8000, budget),
			Reason:      ReasonOptimal,
		}
	}
}
