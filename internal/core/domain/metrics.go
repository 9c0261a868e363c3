package domain

// AggregateMetrics are running figures recomputed on every tick from the
// history window and the current snapshot.
type AggregateMetrics struct {
	AverageBitrate float64 `json:"averageBitrate"` // kbps over history
	AverageFPS     float64 `json:"averageFps"`
	DropRate       float64 `json:"dropRate"` // percent
	Uptime         float64 `json:"uptime"`   // seconds while monitoring
	DataSent       float64 `json:"dataSent"` // MB
	CurrentViewers int     `json:"currentViewers"`
	PeakViewers    int     `json:"peakViewers"`
}

// BitrateRecommendation is derived on demand and never stored
type BitrateRecommendation struct {
	Recommended float64 `json:"recommended"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Reason      string  `json:"reason"`
}

// OptimizationSettings gate the auto-optimizer; both must be on for it to act
type OptimizationSettings struct {
	AutoOptimize          bool `json:"autoOptimize"`
	AutoBitrateAdjustment bool `json:"autoBitrateAdjustment"`
}

// Enabled reports whether the auto-optimizer should run
func (o OptimizationSettings) Enabled() bool {
	return o.AutoOptimize && o.AutoBitrateAdjustment
}
