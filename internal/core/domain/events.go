package domain

import "time"

// HealthEventType names what changed in the monitor
type HealthEventType string

const (
	EventHealthTick      HealthEventType = "health.tick"
	EventAlertRaised     HealthEventType = "alert.raised"
	EventAlertResolved   HealthEventType = "alert.resolved"
	EventAlertsCleared   HealthEventType = "alerts.cleared"
	EventBitrateAdjusted HealthEventType = "bitrate.adjusted"
	EventMetricsReset    HealthEventType = "metrics.reset"
	EventMonitorStarted  HealthEventType = "monitoring.started"
	EventMonitorStopped  HealthEventType = "monitoring.stopped"
)

// HealthEvent is published to subscribers after every state change
type HealthEvent struct {
	Type        HealthEventType    `json:"type"`
	Timestamp   time.Time          `json:"timestamp"`
	Snapshot    HealthSnapshot     `json:"snapshot"`
	Metrics     AggregateMetrics   `json:"metrics"`
	HealthScore int                `json:"healthScore"`
	Alert       *Alert             `json:"alert,omitempty"`
	Adjustment  *BitrateAdjustment `json:"adjustment,omitempty"`
}

// BitrateAdjustment records a bitrate change made outside the sampler
type BitrateAdjustment struct {
	From   float64 `json:"from"`
	To     float64 `json:"to"`
	Reason string  `json:"reason"` // advisor reason or "manual"
}
