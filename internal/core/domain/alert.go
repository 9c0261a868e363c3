package domain

import "time"

// AlertKey identifies an alert rule. At most one unresolved alert per key
// exists at any time.
type AlertKey string

const (
	AlertDroppedFrames AlertKey = "dropped-frames"
	AlertHighCPU       AlertKey = "high-cpu"
	AlertHighLatency   AlertKey = "high-latency"
	AlertLowBitrate    AlertKey = "low-bitrate"
)

// AlertSeverity is the severity of a raised alert
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityError    AlertSeverity = "error"
	SeverityCritical AlertSeverity = "critical"
)

type Alert struct {
	ID        string        `json:"id"`
	Key       AlertKey      `json:"key"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Resolved  bool          `json:"resolved"`
}
