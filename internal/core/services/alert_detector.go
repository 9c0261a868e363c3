package services

import (
	"fmt"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/pkg/utils"
)

type alertRule struct {
	key       domain.AlertKey
	severity  domain.AlertSeverity
	triggered func(s domain.HealthSnapshot, dropPct float64) bool
	message   func(s domain.HealthSnapshot, dropPct float64) string
}

var alertRules = []alertRule{
	{
		key:       domain.AlertDroppedFrames,
		severity:  domain.SeverityError,
		triggered: func(_ domain.HealthSnapshot, dropPct float64) bool { return dropPct > 5 },
		message: func(_ domain.HealthSnapshot, dropPct float64) string {
			return fmt.Sprintf("High dropped frame rate: %.2f%%", dropPct)
		},
	},
	{
		key:       domain.AlertHighCPU,
		severity:  domain.SeverityWarning,
		triggered: func(s domain.HealthSnapshot, _ float64) bool { return s.CPUUsage > 85 },
		message: func(s domain.HealthSnapshot, _ float64) string {
			return fmt.Sprintf("High CPU usage: %.1f%%", s.CPUUsage)
		},
	},
	{
		key:       domain.AlertHighLatency,
		severity:  domain.SeverityWarning,
		triggered: func(s domain.HealthSnapshot, _ float64) bool { return s.NetworkLatency > 150 },
		message: func(s domain.HealthSnapshot, _ float64) string {
			return fmt.Sprintf("High network latency: %.0fms", s.NetworkLatency)
		},
	},
	{
		key:       domain.AlertLowBitrate,
		severity:  domain.SeverityInfo,
		triggered: func(s domain.HealthSnapshot, _ float64) bool { return s.Bitrate < 2000 },
		message: func(s domain.HealthSnapshot, _ float64) string {
			return fmt.Sprintf("Low bitrate detected: %.0f kbps", s.Bitrate)
		},
	},
}

// AlertDetector keeps the active alert list in insertion order. It is not
// safe for concurrent use; the monitor serializes access.
type AlertDetector struct {
	alerts []domain.Alert
}

func NewAlertDetector() *AlertDetector {
	return &AlertDetector{}
}

// Evaluate raises an alert for every rule whose condition holds and that has
// no unresolved alert yet. It returns the newly raised alerts.
func (d *AlertDetector) Evaluate(s domain.HealthSnapshot, dropPct float64, now time.Time) []domain.Alert {
	var raised []domain.Alert
	for _, rule := range alertRules {
		if !rule.triggered(s, dropPct) || d.hasUnresolved(rule.key) {
			continue
		}
		alert := domain.Alert{
			ID:        utils.GenerateAlertID(),
			Key:       rule.key,
			Severity:  rule.severity,
			Message:   rule.message(s, dropPct),
			Timestamp: now,
		}
		d.alerts = append(d.alerts, alert)
		raised = append(raised, alert)
	}
	return raised
}

// Resolve marks the unresolved alert for key as resolved. Unknown keys are ignored.
func (d *AlertDetector) Resolve(key domain.AlertKey) (domain.Alert, bool) {
	for i := range d.alerts {
		if d.alerts[i].Key == key && !d.alerts[i].Resolved {
			d.alerts[i].Resolved = true
			return d.alerts[i], true
		}
	}
	return domain.Alert{}, false
}

// ClearResolved drops resolved alerts and returns how many were removed
func (d *AlertDetector) ClearResolved() int {
	kept := d.alerts[:0]
	for _, a := range d.alerts {
		if !a.Resolved {
			kept = append(kept, a)
		}
	}
	removed := len(d.alerts) - len(kept)
	d.alerts = kept
	return removed
}

// Alerts returns a copy of the alert list
func (d *AlertDetector) Alerts() []domain.Alert {
	out := make([]domain.Alert, len(d.alerts))
	copy(out, d.alerts)
	return out
}

func (d *AlertDetector) Reset() {
	d.alerts = nil
}

func (d *AlertDetector) hasUnresolved(key domain.AlertKey) bool {
	for _, a := range d.alerts {
		if a.Key == key && !a.Resolved {
			return true
		}
	}
	return false
}
