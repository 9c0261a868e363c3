package domain

import "time"

// HealthReport is the exported view of the monitor. Field names are the
// public JSON document layout.
type HealthReport struct {
	CurrentHealth  HealthSnapshot        `json:"currentHealth"`
	Metrics        AggregateMetrics      `json:"metrics"`
	HealthScore    int                   `json:"healthScore"`
	DropPercentage float64               `json:"dropPercentage"`
	Recommendation BitrateRecommendation `json:"recommendation"`
	Alerts         []Alert               `json:"alerts"`
	History        []HealthSnapshot      `json:"history"`
}

// StoredReport is a persisted export blob
type StoredReport struct {
	ID          string       `json:"id"`
	CreatedAt   time.Time    `json:"createdAt"`
	HealthScore int          `json:"healthScore"`
	Status      HealthStatus `json:"status"`
	Data        []byte       `json:"-"` // serialized HealthReport
}

// ReportSummary is the listing view of a stored report
type ReportSummary struct {
	ID          string       `json:"id"`
	CreatedAt   time.Time    `json:"createdAt"`
	HealthScore int          `json:"healthScore"`
	Status      HealthStatus `json:"status"`
}

func (r *StoredReport) Summary() ReportSummary {
	return ReportSummary{
		ID:          r.ID,
		CreatedAt:   r.CreatedAt,
		HealthScore: r.HealthScore,
		Status:      r.Status,
	}
}
