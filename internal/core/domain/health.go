package domain

import "time"

// HealthStatus is the discrete tier derived from the health score
type HealthStatus string

const (
	StatusExcellent HealthStatus = "excellent"
	StatusGood      HealthStatus = "good"
	StatusFair      HealthStatus = "fair"
	StatusPoor      HealthStatus = "poor"
	StatusCritical  HealthStatus = "critical"
)

// StatusForScore maps a 0-100 score onto its tier
func StatusForScore(score int) HealthStatus {
	switch {
	case score >= 90:
		return StatusExcellent
	case score >= 75:
		return StatusGood
	case score >= 60:
		return StatusFair
	case score >= 40:
		return StatusPoor
	default:
		return StatusCritical
	}
}

// HealthSnapshot is one sample of the encoder and uplink state. It is a value
// type and is replaced wholesale on every tick.
type HealthSnapshot struct {
	Status         HealthStatus `json:"status"`
	Bitrate        float64      `json:"bitrate"` // kbps
	FPS            float64      `json:"fps"`
	DroppedFrames  int64        `json:"droppedFrames"`
	TotalFrames    int64        `json:"totalFrames"`
	CPUUsage       float64      `json:"cpuUsage"`       // percent
	MemoryUsage    float64      `json:"memoryUsage"`    // MB
	NetworkLatency float64      `json:"networkLatency"` // ms
	Bandwidth      float64      `json:"bandwidth"`      // Mbps
	EncodingLag    float64      `json:"encodingLag"`    // ms
	UploadSpeed    float64      `json:"uploadSpeed"`    // Mbps
	Timestamp      time.Time    `json:"timestamp"`
}

// DropPercentage returns dropped/total frames as a percentage, 0 before any
// frame was counted.
func (s HealthSnapshot) DropPercentage() float64 {
	if s.TotalFrames <= 0 {
		return 0
	}
	return float64(s.DroppedFrames) / float64(s.TotalFrames) * 100
}

// InitialSnapshot is the state a monitor starts from and returns to on reset.
func InitialSnapshot(bitrate float64, now time.Time) HealthSnapshot {
	return HealthSnapshot{
		Status:         StatusExcellent,
		Bitrate:        bitrate,
		FPS:            60,
		CPUUsage:       45,
		MemoryUsage:    1024,
		NetworkLatency: 25,
		Bandwidth:      25,
		EncodingLag:    5,
		UploadSpeed:    10,
		Timestamp:      now,
	}
}
