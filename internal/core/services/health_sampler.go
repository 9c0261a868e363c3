package services

import (
	"math"
	"time"

	"streampulse/internal/core/domain"
)

// RandomSource yields uniform values in [0,1). *math/rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// Random walk bounds and step sizes for the simulated telemetry
const (
	cpuMin, cpuMax                 = 10.0, 100.0
	memoryMin, memoryMax           = 256.0, 2048.0
	latencyMin, latencyMax         = 5.0, 200.0
	bandwidthMin, bandwidthMax     = 1.0, 50.0
	encodingLagMin, encodingLagMax = 0.0, 50.0
	uploadMin, uploadMax           = 1.0, 50.0
	bitrateMin, bitrateMax         = 1000.0, 8000.0
	fpsMin, fpsMax                 = 30.0, 60.0

	cpuVariance         = 10.0
	memoryVariance      = 50.0
	latencyVariance     = 10.0
	bandwidthVariance   = 2.0
	encodingLagVariance = 5.0
	uploadVariance      = 1.0
	bitrateStep         = 0.05 // fraction of current bitrate, each direction
	fpsStep             = 1.0
	viewerVariance      = 10.0

	maxDroppedPerTick = 3
	// FramesPerTick is added to TotalFrames on every sample regardless of FPS
	FramesPerTick = 60
)

// HealthSampler synthesizes the next snapshot from the previous one
type HealthSampler struct {
	rand RandomSource
}

func NewHealthSampler(rnd RandomSource) *HealthSampler {
	return &HealthSampler{rand: rnd}
}

// Next returns the successor of prev. Status is left as-is; the caller sets
// it from the evaluator.
func (s *HealthSampler) Next(prev domain.HealthSnapshot, now time.Time) domain.HealthSnapshot {
	next := prev
	next.Timestamp = now

	next.CPUUsage = s.walk(prev.CPUUsage, cpuVariance, cpuMin, cpuMax)
	next.MemoryUsage = s.walk(prev.MemoryUsage, memoryVariance, memoryMin, memoryMax)
	next.NetworkLatency = s.walk(prev.NetworkLatency, latencyVariance, latencyMin, latencyMax)
	next.Bandwidth = s.walk(prev.Bandwidth, bandwidthVariance, bandwidthMin, bandwidthMax)
	next.EncodingLag = s.walk(prev.EncodingLag, encodingLagVariance, encodingLagMin, encodingLagMax)
	next.UploadSpeed = s.walk(prev.UploadSpeed, uploadVariance, uploadMin, uploadMax)

	next.Bitrate = s.walk(prev.Bitrate, prev.Bitrate*bitrateStep*2, bitrateMin, bitrateMax)
	next.FPS = s.walk(prev.FPS, fpsStep*2, fpsMin, fpsMax)

	next.DroppedFrames = prev.DroppedFrames + int64(math.Floor(s.rand.Float64()*maxDroppedPerTick))
	next.TotalFrames = prev.TotalFrames + FramesPerTick
	if next.DroppedFrames > next.TotalFrames {
		next.DroppedFrames = next.TotalFrames
	}

	return next
}

// NextViewers walks the simulated audience size, never below zero
func (s *HealthSampler) NextViewers(current int) int {
	next := current + int(math.Round((s.rand.Float64()-0.5)*viewerVariance))
	if next < 0 {
		return 0
	}
	return next
}

func (s *HealthSampler) walk(current, variance, lo, hi float64) float64 {
	return clamp(current+(s.rand.Float64()-0.5)*variance, lo, hi)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
