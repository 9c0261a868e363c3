package services

import (
	"time"
)

// fixedSource always returns the same value. 0.5 makes every random walk a
// no-op and drops exactly one frame per tick.
type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

// sequenceSource cycles through values
type sequenceSource struct {
	values []float64
	i      int
}

func (s *sequenceSource) Float64() float64 {
	v := s.values[s.i%len(s.values)]
	s.i++
	return v
}

var testEpoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testEpoch }
