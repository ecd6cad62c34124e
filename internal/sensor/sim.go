package sensor

import (
	"math"
	"time"

	"codeberg.org/mutker/acclogger/internal/drivers/mma8451"
)

// Simulated produces gravity on Z plus low-amplitude vibration on every axis.
// Output is a pure function of the elapsed time since creation.
type Simulated struct {
	start time.Time
	now   func() time.Time
}

func NewSimulated() *Simulated {
	return NewSimulatedAt(time.Now)
}

// NewSimulatedAt uses now as the time source.
func NewSimulatedAt(now func() time.Time) *Simulated {
	return &Simulated{start: now(), now: now}
}

func (s *Simulated) ReadSample() (Sample, error) {
	t := s.now().Sub(s.start).Seconds()

	return Sample{
		X: 0.20 * math.Sin(2*math.Pi*12*t),
		Y: 0.10 * math.Sin(2*math.Pi*7*t+math.Pi/3),
		Z: mma8451.StandardGravity + 0.05*math.Sin(2*math.Pi*25*t),
	}, nil
}

func (*Simulated) Name() string { return "sim" }
func (*Simulated) Close() error { return nil }
