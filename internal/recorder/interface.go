package recorder

import (
	"codeberg.org/mutker/acclogger/internal/storage"
)

// Volume is the storage the recorder writes to.
type Volume interface {
	Present() bool
	Exists(name string) bool
	Create(name string) (storage.File, error)
	Remove(name string) error
}

// Clock returns monotonic milliseconds.
type Clock interface {
	Millis() uint64
}

// Info is a point-in-time view of the recorder.
type Info struct {
	Active     bool   `json:"recording"`
	File       string `json:"file"`
	Samples    uint64 `json:"samples"`
	Skipped    uint64 `json:"skipped"`
	IntervalMs uint32 `json:"interval_ms"`
	UptimeMs   uint64 `json:"uptime_ms"`
}

// Stats are lifetime failure counters.
type Stats struct {
	SensorFailures uint64
	WriteFailures  uint64
	FlushFailures  uint64
	CloseFailures  uint64
}

// TickResult describes what one Tick did.
type TickResult int

const (
	Idle TickResult = iota
	NotDue
	Sampled
	SensorFailed
	WriteFailed
)

func (r TickResult) String() string {
	switch r {
	case Idle:
		return "idle"
	case NotDue:
		return "not_due"
	case Sampled:
		return "sampled"
	case SensorFailed:
		return "sensor_failed"
	case WriteFailed:
		return "write_failed"
	default:
		return "unknown"
	}
}
