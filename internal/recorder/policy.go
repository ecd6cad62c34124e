package recorder

import (
	"codeberg.org/mutker/acclogger/internal/config"
	"golang.org/x/exp/constraints"
)

// Policy holds the sampling limits. All values are milliseconds.
type Policy struct {
	DefaultIntervalMs uint32
	MinIntervalMs     uint32
	MaxIntervalMs     uint32
	FlushIntervalMs   uint32
}

func DefaultPolicy() Policy {
	return Policy{
		DefaultIntervalMs: 5,
		MinIntervalMs:     5,
		MaxIntervalMs:     5000,
		FlushIntervalMs:   1000,
	}
}

func PolicyFromConfig(cfg config.SamplingConfig) Policy {
	return Policy{
		DefaultIntervalMs: cfg.DefaultIntervalMs,
		MinIntervalMs:     cfg.MinIntervalMs,
		MaxIntervalMs:     cfg.MaxIntervalMs,
		FlushIntervalMs:   cfg.FlushIntervalMs,
	}
}

// Clamp limits ms to [MinIntervalMs, MaxIntervalMs].
func (p Policy) Clamp(ms uint32) uint32 {
	return clamp(ms, p.MinIntervalMs, p.MaxIntervalMs)
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
