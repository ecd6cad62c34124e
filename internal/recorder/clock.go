package recorder

import "time"

type bootClock struct {
	start time.Time
}

// NewClock returns a clock counting from now.
func NewClock() Clock {
	return bootClock{start: time.Now()}
}

func (c bootClock) Millis() uint64 {
	return uint64(time.Since(c.start).Milliseconds())
}
