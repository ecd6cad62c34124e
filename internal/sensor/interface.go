package sensor

// Sample is one accelerometer reading in m/s².
type Sample struct {
	X, Y, Z float64
}

// Reader supplies readings. Implementations need not be safe for
// concurrent use; the recorder serializes calls.
type Reader interface {
	ReadSample() (Sample, error)
}

// Device is an opened sensor.
type Device interface {
	Reader
	Name() string
	Close() error
}
