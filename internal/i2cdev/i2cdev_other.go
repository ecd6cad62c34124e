//go:build !linux

package i2cdev

// Bus is unavailable outside Linux.
type Bus struct{}

func Open(string) (*Bus, error) { return nil, ErrUnsupported }

func (*Bus) Tx(uint16, []byte, []byte) error { return ErrUnsupported }

func (*Bus) Close() error { return nil }
