// Package i2cdev talks to I2C peripherals through the Linux /dev/i2c-N
// character devices. A Bus satisfies tinygo.org/x/drivers.I2C so the same
// drivers run on a host as on a microcontroller.
package i2cdev

import (
	"errors"

	"tinygo.org/x/drivers"
)

// ErrUnsupported is returned on platforms without i2c-dev.
var ErrUnsupported = errors.New("i2cdev: not supported on this platform")

var _ drivers.I2C = (*Bus)(nil)

// ReadRegister reads len(buf) bytes starting at reg.
func (b *Bus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return b.Tx(uint16(addr), []byte{reg}, buf)
}

// WriteRegister writes buf starting at reg.
func (b *Bus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	w := make([]byte, 0, len(buf)+1)
	w = append(w, reg)
	w = append(w, buf...)

	return b.Tx(uint16(addr), w, nil)
}
