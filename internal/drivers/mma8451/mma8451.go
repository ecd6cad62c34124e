// Package mma8451 provides a driver for the NXP MMA8451 3-axis accelerometer.
//
//	dev := mma8451.New(bus)
//	err := dev.Configure(mma8451.Config{Range: mma8451.Range4G})
//	x, y, z, err := dev.ReadAcceleration() // m/s²
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when both
// w and r are provided. The device does not answer register reads split by a
// STOP condition.
package mma8451

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// I2C addresses. Address is used when SA0 is pulled high (Adafruit breakout
// default).
const (
	Address    = 0x1D
	AddressAlt = 0x1C
)

const deviceID = 0x1A

// Registers.
const (
	regOutXMSB    = 0x01
	regWhoAmI     = 0x0D
	regXYZDataCfg = 0x0E
	regPLCfg      = 0x11
	regCtrl1      = 0x2A
	regCtrl2      = 0x2B
	regCtrl4      = 0x2D
	regCtrl5      = 0x2E
)

// Register bits.
const (
	ctrl1Active   = 0x01
	ctrl1LowNoise = 0x04
	ctrl1RateMask = 0x38

	ctrl2Reset   = 0x40
	ctrl2HighRes = 0x02

	plEnable = 0x40
)

// StandardGravity converts g to m/s².
const StandardGravity = 9.80665

// Range is the full-scale range.
type Range uint8

const (
	Range2G Range = 0
	Range4G Range = 1
	Range8G Range = 2
)

// CountsPerG returns the 14-bit scale factor for the range.
func (r Range) CountsPerG() float64 {
	switch r {
	case Range4G:
		return 2048
	case Range8G:
		return 1024
	default:
		return 4096
	}
}

// DataRate is the output data rate.
type DataRate uint8

const (
	Rate800Hz  DataRate = 0
	Rate400Hz  DataRate = 1
	Rate200Hz  DataRate = 2
	Rate100Hz  DataRate = 3
	Rate50Hz   DataRate = 4
	Rate12_5Hz DataRate = 5
	Rate6_25Hz DataRate = 6
	Rate1_56Hz DataRate = 7
)

// Errors returned by the driver.
var (
	ErrNotFound     = errors.New("mma8451: device not found")
	ErrResetTimeout = errors.New("mma8451: reset timeout")
)

// Config controls device setup. Zero values select address 0x1D, ±2 g and
// 800 Hz.
type Config struct {
	Address  uint16
	Range    Range
	DataRate DataRate
}

// Device wraps an I2C connection to an MMA8451.
type Device struct {
	bus     drivers.I2C
	Address uint16

	rng Range
	buf [6]byte
}

// New creates a Device. The bus must already be configured; nothing is sent
// until Configure.
func New(bus drivers.I2C) Device {
	return Device{
		bus:     bus,
		Address: Address,
	}
}

// Configure checks the device ID, resets the part, and applies cfg. The
// device is left active in high-resolution, low-noise mode.
func (d *Device) Configure(cfg Config) error {
	if cfg.Address != 0 {
		d.Address = cfg.Address
	}

	id, err := d.readReg(regWhoAmI)
	if err != nil {
		return err
	}
	if id != deviceID {
		return ErrNotFound
	}

	if err := d.writeReg(regCtrl2, ctrl2Reset); err != nil {
		return err
	}
	if err := d.waitReset(); err != nil {
		return err
	}

	for _, rv := range [][2]byte{
		{regCtrl2, ctrl2HighRes},
		{regCtrl4, 0x01}, // data-ready interrupt
		{regCtrl5, 0x01}, // routed to INT1
		{regPLCfg, plEnable},
	} {
		if err := d.writeReg(rv[0], rv[1]); err != nil {
			return err
		}
	}

	if err := d.SetRange(cfg.Range); err != nil {
		return err
	}

	return d.writeReg(regCtrl1, byte(cfg.DataRate&0x07)<<3|ctrl1LowNoise|ctrl1Active)
}

func (d *Device) waitReset() error {
	for i := 0; i < 10; i++ {
		v, err := d.readReg(regCtrl2)
		if err == nil && v&ctrl2Reset == 0 {
			return nil
		}
		time.Sleep(time.Millisecond)
	}

	return ErrResetTimeout
}

// Connected reports whether the device answers with the expected ID.
func (d *Device) Connected() bool {
	id, err := d.readReg(regWhoAmI)
	return err == nil && id == deviceID
}

// SetRange changes the full-scale range. The device is put in standby for the
// write and restored afterwards.
func (d *Device) SetRange(r Range) error {
	ctrl1, err := d.readReg(regCtrl1)
	if err != nil {
		return err
	}
	if err := d.writeReg(regCtrl1, ctrl1&^ctrl1Active); err != nil {
		return err
	}
	if err := d.writeReg(regXYZDataCfg, byte(r&0x03)); err != nil {
		return err
	}
	d.rng = r

	return d.writeReg(regCtrl1, ctrl1)
}

// Range returns the configured full-scale range.
func (d *Device) Range() Range {
	return d.rng
}

// SetDataRate changes the output data rate.
func (d *Device) SetDataRate(rate DataRate) error {
	ctrl1, err := d.readReg(regCtrl1)
	if err != nil {
		return err
	}
	if err := d.writeReg(regCtrl1, ctrl1&^ctrl1Active); err != nil {
		return err
	}
	ctrl1 = ctrl1&^ctrl1RateMask | byte(rate&0x07)<<3

	return d.writeReg(regCtrl1, ctrl1)
}

// ReadRaw returns the 14-bit signed counts for each axis.
func (d *Device) ReadRaw() (x, y, z int16, err error) {
	data := d.buf[:]
	if err = d.bus.Tx(d.Address, []byte{regOutXMSB}, data); err != nil {
		return 0, 0, 0, err
	}

	x = int16(uint16(data[0])<<8|uint16(data[1])) >> 2
	y = int16(uint16(data[2])<<8|uint16(data[3])) >> 2
	z = int16(uint16(data[4])<<8|uint16(data[5])) >> 2

	return x, y, z, nil
}

// ReadAcceleration returns acceleration in m/s² for each axis.
func (d *Device) ReadAcceleration() (x, y, z float64, err error) {
	rx, ry, rz, err := d.ReadRaw()
	if err != nil {
		return 0, 0, 0, err
	}

	scale := StandardGravity / d.rng.CountsPerG()

	return float64(rx) * scale, float64(ry) * scale, float64(rz) * scale, nil
}

func (d *Device) readReg(reg byte) (byte, error) {
	data := []byte{0}
	if err := d.bus.Tx(d.Address, []byte{reg}, data); err != nil {
		return 0, err
	}

	return data[0], nil
}

func (d *Device) writeReg(reg, value byte) error {
	return d.bus.Tx(d.Address, []byte{reg, value}, nil)
}
