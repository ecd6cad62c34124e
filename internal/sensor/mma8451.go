package sensor

import (
	"io"

	"codeberg.org/mutker/acclogger/internal/drivers/mma8451"
	"codeberg.org/mutker/acclogger/internal/errors"
	"tinygo.org/x/drivers"
)

// Bus is an I2C bus that can be released.
type Bus interface {
	drivers.I2C
	io.Closer
}

type mmaDevice struct {
	dev mma8451.Device
	bus Bus
}

// NewMMA8451 configures an MMA8451 on bus. The device takes ownership of the
// bus and closes it on Close.
func NewMMA8451(bus Bus, cfg mma8451.Config) (Device, error) {
	dev := mma8451.New(bus)
	if err := dev.Configure(cfg); err != nil {
		return nil, errors.New().Wrap(ErrInitFailed, err)
	}

	return &mmaDevice{dev: dev, bus: bus}, nil
}

func (m *mmaDevice) ReadSample() (Sample, error) {
	x, y, z, err := m.dev.ReadAcceleration()
	if err != nil {
		return Sample{}, errors.New().Wrap(ErrReadFailed, err)
	}

	return Sample{X: x, Y: y, Z: z}, nil
}

func (*mmaDevice) Name() string { return "mma8451" }

func (m *mmaDevice) Close() error {
	return m.bus.Close()
}
