package sensor

import (
	"strings"

	"codeberg.org/mutker/acclogger/internal/config"
	"codeberg.org/mutker/acclogger/internal/drivers/mma8451"
	"codeberg.org/mutker/acclogger/internal/errors"
	"codeberg.org/mutker/acclogger/internal/i2cdev"
	"codeberg.org/mutker/acclogger/internal/logger"
)

var ranges = map[string]mma8451.Range{
	"2g": mma8451.Range2G,
	"4g": mma8451.Range4G,
	"8g": mma8451.Range8G,
}

var rates = map[string]mma8451.DataRate{
	"800hz":  mma8451.Rate800Hz,
	"400hz":  mma8451.Rate400Hz,
	"200hz":  mma8451.Rate200Hz,
	"100hz":  mma8451.Rate100Hz,
	"50hz":   mma8451.Rate50Hz,
	"12.5hz": mma8451.Rate12_5Hz,
	"6.25hz": mma8451.Rate6_25Hz,
	"1.56hz": mma8451.Rate1_56Hz,
}

// Open initializes the configured sensor. On failure it returns an
// unavailable device together with the error, so callers can report the
// problem and keep running with recording degraded.
func Open(cfg config.SensorConfig) (Device, error) {
	errFactory := errors.New()

	switch strings.ToLower(cfg.Driver) {
	case "sim":
		logger.With("sensor").Info().Msg("Using simulated accelerometer")
		return NewSimulated(), nil
	case "mma8451":
	default:
		err := errFactory.WithData(ErrUnknownDriver, cfg.Driver)
		return Unavailable(err), err
	}

	rng, ok := ranges[strings.ToLower(cfg.Range)]
	if !ok {
		err := errFactory.WithData(ErrInvalidSetting, "range "+cfg.Range)
		return Unavailable(err), err
	}
	rate, ok := rates[strings.ToLower(cfg.Rate)]
	if !ok {
		err := errFactory.WithData(ErrInvalidSetting, "rate "+cfg.Rate)
		return Unavailable(err), err
	}

	bus, err := i2cdev.Open(cfg.Bus)
	if err != nil {
		wrapped := errFactory.Wrap(ErrInitFailed, err)
		return Unavailable(wrapped), wrapped
	}

	dev, err := NewMMA8451(bus, mma8451.Config{
		Address:  uint16(cfg.Address),
		Range:    rng,
		DataRate: rate,
	})
	if err != nil {
		bus.Close()
		return Unavailable(err), err
	}

	logger.With("sensor").Info().
		Str("bus", cfg.Bus).
		Int("address", cfg.Address).
		Str("range", cfg.Range).
		Str("rate", cfg.Rate).
		Msg("MMA8451 initialized")

	return dev, nil
}

type unavailable struct {
	err error
}

// Unavailable returns a device whose reads always fail with cause.
func Unavailable(cause error) Device {
	return &unavailable{err: cause}
}

func (u *unavailable) ReadSample() (Sample, error) {
	return Sample{}, errors.New().Wrap(ErrNotInitialized, u.err)
}

func (*unavailable) Name() string { return "unavailable" }
func (*unavailable) Close() error { return nil }
