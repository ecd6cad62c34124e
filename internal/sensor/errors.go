package sensor

import "codeberg.org/mutker/acclogger/internal/errors"

const (
	ErrNotInitialized = errors.ErrorCode("sensor_not_initialized")
	ErrInitFailed     = errors.ErrorCode("sensor_init_failed")
	ErrReadFailed     = errors.ErrorCode("sensor_read_failed")
	ErrUnknownDriver  = errors.ErrorCode("sensor_unknown_driver")
	ErrInvalidSetting = errors.ErrorCode("sensor_invalid_setting")
)
