package errors

// ErrorCode identifies an error kind. Codes are stable strings so they can be
// logged and returned to HTTP clients as-is.
type ErrorCode string

func (c ErrorCode) String() string { return string(c) }

// Error is a coded domain error carrying an optional message override,
// wrapped cause and structured data.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory creates coded errors.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrUnavailable     ErrorCode = "service_unavailable"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Recording session errors
	ErrAlreadyRecording    ErrorCode = "already_recording"
	ErrStorageUnavailable  ErrorCode = "storage_unavailable"
	ErrFileOpen            ErrorCode = "file_open_failed"
	ErrRecordingInProgress ErrorCode = "recording_in_progress"

	// Request and file errors
	ErrMissingParameter ErrorCode = "missing_parameter"
	ErrNotFound         ErrorCode = "not_found"
	ErrRemoveFailed     ErrorCode = "remove_failed"
	ErrInvalidName      ErrorCode = "invalid_name"

	// Operation errors
	ErrOperationFailed ErrorCode = "operation_failed"
	ErrTimeout         ErrorCode = "operation_timeout"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:            "Internal error occurred",
	ErrInvalidArgument:     "Invalid argument provided",
	ErrUnavailable:         "Service unavailable",
	ErrAlreadyRunning:      "Another instance is already running",
	ErrInvalidConfig:       "Invalid configuration",
	ErrReadConfig:          "Failed to read config file",
	ErrBindFlags:           "Failed to bind flags",
	ErrInvalidInterval:     "Invalid interval value",
	ErrInvalidLogLevel:     "Invalid log level",
	ErrInitFailed:          "Initialization failed",
	ErrShutdownFailed:      "Shutdown failed",
	ErrAlreadyRecording:    "Already recording",
	ErrStorageUnavailable:  "Storage not available",
	ErrFileOpen:            "Failed to open file",
	ErrRecordingInProgress: "Recording in progress",
	ErrMissingParameter:    "Missing parameter",
	ErrNotFound:            "File not found",
	ErrRemoveFailed:        "Failed to remove file",
	ErrInvalidName:         "Invalid file name",
	ErrOperationFailed:     "Operation failed",
	ErrTimeout:             "Operation timed out",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
