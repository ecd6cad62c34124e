package logger

import "codeberg.org/mutker/acclogger/internal/errors"

// Logger is the logging surface handed to components. Implementations are
// cheap value types bound to a component name.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	ErrorWithCode(err errors.Error) *LogEvent
}
