package appkit

// Logger defines the interface for application logging.
// Framework operations (phase dispatch, hook invocation, extension
// registration) are logged through it using key-value pairs:
//
//	logger.Info("message", "key1", "value1", "key2", "value2")
//
// log/slog loggers and the zap adapter in the logging package both
// satisfy it.
type Logger interface {
	// Info logs an informational message, such as an application being created.
	Info(msg string, args ...any)

	// Error logs a failure, such as a phase or hook returning an error.
	Error(msg string, args ...any)

	// Warn logs an unusual condition that does not stop the lifecycle.
	Warn(msg string, args ...any)

	// Debug logs diagnostic detail like individual hook invocations.
	Debug(msg string, args ...any)
}

// discardLogger is used when no logger is configured.
type discardLogger struct{}

func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Debug(string, ...any) {}
