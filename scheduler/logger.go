package scheduler

import "github.com/GoCodeAlone/appkit"

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}

type loggerBox struct {
	appkit.Logger
}

func (s *Scheduler) log() appkit.Logger {
	if b, ok := s.logger.Load().(loggerBox); ok && b.Logger != nil {
		return b.Logger
	}
	return nopLogger{}
}

// cronLogger routes cron's internal logging to the application logger.
// cron's chatty info messages go to debug.
type cronLogger struct {
	s *Scheduler
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.log().Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.log().Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
