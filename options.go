package appkit

import (
	"errors"
	"fmt"
)

// ErrNilLogger is returned by WithLogger when given a nil logger.
var ErrNilLogger = errors.New("logger is nil")

// Option configures an application while it is being built. Options run
// before create, in the order given, and only on the first Instance call
// for a blueprint type.
type Option func(*Application) error

// WithLogger sets the application logger.
func WithLogger(logger Logger) Option {
	return func(app *Application) error {
		if logger == nil {
			return ErrNilLogger
		}
		app.logger = logger
		return nil
	}
}

// WithExtensions registers extensions ahead of those the blueprint
// registers in Create.
func WithExtensions(exts ...Extension) Option {
	return func(app *Application) error {
		for _, ext := range exts {
			if ext == nil {
				return ErrNilExtension
			}
			if app.hasExtension(ext) {
				return fmt.Errorf("%w: %s", ErrDuplicateExtension, ext.Name())
			}
			app.RegisterExtension(ext)
		}
		return nil
	}
}
