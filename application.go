package appkit

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync/atomic"
)

// Application is the lifecycle-managed singleton for one blueprint type.
// Obtain it with Instance or InstanceOf, then call Main once.
type Application struct {
	blueprint  Blueprint
	name       string
	version    string
	logger     Logger
	extensions []Extension
	hooks      *hookTable

	state   atomic.Int32
	phase   atomic.Value // Phase
	started atomic.Bool
}

func newApplication(bp Blueprint) *Application {
	app := &Application{
		blueprint: bp,
		name:      bp.Name(),
		version:   bp.Version(),
		logger:    discardLogger{},
		hooks:     newHookTable(),
	}
	app.phase.Store(Phase(""))
	return app
}

// Name returns the application name.
func (app *Application) Name() string {
	return app.name
}

// Version returns the application version.
func (app *Application) Version() string {
	return app.version
}

// Blueprint returns the blueprint the application was built from.
func (app *Application) Blueprint() Blueprint {
	return app.blueprint
}

// Logger returns the application logger.
func (app *Application) Logger() Logger {
	return app.logger
}

// State returns the current lifecycle state. It is safe to call from any
// goroutine.
//
// The state advances when a phase body returns, so while a long-running
// run body executes State reports StateConfigured. Use Phase to see which
// phase is executing.
func (app *Application) State() State {
	return State(app.state.Load())
}

// Phase returns the phase currently executing, or the last phase entered.
// It is empty before create starts. It is safe to call from any goroutine.
func (app *Application) Phase() Phase {
	p, _ := app.phase.Load().(Phase)
	return p
}

// Extensions returns the registered extensions in registration order.
func (app *Application) Extensions() []Extension {
	out := make([]Extension, len(app.extensions))
	copy(out, app.extensions)
	return out
}

// RegisterExtension appends ext to the extension list. Hooks are resolved
// at this point and fire in registration order.
//
// Registration is only allowed before create completes, which in practice
// means from an Option or from the blueprint's Create. An extension is
// registered at most once. Registering later, registering nil or
// registering the same extension again is a programming error and panics.
func (app *Application) RegisterExtension(ext Extension) {
	if ext == nil {
		panic(fmt.Errorf("%w: application %s", ErrNilExtension, app.name))
	}
	if app.State() != StateUninitialized {
		panic(fmt.Errorf("%w: application %s, extension %s", ErrRegistrationClosed, app.name, ext.Name()))
	}
	if app.hasExtension(ext) {
		panic(fmt.Errorf("%w: application %s, extension %s", ErrDuplicateExtension, app.name, ext.Name()))
	}

	app.extensions = append(app.extensions, ext)
	app.hooks.add(ext)
	app.logger.Debug("Registered extension", "app", app.name, "extension", ext.Name(), "position", len(app.extensions))
}

// Main drives the lifecycle: init_app, configure, run and shutdown are
// dispatched in that order. The first failing hook or phase body aborts the
// sequence and its error is returned; later phases do not run, shutdown
// included.
//
// Main does not run create. Create runs exactly once inside Instance or
// InstanceOf, when the application is built, so that extensions can only be
// registered before the application is handed out. By the time Main is
// called the application is in StateCreated.
//
// Main runs on the calling goroutine and may be called once. A second call
// panics.
func (app *Application) Main(ctx context.Context) error {
	if !app.started.CompareAndSwap(false, true) {
		panic(fmt.Errorf("%w: application %s", ErrAlreadyStarted, app.name))
	}
	if s := app.State(); s != StateCreated {
		panic(fmt.Errorf("%w: application %s is %s", ErrAlreadyStarted, app.name, s))
	}

	app.logger.Info("Starting application", "app", app.name, "version", app.version)

	for _, phase := range hookPhases {
		if _, err := app.dispatch(ctx, phase); err != nil {
			app.logger.Error("Application lifecycle aborted", "app", app.name, "phase", phase, "error", err)
			return err
		}
	}

	app.logger.Info("Application finished", "app", app.name)
	return nil
}

func (app *Application) hasExtension(ext Extension) bool {
	return slices.ContainsFunc(app.extensions, func(e Extension) bool { return sameExtension(e, ext) })
}

// sameExtension reports whether a and b are the same extension value.
// Values of non-comparable types are never considered the same.
func sameExtension(a, b Extension) bool {
	t := reflect.TypeOf(a)
	if t != reflect.TypeOf(b) || !t.Comparable() {
		return false
	}
	return a == b
}

// create runs the create phase. Extension registration is open until it
// returns.
func (app *Application) create() error {
	app.phase.Store(PhaseCreate)

	if c, ok := app.blueprint.(Creator); ok {
		if err := c.Create(app); err != nil {
			app.logger.Error("Create failed", "app", app.name, "error", err)
			return fmt.Errorf("%s: %w", PhaseCreate, err)
		}
	}

	app.state.Store(int32(StateCreated))
	app.logger.Info("Application created", "app", app.name, "version", app.version, "extensions", len(app.extensions))
	return nil
}
