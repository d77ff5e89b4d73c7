package appkit

import "context"

// Blueprint describes a concrete application type. The Go type of the
// blueprint is the application's identity: every blueprint type has at most
// one Application per process.
//
// A blueprint supplies phase bodies by implementing any of Creator,
// Initializer, Configurer, Runner and Shutdowner. Phases it leaves out use
// the defaults in Base, which are no-ops except Run.
type Blueprint interface {
	// Name identifies the application. It must not be empty.
	Name() string

	// Version is the application version. It must not be empty.
	Version() string
}

// Creator supplies the create phase body. Create is where extensions are
// registered; no hooks fire around it.
type Creator interface {
	Create(app *Application) error
}

// Initializer supplies the init_app phase body.
type Initializer interface {
	InitApp(ctx context.Context, app *Application) (Result, error)
}

// Configurer supplies the configure phase body.
type Configurer interface {
	Configure(ctx context.Context, app *Application) (Result, error)
}

// Runner supplies the run phase body. A blueprint without one fails Main
// with ErrNotImplemented.
type Runner interface {
	Run(ctx context.Context, app *Application) (Result, error)
}

// Shutdowner supplies the shutdown phase body.
type Shutdowner interface {
	Shutdown(ctx context.Context, app *Application) (Result, error)
}

// Base holds the default phase bodies. Blueprints embed it and call through
// to it explicitly when they override a phase:
//
//	func (s *Service) Configure(ctx context.Context, app *appkit.Application) (appkit.Result, error) {
//		if _, err := s.Base.Configure(ctx, app); err != nil {
//			return nil, err
//		}
//		// service specific configuration
//		return nil, nil
//	}
type Base struct{}

// Create does nothing.
func (Base) Create(*Application) error { return nil }

// InitApp does nothing.
func (Base) InitApp(context.Context, *Application) (Result, error) { return nil, nil }

// Configure does nothing.
func (Base) Configure(context.Context, *Application) (Result, error) { return nil, nil }

// Run must be provided by the concrete application.
func (Base) Run(context.Context, *Application) (Result, error) { return nil, ErrNotImplemented }

// Shutdown does nothing.
func (Base) Shutdown(context.Context, *Application) (Result, error) { return nil, nil }

// phaseBody resolves the body bp supplies for a dispatched phase, falling
// back to Base.
func phaseBody(bp Blueprint, phase Phase) func(context.Context, *Application) (Result, error) {
	var base Base
	switch phase {
	case PhaseInitApp:
		if b, ok := bp.(Initializer); ok {
			return b.InitApp
		}
		return base.InitApp
	case PhaseConfigure:
		if b, ok := bp.(Configurer); ok {
			return b.Configure
		}
		return base.Configure
	case PhaseRun:
		if b, ok := bp.(Runner); ok {
			return b.Run
		}
		return base.Run
	case PhaseShutdown:
		if b, ok := bp.(Shutdowner); ok {
			return b.Shutdown
		}
		return base.Shutdown
	case PhaseCreate:
	}
	return nil
}
