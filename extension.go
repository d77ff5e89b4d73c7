package appkit

import (
	"context"
	"fmt"
)

// Extension is the base interface all extensions implement. An extension
// opts in to individual lifecycle hooks by implementing the matching hook
// interfaces below, or by implementing HookProvider.
//
// There is no create hook: extensions are registered while create runs, so
// none can observe it.
type Extension interface {
	// Name identifies the extension in logs and errors.
	Name() string
}

// PreHookFunc is called before a phase body runs.
type PreHookFunc func(ctx context.Context, evt Event, app *Application) error

// PostHookFunc is called after a phase body returns, with its result.
type PostHookFunc func(ctx context.Context, evt Event, app *Application, result Result) error

// InitAppPreHook fires before init_app.
type InitAppPreHook interface {
	InitAppPre(ctx context.Context, evt Event, app *Application) error
}

// InitAppPostHook fires after init_app.
type InitAppPostHook interface {
	InitAppPost(ctx context.Context, evt Event, app *Application, result Result) error
}

// ConfigurePreHook fires before configure.
type ConfigurePreHook interface {
	ConfigurePre(ctx context.Context, evt Event, app *Application) error
}

// ConfigurePostHook fires after configure.
type ConfigurePostHook interface {
	ConfigurePost(ctx context.Context, evt Event, app *Application, result Result) error
}

// RunPreHook fires before run.
type RunPreHook interface {
	RunPre(ctx context.Context, evt Event, app *Application) error
}

// RunPostHook fires after run.
type RunPostHook interface {
	RunPost(ctx context.Context, evt Event, app *Application, result Result) error
}

// ShutdownPreHook fires before shutdown.
type ShutdownPreHook interface {
	ShutdownPre(ctx context.Context, evt Event, app *Application) error
}

// ShutdownPostHook fires after shutdown.
type ShutdownPostHook interface {
	ShutdownPost(ctx context.Context, evt Event, app *Application, result Result) error
}

// Hooks is an explicit phase to hook mapping. A phase missing from a map
// means the extension has no hook there.
type Hooks struct {
	Pre  map[Phase]PreHookFunc
	Post map[Phase]PostHookFunc
}

// HookProvider is implemented by extensions that publish their hooks as a
// mapping instead of through the per-hook interfaces. When an extension
// implements HookProvider the interfaces are not consulted.
type HookProvider interface {
	Extension
	Hooks() Hooks
}

// preHookOf returns the pre hook ext binds to phase, if any.
func preHookOf(ext Extension, phase Phase) (PreHookFunc, bool) {
	if hp, ok := ext.(HookProvider); ok {
		h, ok := hp.Hooks().Pre[phase]
		return h, ok && h != nil
	}

	switch phase {
	case PhaseInitApp:
		if h, ok := ext.(InitAppPreHook); ok {
			return h.InitAppPre, true
		}
	case PhaseConfigure:
		if h, ok := ext.(ConfigurePreHook); ok {
			return h.ConfigurePre, true
		}
	case PhaseRun:
		if h, ok := ext.(RunPreHook); ok {
			return h.RunPre, true
		}
	case PhaseShutdown:
		if h, ok := ext.(ShutdownPreHook); ok {
			return h.ShutdownPre, true
		}
	case PhaseCreate:
	}
	return nil, false
}

// postHookOf returns the post hook ext binds to phase, if any.
func postHookOf(ext Extension, phase Phase) (PostHookFunc, bool) {
	if hp, ok := ext.(HookProvider); ok {
		h, ok := hp.Hooks().Post[phase]
		return h, ok && h != nil
	}

	switch phase {
	case PhaseInitApp:
		if h, ok := ext.(InitAppPostHook); ok {
			return h.InitAppPost, true
		}
	case PhaseConfigure:
		if h, ok := ext.(ConfigurePostHook); ok {
			return h.ConfigurePost, true
		}
	case PhaseRun:
		if h, ok := ext.(RunPostHook); ok {
			return h.RunPost, true
		}
	case PhaseShutdown:
		if h, ok := ext.(ShutdownPostHook); ok {
			return h.ShutdownPost, true
		}
	case PhaseCreate:
	}
	return nil, false
}

// FuncExtension provides a simple way to build an extension from
// functions, without defining a type.
//
//	ext := appkit.NewFuncExtension("audit").
//		Pre(appkit.PhaseRun, func(ctx context.Context, evt appkit.Event, app *appkit.Application) error {
//			app.Logger().Info("run starting")
//			return nil
//		})
type FuncExtension struct {
	name  string
	hooks Hooks
}

// NewFuncExtension creates an extension with no hooks bound.
func NewFuncExtension(name string) *FuncExtension {
	return &FuncExtension{
		name: name,
		hooks: Hooks{
			Pre:  make(map[Phase]PreHookFunc),
			Post: make(map[Phase]PostHookFunc),
		},
	}
}

// Name implements Extension.
func (f *FuncExtension) Name() string {
	return f.name
}

// Hooks implements HookProvider.
func (f *FuncExtension) Hooks() Hooks {
	return f.hooks
}

// Pre binds fn as the pre hook for phase, replacing any earlier binding.
// Binding to create or an unknown phase panics.
func (f *FuncExtension) Pre(phase Phase, fn PreHookFunc) *FuncExtension {
	mustBeHookable(phase)
	f.hooks.Pre[phase] = fn
	return f
}

// Post binds fn as the post hook for phase, replacing any earlier binding.
// Binding to create or an unknown phase panics.
func (f *FuncExtension) Post(phase Phase, fn PostHookFunc) *FuncExtension {
	mustBeHookable(phase)
	f.hooks.Post[phase] = fn
	return f
}

func mustBeHookable(phase Phase) {
	if phase == PhaseCreate {
		panic(ErrNoCreateHook)
	}
	if !phase.Hookable() {
		panic(fmt.Errorf("%w: %q", ErrUnknownPhase, phase))
	}
}
