package appkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuncExtension(t *testing.T) {
	t.Parallel()

	called := false
	ext := NewFuncExtension("func-ext").
		Pre(PhaseRun, func(context.Context, Event, *Application) error {
			called = true
			return nil
		})

	assert.Equal(t, "func-ext", ext.Name())

	h, ok := preHookOf(ext, PhaseRun)
	require.True(t, ok)
	require.NoError(t, h(context.Background(), Event{Phase: PhaseRun, Position: PositionPre}, nil))
	assert.True(t, called)

	_, ok = preHookOf(ext, PhaseInitApp)
	assert.False(t, ok)
	_, ok = postHookOf(ext, PhaseRun)
	assert.False(t, ok)
}

func TestFuncExtensionRejectsCreateHook(t *testing.T) {
	t.Parallel()

	ext := NewFuncExtension("create-hook")
	err := recoverError(func() {
		ext.Pre(PhaseCreate, func(context.Context, Event, *Application) error { return nil })
	})
	assert.ErrorIs(t, err, ErrNoCreateHook)

	err = recoverError(func() {
		ext.Post(Phase("deploy"), func(context.Context, Event, *Application, Result) error { return nil })
	})
	assert.ErrorIs(t, err, ErrUnknownPhase)
}

// createHookAttempt has methods that look like create hooks. They are never
// called because no create hook interface exists.
type createHookAttempt struct {
	calls int
}

func (e *createHookAttempt) Name() string { return "create-attempt" }

func (e *createHookAttempt) CreatePre(context.Context, Event, *Application) error {
	e.calls++
	return nil
}

func (e *createHookAttempt) CreatePost(context.Context, Event, *Application, Result) error {
	e.calls++
	return nil
}

func (e *createHookAttempt) InitAppPre(context.Context, Event, *Application) error {
	e.calls++
	return nil
}

type createHooksApp struct {
	withRunApp
	ext *createHookAttempt
}

func (a *createHooksApp) Create(app *Application) error {
	app.RegisterExtension(a.ext)
	return nil
}

func TestNoHooksFireForCreate(t *testing.T) {
	ext := &createHookAttempt{}
	app, err := build(&createHooksApp{ext: ext}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ext.calls, "create must not fire hooks")

	require.NoError(t, app.Main(context.Background()))
	assert.Equal(t, 1, ext.calls, "only init_app_pre fires")

	_, ok := preHookOf(ext, PhaseCreate)
	assert.False(t, ok)
	_, ok = postHookOf(ext, PhaseCreate)
	assert.False(t, ok)
}

// everyHook implements each hook interface so resolution can be checked
// for all eight.
type everyHook struct{}

func (everyHook) Name() string { return "every" }

func (everyHook) InitAppPre(context.Context, Event, *Application) error            { return nil }
func (everyHook) InitAppPost(context.Context, Event, *Application, Result) error   { return nil }
func (everyHook) ConfigurePre(context.Context, Event, *Application) error          { return nil }
func (everyHook) ConfigurePost(context.Context, Event, *Application, Result) error { return nil }
func (everyHook) RunPre(context.Context, Event, *Application) error                { return nil }
func (everyHook) RunPost(context.Context, Event, *Application, Result) error       { return nil }
func (everyHook) ShutdownPre(context.Context, Event, *Application) error           { return nil }
func (everyHook) ShutdownPost(context.Context, Event, *Application, Result) error  { return nil }

var (
	_ InitAppPreHook    = everyHook{}
	_ InitAppPostHook   = everyHook{}
	_ ConfigurePreHook  = everyHook{}
	_ ConfigurePostHook = everyHook{}
	_ RunPreHook        = everyHook{}
	_ RunPostHook       = everyHook{}
	_ ShutdownPreHook   = everyHook{}
	_ ShutdownPostHook  = everyHook{}
	_ HookProvider      = (*FuncExtension)(nil)
)

func TestHookResolutionCoversEveryPhase(t *testing.T) {
	t.Parallel()

	for _, phase := range HookPhases() {
		_, ok := preHookOf(everyHook{}, phase)
		assert.True(t, ok, "pre hook for %s", phase)
		_, ok = postHookOf(everyHook{}, phase)
		assert.True(t, ok, "post hook for %s", phase)
	}
}

// providerWithInterfaces implements HookProvider and a hook interface. The
// mapping wins.
type providerWithInterfaces struct{ everyHook }

func (providerWithInterfaces) Hooks() Hooks {
	return Hooks{Post: map[Phase]PostHookFunc{
		PhaseRun: func(context.Context, Event, *Application, Result) error { return nil },
	}}
}

func TestHookProviderTakesPrecedence(t *testing.T) {
	t.Parallel()

	ext := providerWithInterfaces{}
	_, ok := preHookOf(ext, PhaseRun)
	assert.False(t, ok)
	_, ok = postHookOf(ext, PhaseRun)
	assert.True(t, ok)
}
