package appkit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	errBoom      = errors.New("boom")
	errHookBoom  = errors.New("hook boom")
	errCreateBad = errors.New("create failed")
)

// tracer is implemented by blueprints that record what happened to them.
type tracer interface {
	record(entry string)
}

// traceApp is the end-to-end blueprint: it registers two extensions in
// Create and records every phase body it runs.
type traceApp struct {
	Base
	trace []string
}

func (*traceApp) Name() string    { return "svc" }
func (*traceApp) Version() string { return "1.0" }

func (a *traceApp) record(entry string) { a.trace = append(a.trace, entry) }

func (a *traceApp) Create(app *Application) error {
	if err := a.Base.Create(app); err != nil {
		return err
	}
	app.RegisterExtension(&fullTraceExtension{name: "E1"})
	app.RegisterExtension(&initPostExtension{i: 100})
	a.trace = []string{}
	return nil
}

func (a *traceApp) InitApp(ctx context.Context, app *Application) (Result, error) {
	if _, err := a.Base.InitApp(ctx, app); err != nil {
		return nil, err
	}
	a.record("init_app")
	return nil, nil
}

func (a *traceApp) Configure(ctx context.Context, app *Application) (Result, error) {
	if _, err := a.Base.Configure(ctx, app); err != nil {
		return nil, err
	}
	a.record("configure")
	return nil, nil
}

func (a *traceApp) Run(context.Context, *Application) (Result, error) {
	a.record("run")
	return nil, nil
}

func (a *traceApp) Shutdown(ctx context.Context, app *Application) (Result, error) {
	if _, err := a.Base.Shutdown(ctx, app); err != nil {
		return nil, err
	}
	a.record("shutdown")
	return nil, nil
}

// fullTraceExtension implements every hook and records "<name>.<hook>".
type fullTraceExtension struct {
	name string
	fail string // hook name that returns errHookBoom
}

func (e *fullTraceExtension) Name() string { return e.name }

func (e *fullTraceExtension) pre(evt Event, app *Application) error {
	app.Blueprint().(tracer).record(e.name + "." + evt.Hook())
	if evt.Hook() == e.fail {
		return errHookBoom
	}
	return nil
}

func (e *fullTraceExtension) post(evt Event, app *Application) error {
	return e.pre(evt, app)
}

func (e *fullTraceExtension) InitAppPre(_ context.Context, evt Event, app *Application) error {
	return e.pre(evt, app)
}

func (e *fullTraceExtension) InitAppPost(_ context.Context, evt Event, app *Application, _ Result) error {
	return e.post(evt, app)
}

func (e *fullTraceExtension) ConfigurePre(_ context.Context, evt Event, app *Application) error {
	return e.pre(evt, app)
}

func (e *fullTraceExtension) ConfigurePost(_ context.Context, evt Event, app *Application, _ Result) error {
	return e.post(evt, app)
}

func (e *fullTraceExtension) RunPre(_ context.Context, evt Event, app *Application) error {
	return e.pre(evt, app)
}

func (e *fullTraceExtension) RunPost(_ context.Context, evt Event, app *Application, _ Result) error {
	return e.post(evt, app)
}

func (e *fullTraceExtension) ShutdownPre(_ context.Context, evt Event, app *Application) error {
	return e.pre(evt, app)
}

func (e *fullTraceExtension) ShutdownPost(_ context.Context, evt Event, app *Application, _ Result) error {
	return e.post(evt, app)
}

// initPostExtension only observes the end of init_app.
type initPostExtension struct {
	i int
}

func (e *initPostExtension) Name() string { return "E2" }

func (e *initPostExtension) InitAppPost(_ context.Context, _ Event, app *Application, _ Result) error {
	app.Blueprint().(tracer).record(fmt.Sprintf("E2.init_app_post(i=%d)", e.i))
	return nil
}

func TestApplicationEndToEndTrace(t *testing.T) {
	app, err := Instance[traceApp](WithLogger(&logger{t: t}))
	require.NoError(t, err)
	require.NoError(t, app.Main(context.Background()))

	bp := app.Blueprint().(*traceApp)
	assert.Equal(t, []string{
		"E1.init_app_pre",
		"init_app",
		"E1.init_app_post",
		"E2.init_app_post(i=100)",
		"E1.configure_pre",
		"configure",
		"E1.configure_post",
		"E1.run_pre",
		"run",
		"E1.run_post",
		"E1.shutdown_pre",
		"shutdown",
		"E1.shutdown_post",
	}, bp.trace)
	assert.Equal(t, StateShutDown, app.State())
	assert.Equal(t, PhaseShutdown, app.Phase())
}

type membersApp struct{ Base }

func (*membersApp) Name() string    { return "test-application" }
func (*membersApp) Version() string { return "100.0.1" }

func TestApplicationMembers(t *testing.T) {
	app, err := Instance[membersApp]()
	require.NoError(t, err)

	assert.Equal(t, "test-application", app.Name())
	assert.Equal(t, "100.0.1", app.Version())
	assert.Empty(t, app.Extensions())
	assert.Equal(t, StateCreated, app.State())
	assert.Equal(t, PhaseCreate, app.Phase())
	assert.IsType(t, &membersApp{}, app.Blueprint())
}

// orderApp records phase bodies only, with no extensions.
type orderApp struct {
	trace []string
}

func (*orderApp) Name() string    { return "order" }
func (*orderApp) Version() string { return "0" }

func (a *orderApp) Create(*Application) error {
	a.trace = append(a.trace, "create")
	return nil
}

func (a *orderApp) InitApp(context.Context, *Application) (Result, error) {
	a.trace = append(a.trace, "init_app")
	return nil, nil
}

func (a *orderApp) Configure(context.Context, *Application) (Result, error) {
	a.trace = append(a.trace, "configure")
	return nil, nil
}

func (a *orderApp) Run(context.Context, *Application) (Result, error) {
	a.trace = append(a.trace, "run")
	return nil, nil
}

func (a *orderApp) Shutdown(context.Context, *Application) (Result, error) {
	a.trace = append(a.trace, "shutdown")
	return nil, nil
}

func TestApplicationPhaseOrdering(t *testing.T) {
	app, err := Instance[orderApp]()
	require.NoError(t, err)
	require.NoError(t, app.Main(context.Background()))

	assert.Equal(t, []string{"create", "init_app", "configure", "run", "shutdown"},
		app.Blueprint().(*orderApp).trace)
}

type noRunApp struct{ Base }

func (*noRunApp) Name() string    { return "test-application1" }
func (*noRunApp) Version() string { return "0" }

type withRunApp struct{ Base }

func (*withRunApp) Name() string    { return "test-application2" }
func (*withRunApp) Version() string { return "0" }

func (*withRunApp) Run(context.Context, *Application) (Result, error) { return nil, nil }

func TestApplicationRunNotImplemented(t *testing.T) {
	t1, err := Instance[noRunApp]()
	require.NoError(t, err)
	err = t1.Main(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotImplemented)
	assert.Equal(t, StateConfigured, t1.State(), "shutdown must not run after run fails")

	t2, err := Instance[withRunApp]()
	require.NoError(t, err)
	require.NoError(t, t2.Main(context.Background()))
	assert.Equal(t, StateShutDown, t2.State())
}

// bareApp implements nothing beyond Blueprint, not even Base.
type bareApp struct{}

func (bareApp) Name() string    { return "bare" }
func (bareApp) Version() string { return "0" }

func TestApplicationWithoutBaseFailsRun(t *testing.T) {
	app, err := InstanceOf(bareApp{})
	require.NoError(t, err)
	assert.ErrorIs(t, app.Main(context.Background()), ErrNotImplemented)
}

type twiceApp struct{ withRunApp }

func TestApplicationMainTwicePanics(t *testing.T) {
	app, err := Instance[twiceApp]()
	require.NoError(t, err)
	require.NoError(t, app.Main(context.Background()))

	err = recoverError(func() { _ = app.Main(context.Background()) })
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

type lateRegisterApp struct{ withRunApp }

func TestApplicationRegisterAfterCreatePanics(t *testing.T) {
	app, err := Instance[lateRegisterApp]()
	require.NoError(t, err)

	err = recoverError(func() { app.RegisterExtension(NewFuncExtension("late")) })
	assert.ErrorIs(t, err, ErrRegistrationClosed)
	assert.Empty(t, app.Extensions())

	err = recoverError(func() { app.RegisterExtension(nil) })
	assert.ErrorIs(t, err, ErrNilExtension)
}

// twiceRegisterApp registers the same extension twice from Create.
type twiceRegisterApp struct {
	withRunApp
	ext Extension
}

func (a *twiceRegisterApp) Create(app *Application) error {
	app.RegisterExtension(a.ext)
	app.RegisterExtension(a.ext)
	return nil
}

func TestApplicationDuplicateRegistrationPanics(t *testing.T) {
	ext := &fullTraceExtension{name: "E1"}
	err := recoverError(func() { _, _ = build(&twiceRegisterApp{ext: ext}, nil) })
	assert.ErrorIs(t, err, ErrDuplicateExtension)

	_, err = build(&withRunApp{}, []Option{WithExtensions(ext, ext)})
	assert.ErrorIs(t, err, ErrDuplicateExtension)

	app, err := build(&withRunApp{}, []Option{WithExtensions(
		&fullTraceExtension{name: "E1"},
		&fullTraceExtension{name: "E1"},
		everyHook{},
	)})
	require.NoError(t, err, "distinct values sharing a name are different extensions")
	assert.Len(t, app.Extensions(), 3)
}

// hookFailApp fails the hook named in failHook.
type hookFailApp struct {
	Base
	failHook string
	trace    []string
}

func (*hookFailApp) Name() string    { return "hook-fail" }
func (*hookFailApp) Version() string { return "0" }

func (a *hookFailApp) record(entry string) { a.trace = append(a.trace, entry) }

func (a *hookFailApp) Create(app *Application) error {
	app.RegisterExtension(&fullTraceExtension{name: "E1", fail: a.failHook})
	app.RegisterExtension(&fullTraceExtension{name: "E2"})
	return nil
}

func (a *hookFailApp) Run(context.Context, *Application) (Result, error) {
	a.record("run")
	return nil, nil
}

func TestApplicationHookFailureAborts(t *testing.T) {
	tests := []struct {
		name     string
		failHook string
		want     []string
		state    State
	}{
		{
			name:     "pre hook stops the phase body",
			failHook: "run_pre",
			want: []string{
				"E1.init_app_pre", "E2.init_app_pre", "E1.init_app_post", "E2.init_app_post",
				"E1.configure_pre", "E2.configure_pre", "E1.configure_post", "E2.configure_post",
				"E1.run_pre",
			},
			state: StateConfigured,
		},
		{
			name:     "post hook stops later hooks and phases",
			failHook: "init_app_post",
			want:     []string{"E1.init_app_pre", "E2.init_app_pre", "E1.init_app_post"},
			state:    StateInitialized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, err := build(&hookFailApp{failHook: tt.failHook}, []Option{WithLogger(&logger{t: t})})
			require.NoError(t, err)

			err = app.Main(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrHookFailed)
			assert.ErrorIs(t, err, errHookBoom)
			assert.Contains(t, err.Error(), "E1")
			assert.Contains(t, err.Error(), tt.failHook)

			assert.Equal(t, tt.want, app.Blueprint().(*hookFailApp).trace)
			assert.Equal(t, tt.state, app.State())
		})
	}
}

type failingConfigureApp struct {
	withRunApp
	ran bool
}

func (a *failingConfigureApp) Configure(context.Context, *Application) (Result, error) {
	return nil, errBoom
}

func (a *failingConfigureApp) Run(context.Context, *Application) (Result, error) {
	a.ran = true
	return nil, nil
}

func TestApplicationPhaseFailureSkipsPostHooks(t *testing.T) {
	postFired := false
	ext := NewFuncExtension("watcher").
		Post(PhaseConfigure, func(context.Context, Event, *Application, Result) error {
			postFired = true
			return nil
		})

	bp := &failingConfigureApp{}
	app, err := build(bp, []Option{WithExtensions(ext)})
	require.NoError(t, err)

	err = app.Main(context.Background())
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "configure")
	assert.False(t, postFired)
	assert.False(t, bp.ran)
	assert.Equal(t, StateInitialized, app.State())
}

type createFailApp struct{ Base }

func (*createFailApp) Name() string              { return "create-fail" }
func (*createFailApp) Version() string           { return "0" }
func (*createFailApp) Create(*Application) error { return errCreateBad }

func TestApplicationCreateFailureIsRemembered(t *testing.T) {
	_, err := Instance[createFailApp]()
	require.ErrorIs(t, err, errCreateBad)

	_, err2 := Instance[createFailApp]()
	assert.Equal(t, err, err2)

	_, ok := Lookup[createFailApp]()
	assert.False(t, ok)
}

type loggedApp struct{ withRunApp }

func TestApplicationLogsLifecycle(t *testing.T) {
	mockLogger := &MockLogger{}
	mockLogger.On("Debug", mock.Anything, mock.Anything).Return()
	mockLogger.On("Info", mock.Anything, mock.Anything).Return()

	app, err := build(&loggedApp{}, []Option{WithLogger(mockLogger)})
	require.NoError(t, err)
	require.NoError(t, app.Main(context.Background()))

	mockLogger.AssertCalled(t, "Info", "Application created", mock.Anything)
	mockLogger.AssertCalled(t, "Info", "Starting application", mock.Anything)
	mockLogger.AssertCalled(t, "Info", "Application finished", mock.Anything)
	mockLogger.AssertCalled(t, "Debug", "Phase completed", mock.Anything)
	mockLogger.AssertNotCalled(t, "Error", mock.Anything, mock.Anything)
}

func TestApplicationStateIsReadableConcurrently(t *testing.T) {
	var observed atomic.Int32
	var wg sync.WaitGroup
	stop := make(chan struct{})

	app, err := build(&loggedApp{}, nil)
	require.NoError(t, err)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				observed.Store(int32(app.State()))
				_ = app.Phase()
			}
		}
	}()

	require.NoError(t, app.Main(context.Background()))
	close(stop)
	wg.Wait()
	assert.Equal(t, StateShutDown, app.State())
}

// recoverError runs fn and returns the error it panicked with.
func recoverError(fn func()) (err error) {
	defer func() {
		r := recover()
		if e, ok := r.(error); ok {
			err = e
		}
	}()
	fn()
	return nil
}
