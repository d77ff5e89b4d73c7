package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/GoCodeAlone/appkit"
	"github.com/GoCodeAlone/appkit/config"
	"github.com/GoCodeAlone/appkit/events"
	"github.com/GoCodeAlone/appkit/metrics"
	"github.com/GoCodeAlone/appkit/phaselog"
	"github.com/GoCodeAlone/appkit/scheduler"
	"github.com/GoCodeAlone/appkit/status"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// DemoConfig is the "demo" configuration section.
type DemoConfig struct {
	Greeting  string `yaml:"greeting" toml:"greeting" json:"greeting" env:"GREETING" default:"hello"`
	Heartbeat string `yaml:"heartbeat" toml:"heartbeat" json:"heartbeat" env:"HEARTBEAT" default:"@every 30s"`
}

// demoApp wires every bundled extension. Run blocks until its context is
// done unless once is set.
type demoApp struct {
	appkit.Base
	opts RunOptions

	cfg       DemoConfig
	loader    *config.Loader
	emitter   *events.Emitter
	metrics   *metrics.Extension
	scheduler *scheduler.Scheduler
	status    *status.Server
}

func newDemoApp(opts RunOptions) (*demoApp, error) {
	loader, err := newLoader(opts)
	if err != nil {
		return nil, err
	}
	m := metrics.New(metrics.WithRuntimeCollectors())
	a := &demoApp{
		opts:      opts,
		loader:    loader,
		emitter:   events.NewEmitter(),
		metrics:   m,
		scheduler: scheduler.New(),
		status:    status.New(opts.StatusAddr, status.WithHandler("/metrics", m.Handler())),
	}
	if err := loader.Register("demo", &a.cfg); err != nil {
		return nil, err
	}
	return a, nil
}

func newLoader(opts RunOptions) (*config.Loader, error) {
	loader := config.NewLoader()
	if opts.ConfigFile != "" {
		switch ext := strings.ToLower(filepath.Ext(opts.ConfigFile)); ext {
		case ".yaml", ".yml":
			loader.AddFeeder(config.NewYAMLFile(opts.ConfigFile))
		case ".toml":
			loader.AddFeeder(config.NewTOMLFile(opts.ConfigFile))
		case ".json":
			loader.AddFeeder(config.NewJSONFile(opts.ConfigFile))
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedConfigFormat, ext)
		}
	}
	if opts.EnvPrefix != "" {
		loader.AddFeeder(config.NewPrefixedEnv(opts.EnvPrefix))
	}
	return loader, nil
}

func (*demoApp) Name() string { return "appkit-demo" }

func (*demoApp) Version() string { return Version }

func (a *demoApp) Create(app *appkit.Application) error {
	var configOpts []config.ExtensionOption
	if a.opts.Watch {
		configOpts = append(configOpts, config.WithWatch(func(path string) {
			app.Logger().Warn("Configuration changed on disk; restart to apply", "file", path)
		}))
	}

	err := a.emitter.RegisterObserver(events.NewFunctionalObserver("demo-logger", func(_ context.Context, event cloudevents.Event) error {
		app.Logger().Debug("Lifecycle event", "type", event.Type(), "id", event.ID(), "phase", event.Extensions()["phase"])
		return nil
	}))
	if err != nil {
		return err
	}

	app.RegisterExtension(phaselog.New())
	app.RegisterExtension(a.emitter)
	app.RegisterExtension(a.metrics)
	app.RegisterExtension(config.NewExtension(a.loader, configOpts...))
	app.RegisterExtension(a.scheduler)
	app.RegisterExtension(a.status)
	return nil
}

func (a *demoApp) Configure(ctx context.Context, app *appkit.Application) (appkit.Result, error) {
	if _, err := a.Base.Configure(ctx, app); err != nil {
		return nil, err
	}

	err := a.scheduler.AddJob("heartbeat", a.cfg.Heartbeat, func(context.Context) error {
		app.Logger().Info("Heartbeat", "app", app.Name(), "greeting", a.cfg.Greeting)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a.cfg, nil
}

func (a *demoApp) Run(ctx context.Context, app *appkit.Application) (appkit.Result, error) {
	app.Logger().Info(a.cfg.Greeting, "app", app.Name(), "status", a.status.Addr())
	if a.opts.Once {
		return nil, nil
	}

	<-ctx.Done()
	app.Logger().Info("Stop requested", "app", app.Name())
	return nil, nil
}
