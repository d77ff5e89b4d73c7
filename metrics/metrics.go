// Package metrics exports lifecycle metrics in the Prometheus format.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/GoCodeAlone/appkit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Extension records phase durations, completed phases and the current
// lifecycle state in its own registry.
type Extension struct {
	registry *prometheus.Registry

	PhaseDuration   *prometheus.HistogramVec
	PhasesCompleted *prometheus.CounterVec
	State           *prometheus.GaugeVec

	now     func() time.Time
	mu      sync.Mutex
	started map[appkit.Phase]time.Time
}

// Option configures an Extension.
type Option func(*options)

type options struct {
	namespace string
	runtime   bool
}

// WithNamespace sets the metric name prefix. The default is "appkit".
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithRuntimeCollectors adds the Go runtime and process collectors.
func WithRuntimeCollectors() Option {
	return func(o *options) { o.runtime = true }
}

// New creates the extension and its registry.
func New(opts ...Option) *Extension {
	o := options{namespace: "appkit"}
	for _, opt := range opts {
		opt(&o)
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	e := &Extension{
		registry: reg,
		PhaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: o.namespace,
				Name:      "phase_duration_seconds",
				Help:      "Time from a phase's pre hooks to its post hooks",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"app", "phase"},
		),
		PhasesCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: o.namespace,
				Name:      "phases_completed_total",
				Help:      "Number of lifecycle phases that completed",
			},
			[]string{"app", "phase"},
		),
		State: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: o.namespace,
				Name:      "application_state",
				Help:      "Current lifecycle state (0 uninitialized through 5 shutdown)",
			},
			[]string{"app"},
		),
		now:     time.Now,
		started: make(map[appkit.Phase]time.Time),
	}
	if o.runtime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return e
}

// Name implements appkit.Extension.
func (e *Extension) Name() string { return "metrics" }

// Registry returns the registry holding the extension's metrics.
func (e *Extension) Registry() *prometheus.Registry { return e.registry }

// Handler serves the registry in the Prometheus exposition format.
func (e *Extension) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}

func (e *Extension) pre(_ context.Context, evt appkit.Event, app *appkit.Application) error {
	e.mu.Lock()
	e.started[evt.Phase] = e.now()
	e.mu.Unlock()

	e.State.WithLabelValues(app.Name()).Set(float64(app.State()))
	return nil
}

func (e *Extension) post(_ context.Context, evt appkit.Event, app *appkit.Application, _ appkit.Result) error {
	e.mu.Lock()
	start, ok := e.started[evt.Phase]
	delete(e.started, evt.Phase)
	e.mu.Unlock()

	phase := string(evt.Phase)
	if ok {
		e.PhaseDuration.WithLabelValues(app.Name(), phase).Observe(e.now().Sub(start).Seconds())
	}
	e.PhasesCompleted.WithLabelValues(app.Name(), phase).Inc()
	e.State.WithLabelValues(app.Name()).Set(float64(app.State()))
	return nil
}

// Hooks implements appkit.HookProvider.
func (e *Extension) Hooks() appkit.Hooks {
	hooks := appkit.Hooks{
		Pre:  make(map[appkit.Phase]appkit.PreHookFunc),
		Post: make(map[appkit.Phase]appkit.PostHookFunc),
	}
	for _, phase := range appkit.HookPhases() {
		hooks.Pre[phase] = e.pre
		hooks.Post[phase] = e.post
	}
	return hooks
}

var _ appkit.HookProvider = (*Extension)(nil)
