// Package phaselog provides an extension that logs every lifecycle phase
// with its duration.
package phaselog

import (
	"context"
	"sync"
	"time"

	"github.com/GoCodeAlone/appkit"
)

// Extension logs each hookable phase as it starts and completes.
type Extension struct {
	now func() time.Time

	mu      sync.Mutex
	started map[appkit.Phase]time.Time
}

// New returns a phase logging extension.
func New() *Extension {
	return &Extension{
		now:     time.Now,
		started: make(map[appkit.Phase]time.Time),
	}
}

// Name implements appkit.Extension.
func (e *Extension) Name() string { return "phaselog" }

func (e *Extension) pre(_ context.Context, evt appkit.Event, app *appkit.Application) error {
	e.mu.Lock()
	e.started[evt.Phase] = e.now()
	e.mu.Unlock()

	app.Logger().Info("Phase starting", "app", evt.App, "phase", evt.Phase, "state", app.State())
	return nil
}

func (e *Extension) post(_ context.Context, evt appkit.Event, app *appkit.Application, _ appkit.Result) error {
	e.mu.Lock()
	start, ok := e.started[evt.Phase]
	delete(e.started, evt.Phase)
	e.mu.Unlock()

	var elapsed time.Duration
	if ok {
		elapsed = e.now().Sub(start)
	}
	app.Logger().Info("Phase completed", "app", evt.App, "phase", evt.Phase, "state", app.State(), "elapsed", elapsed)
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
