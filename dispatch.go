package appkit

import (
	"context"
	"fmt"
)

// Entries pair a hook with the extension name captured at registration.
type preEntry struct {
	name string
	hook PreHookFunc
}

type postEntry struct {
	name string
	hook PostHookFunc
}

// hookTable caches, per phase, the hooks of every registered extension in
// registration order. Dispatch iterates only over extensions that bound a
// hook to the phase.
type hookTable struct {
	pre  map[Phase][]preEntry
	post map[Phase][]postEntry
}

func newHookTable() *hookTable {
	return &hookTable{
		pre:  make(map[Phase][]preEntry, len(hookPhases)),
		post: make(map[Phase][]postEntry, len(hookPhases)),
	}
}

func (t *hookTable) add(ext Extension) {
	name := ext.Name()
	for _, phase := range hookPhases {
		if h, ok := preHookOf(ext, phase); ok {
			t.pre[phase] = append(t.pre[phase], preEntry{name, h})
		}
		if h, ok := postHookOf(ext, phase); ok {
			t.post[phase] = append(t.post[phase], postEntry{name, h})
		}
	}
}

// dispatch fires the pre hooks for phase, runs the phase body, then fires
// the post hooks with the body's result. Pre and post hooks both run in
// registration order. The first error stops the dispatch.
func (app *Application) dispatch(ctx context.Context, phase Phase) (Result, error) {
	body := phaseBody(app.blueprint, phase)
	if body == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
	}

	app.phase.Store(phase)
	app.logger.Debug("Phase starting", "app", app.name, "phase", phase)

	pre := Event{Phase: phase, Position: PositionPre, App: app.name}
	for _, e := range app.hooks.pre[phase] {
		app.logger.Debug("Firing hook", "app", app.name, "extension", e.name, "hook", pre.Hook())
		if err := e.hook(ctx, pre, app); err != nil {
			return nil, app.hookFailed(e.name, pre, err)
		}
	}

	result, err := body(ctx, app)
	if err != nil {
		app.logger.Error("Phase failed", "app", app.name, "phase", phase, "error", err)
		return nil, fmt.Errorf("%s: %w", phase, err)
	}
	app.state.Store(int32(stateAfter[phase]))

	post := Event{Phase: phase, Position: PositionPost, App: app.name}
	for _, e := range app.hooks.post[phase] {
		app.logger.Debug("Firing hook", "app", app.name, "extension", e.name, "hook", post.Hook())
		if err := e.hook(ctx, post, app, result); err != nil {
			return result, app.hookFailed(e.name, post, err)
		}
	}

	app.logger.Debug("Phase completed", "app", app.name, "phase", phase, "state", app.State())
	return result, nil
}

func (app *Application) hookFailed(extension string, evt Event, err error) error {
	app.logger.Error("Extension hook failed", "app", app.name, "extension", extension, "hook", evt.Hook(), "error", err)
	return fmt.Errorf("%w: extension %s %s: %w", ErrHookFailed, extension, evt.Hook(), err)
}
