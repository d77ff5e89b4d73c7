package appkit

import "fmt"

// Phase names one step of the application lifecycle.
type Phase string

const (
	// PhaseCreate builds the application and registers its extensions.
	// No hooks fire for it.
	PhaseCreate Phase = "create"

	// PhaseInitApp is the first dispatched phase.
	PhaseInitApp Phase = "init_app"

	// PhaseConfigure runs after init_app and before run. Configuration
	// loading belongs here.
	PhaseConfigure Phase = "configure"

	// PhaseRun executes the application's work.
	PhaseRun Phase = "run"

	// PhaseShutdown is the last phase.
	PhaseShutdown Phase = "shutdown"
)

// hookPhases is the dispatch order used by Main.
var hookPhases = []Phase{PhaseInitApp, PhaseConfigure, PhaseRun, PhaseShutdown}

// HookPhases returns the phases that Main dispatches, in order.
func HookPhases() []Phase {
	out := make([]Phase, len(hookPhases))
	copy(out, hookPhases)
	return out
}

// Hookable reports whether extensions can bind hooks to the phase.
func (p Phase) Hookable() bool {
	for _, hp := range hookPhases {
		if hp == p {
			return true
		}
	}
	return false
}

// State is the position of an application in its lifecycle.
type State int32

const (
	StateUninitialized State = iota
	StateCreated
	StateInitialized
	StateConfigured
	StateRunning
	StateShutDown
)

var stateNames = [...]string{
	StateUninitialized: "uninitialized",
	StateCreated:       "created",
	StateInitialized:   "initialized",
	StateConfigured:    "configured",
	StateRunning:       "running",
	StateShutDown:      "shutdown",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int32(s))
	}
	return stateNames[s]
}

// stateAfter maps each phase to the state reached when its body succeeds.
var stateAfter = map[Phase]State{
	PhaseCreate:    StateCreated,
	PhaseInitApp:   StateInitialized,
	PhaseConfigure: StateConfigured,
	PhaseRun:       StateRunning,
	PhaseShutdown:  StateShutDown,
}

// Position tells a hook whether it fires before or after the phase body.
type Position string

const (
	PositionPre  Position = "pre"
	PositionPost Position = "post"
)

// Event identifies the hook being fired. It carries no mutable payload.
type Event struct {
	Phase    Phase
	Position Position
	// App is the name of the application dispatching the event.
	App string
}

// Hook renders the hook name, e.g. "init_app_pre".
func (e Event) Hook() string {
	return string(e.Phase) + "_" + string(e.Position)
}

func (e Event) String() string {
	return e.App + ":" + e.Hook()
}

// Result is the value a phase body returned. It is handed to post hooks
// unchanged and may be nil.
type Result = any
