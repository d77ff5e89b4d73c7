package events

import (
	"fmt"
	"time"

	"github.com/GoCodeAlone/appkit"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// PhaseData is the payload of phase events.
type PhaseData struct {
	App     string `json:"app"`
	Version string `json:"version"`
	Phase   string `json:"phase"`
	State   string `json:"state"`
}

// NewEvent builds a JSON CloudEvent with a time-ordered ID. A nil data
// leaves the event without a payload.
func NewEvent(eventType, source, subject string, data any) (cloudevents.Event, error) {
	event := cloudevents.NewEvent()
	event.SetID(newEventID())
	event.SetType(eventType)
	event.SetSource(source)
	event.SetTime(time.Now())
	if subject != "" {
		event.SetSubject(subject)
	}
	if data != nil {
		if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
			return event, fmt.Errorf("failed to encode %s event data: %w", eventType, err)
		}
	}
	return event, nil
}

// NewPhaseEvent builds the event published when a hook fires. The source
// is "appkit/<app>", the subject is the phase and the "phase" and "hook"
// extensions carry the phase and hook names.
func NewPhaseEvent(eventType string, evt appkit.Event, app *appkit.Application) (cloudevents.Event, error) {
	event, err := NewEvent(eventType, "appkit/"+app.Name(), string(evt.Phase), PhaseData{
		App:     app.Name(),
		Version: app.Version(),
		Phase:   string(evt.Phase),
		State:   app.State().String(),
	})
	if err != nil {
		return event, err
	}
	event.SetExtension("phase", string(evt.Phase))
	event.SetExtension("hook", evt.Hook())
	return event, nil
}

func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
