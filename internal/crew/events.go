package crew

import "time"

// EventType identifies a point in the crew lifecycle.
type EventType string

const (
	EventCrewStarted   EventType = "crew_started"
	EventTaskStarted   EventType = "task_started"
	EventTaskCompleted EventType = "task_completed"
	EventTaskFailed    EventType = "task_failed"
	EventCrewCompleted EventType = "crew_completed"
	EventCrewFailed    EventType = "crew_failed"
)

// Event describes a lifecycle transition during Kickoff.
type Event struct {
	Type EventType
	Crew string
	// Task and Agent are empty for crew-level events.
	Task  string
	Agent string
	// Index is the zero-based task position; Total is the number of tasks.
	Index int
	Total int
	// Output is set on task_completed.
	Output *TaskOutput
	// Result is set on crew_completed.
	Result *CrewOutput
	// Err is set on task_failed and crew_failed.
	Err  error
	Time time.Time
}

// Observer receives lifecycle events synchronously, in order.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnEvent implements Observer.
func (f ObserverFunc) OnEvent(e Event) { f(e) }
