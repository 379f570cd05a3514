package lumen

// EventKind enumerates the renderer lifecycle notifications delivered to
// observers registered at construction. There is no global event bus;
// observers are scoped to one renderer.
type EventKind int

const (
	EventStart EventKind = iota
	EventPause
	EventReset
	EventProgress
	EventComplete
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventPause:
		return "pause"
	case EventReset:
		return "reset"
	case EventProgress:
		return "progress"
	case EventComplete:
		return "complete"
	}
	return "unknown"
}

type Event struct {
	Kind     EventKind
	Frame    int     // current frame counter at emission time
	Progress float64 // frameCounter / (sampleBudget+1), for EventProgress
}

// Observer receives renderer events synchronously on the ticking
// goroutine. Observers must not call back into the renderer.
type Observer func(Event)
