package game

// EventKind identifies a scene event.
type EventKind uint8

const (
	EventLoaded     EventKind = iota // Entity joined the scene
	EventLoadFailed                  // Sprite could not be built; record skipped
	EventRemoved                     // Entity evicted
	EventFed                         // Bait dropped
	EventEaten                       // Bait consumed by an entity
	EventVoted                       // Counters updated
)

func (k EventKind) String() string {
	switch k {
	case EventLoaded:
		return "loaded"
	case EventLoadFailed:
		return "load_failed"
	case EventRemoved:
		return "removed"
	case EventFed:
		return "fed"
	case EventEaten:
		return "eaten"
	case EventVoted:
		return "voted"
	}
	return "unknown"
}

// Event is emitted by a Scene on its frame owner goroutine.
type Event struct {
	Kind EventKind
	Tick int64
	ID   int64   // fish_id, 0 for bait drops
	X, Y float32 // Bait position for EventFed and EventEaten
}
