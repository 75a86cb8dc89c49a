package mend

const (
	PAIR_INTERSECTING EventType = iota
	PATCH_RESOLVED
	PATCH_FAILED
	FIRST_HIT_ABORT
)

type pairKey struct {
	faceA int
	faceB int
}

// makePairKey creates a normalized pair key with consistent ordering
func makePairKey(faceA, faceB int) pairKey {
	if faceB < faceA {
		faceA, faceB = faceB, faceA
	}
	return pairKey{faceA: faceA, faceB: faceB}
}

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// PairIntersectingEvent reports two intersecting faces, FaceA < FaceB.
type PairIntersectingEvent struct {
	FaceA int
	FaceB int
}

func (e PairIntersectingEvent) Type() EventType { return PAIR_INTERSECTING }

// PatchResolvedEvent reports a retriangulated patch.
type PatchResolvedEvent struct {
	Members []int
	// Triangles is the number of output faces born from the patch.
	Triangles int
}

func (e PatchResolvedEvent) Type() EventType { return PATCH_RESOLVED }

// PatchFailedEvent reports a patch whose faces were kept unchanged.
type PatchFailedEvent struct {
	Members []int
	Err     error
}

func (e PatchFailedEvent) Type() EventType { return PATCH_FAILED }

// FirstHitAbortEvent reports a first-only run stopped at a pair.
type FirstHitAbortEvent struct {
	FaceA int
	FaceB int
}

func (e FirstHitAbortEvent) Type() EventType { return FIRST_HIT_ABORT }

// EventListener - callback for events
type EventListener func(event Event)

// Events collects pipeline events during a run and delivers them to listeners afterwards,
// on the goroutine that called the engine.
type Events struct {
	listeners map[EventType][]EventListener
	buffer    []Event
}

func NewEvents() Events {
	return Events{
		listeners: make(map[EventType][]EventListener),
		buffer:    make([]Event, 0, 64),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	if e.listeners == nil {
		e.listeners = make(map[EventType][]EventListener)
	}
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

func (e *Events) emit(event Event) {
	if len(e.listeners[event.Type()]) == 0 {
		return
	}
	e.buffer = append(e.buffer, event)
}

// recordPairs emits one event per intersecting pair.
func (e *Events) recordPairs(pairs [][2]int) {
	for _, p := range pairs {
		key := makePairKey(p[0], p[1])
		e.emit(PairIntersectingEvent{FaceA: key.faceA, FaceB: key.faceB})
	}
}

// discard drops buffered events without delivering them.
func (e *Events) discard() {
	e.buffer = e.buffer[:0]
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	for _, event := range e.buffer {
		for _, listener := range e.listeners[event.Type()] {
			listener(event)
		}
	}
	e.buffer = e.buffer[:0]
}
