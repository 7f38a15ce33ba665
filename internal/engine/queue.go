package engine

import "sync"

// EventType distinguishes transport events.
type EventType int

const (
	// EventAttach reports a new peer.
	EventAttach EventType = iota + 1
	// EventDetach reports a peer that went away.
	EventDetach
	// EventMessage carries a raw inbound frame.
	EventMessage
	// EventWritable reports that a connection whose send buffer was full
	// can accept data again.
	EventWritable
)

func (t EventType) String() string {
	switch t {
	case EventAttach:
		return "attach"
	case EventDetach:
		return "detach"
	case EventMessage:
		return "message"
	case EventWritable:
		return "writable"
	}
	return "unknown"
}

// Event is one transport event waiting for the owner goroutine.
type Event struct {
	Type EventType
	Conn ConnID
	Data string // raw frame for EventMessage
}

// eventQueue is a thread-safe unbounded FIFO of transport events.
//
// Transports enqueue from their own goroutines; the engine owner dequeues.
// The signal channel (buffer 1) coalesces wakeups for context-aware waiting.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event. Returns false once the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that signals when events may be available. It is
// closed when the queue closes.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Closed reports whether Close was called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further events and wakes waiters.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
