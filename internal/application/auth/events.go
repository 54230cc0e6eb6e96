package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type SessionEventType string

const (
	SignedIn  SessionEventType = "SIGNED_IN"
	SignedOut SessionEventType = "SIGNED_OUT"
)

// SessionEvent reports a change in a user's session.
type SessionEvent struct {
	Type   SessionEventType
	UserID uuid.UUID
	Email  string
	At     time.Time
	// Origin is the instance that published the event when it arrived
	// through a Relay; empty for events raised in this process.
	Origin string
}

// Events fans session changes out to in-process subscribers. Subscribers are
// called synchronously, in no particular order, on the publishing goroutine.
// A nil *Events drops everything.
type Events struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(SessionEvent)
}

func NewEvents() *Events {
	return &Events{subs: make(map[int]func(SessionEvent))}
}

// Subscribe registers fn and returns a function that removes it.
func (e *Events) Subscribe(fn func(SessionEvent)) func() {
	e.mu.Lock()
	e.next++
	id := e.next
	e.subs[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

func (e *Events) Publish(ev SessionEvent) {
	if e == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	e.mu.RLock()
	fns := make([]func(SessionEvent), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}
