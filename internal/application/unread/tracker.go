// Package unread keeps a live count of a seller's unread messages from one
// authoritative fetch plus the messages change feed.
package unread

import (
	"context"
	"errors"
	"sync"

	"marketplace-backend/internal/application/changefeed"
	"marketplace-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const readFlagColumn = "read_by_seller"

var ErrClosed = errors.New("unread: tracker closed")

// Counter performs the authoritative unread count for a seller.
type Counter interface {
	CountUnread(ctx context.Context, sellerID uuid.UUID) (int64, error)
}

// Tracker follows one identity at a time. It owns at most one feed
// subscription and releases it before taking another.
type Tracker struct {
	feed    changefeed.Feed
	counter Counter
	// onChange receives every committed count. It runs with the tracker locked
	// and must not call back into the tracker.
	onChange func(int64)

	mu     sync.Mutex
	gen    uint64
	user   uuid.UUID
	count  int64
	unsub  changefeed.Unsubscribe
	closed bool
	done   chan struct{}
}

func NewTracker(feed changefeed.Feed, counter Counter, onChange func(int64)) *Tracker {
	return &Tracker{feed: feed, counter: counter, onChange: onChange, done: make(chan struct{})}
}

// Associate switches the tracker to userID. uuid.Nil means signed out: the
// count drops to zero and nothing is subscribed. A failed count fetch is
// logged and treated as zero.
func (t *Tracker) Associate(ctx context.Context, userID uuid.UUID) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	old := t.detachLocked()
	t.gen++
	gen := t.gen
	t.user = userID
	if userID == uuid.Nil {
		t.setLocked(0)
		t.mu.Unlock()
		release(old)
		return nil
	}
	t.mu.Unlock()
	release(old)

	filter := "seller_id=eq." + userID.String()
	unsub, err := t.feed.Subscribe(ctx, domain.Message{}.TableName(), filter, func(ev changefeed.Event) {
		t.apply(gen, ev)
	})
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.gen != gen {
		t.mu.Unlock()
		unsub()
		return nil
	}
	t.unsub = unsub
	t.mu.Unlock()

	n, err := t.counter.CountUnread(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("seller_id", userID.String()).Msg("unread: count fetch failed")
		n = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen == gen {
		t.setLocked(n)
	}
	return nil
}

func (t *Tracker) apply(gen uint64, ev changefeed.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen || t.closed {
		return
	}
	switch ev.Type {
	case changefeed.Insert:
		t.setLocked(t.count + 1)
	case changefeed.Update:
		if readFlag(ev.New) && !readFlag(ev.Old) {
			t.setLocked(max(t.count-1, 0))
		}
	}
}

func (t *Tracker) setLocked(n int64) {
	t.count = max(n, 0)
	if t.onChange != nil {
		t.onChange(t.count)
	}
}

// detachLocked takes the current subscription. It is released after mu is
// dropped because feeds may wait for an in-flight handler, which needs mu.
func (t *Tracker) detachLocked() changefeed.Unsubscribe {
	u := t.unsub
	t.unsub = nil
	return u
}

func release(u changefeed.Unsubscribe) {
	if u != nil {
		u()
	}
}

// Count returns the current count.
func (t *Tracker) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// UserID returns the identity being tracked, or uuid.Nil.
func (t *Tracker) UserID() uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.user
}

// Done is closed once the tracker is closed.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// Close releases the subscription. Later events and fetches are ignored.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.gen++
	old := t.detachLocked()
	close(t.done)
	t.mu.Unlock()
	release(old)
}

func readFlag(row map[string]any) bool {
	v, _ := row[readFlagColumn].(bool)
	return v
}
