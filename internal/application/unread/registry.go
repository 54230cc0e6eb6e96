package unread

import (
	"context"
	"sync"

	"marketplace-backend/internal/application/auth"
	"marketplace-backend/internal/application/changefeed"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Registry hands out trackers for live connections and closes a user's
// trackers when their session ends.
type Registry struct {
	Feed    changefeed.Feed
	Counter Counter

	mu       sync.Mutex
	trackers map[uuid.UUID]map[*Tracker]struct{}
}

func NewRegistry(feed changefeed.Feed, counter Counter) *Registry {
	return &Registry{Feed: feed, Counter: counter, trackers: make(map[uuid.UUID]map[*Tracker]struct{})}
}

// Open starts a tracker for userID. Callers must Release it.
func (r *Registry) Open(ctx context.Context, userID uuid.UUID, onChange func(int64)) (*Tracker, error) {
	t := NewTracker(r.Feed, r.Counter, onChange)
	if err := t.Associate(ctx, userID); err != nil {
		t.Close()
		return nil, err
	}
	r.mu.Lock()
	set, ok := r.trackers[userID]
	if !ok {
		set = make(map[*Tracker]struct{})
		r.trackers[userID] = set
	}
	set[t] = struct{}{}
	r.mu.Unlock()
	return t, nil
}

// Release closes t and forgets it.
func (r *Registry) Release(t *Tracker) {
	userID := t.UserID()
	t.Close()
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.trackers[userID]; ok {
		delete(set, t)
		if len(set) == 0 {
			delete(r.trackers, userID)
		}
	}
}

// Live returns how many trackers are open for userID.
func (r *Registry) Live(userID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers[userID])
}

// HandleSessionEvent closes every tracker of a user who signed out.
func (r *Registry) HandleSessionEvent(ev auth.SessionEvent) {
	if ev.Type != auth.SignedOut {
		return
	}
	r.mu.Lock()
	set := r.trackers[ev.UserID]
	delete(r.trackers, ev.UserID)
	r.mu.Unlock()
	for t := range set {
		t.Close()
	}
	if len(set) > 0 {
		log.Debug().Str("user_id", ev.UserID.String()).Int("trackers", len(set)).Msg("unread: closed trackers on sign out")
	}
}

// CloseAll closes every tracker, for shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.trackers
	r.trackers = make(map[uuid.UUID]map[*Tracker]struct{})
	r.mu.Unlock()
	for _, set := range all {
		for t := range set {
			t.Close()
		}
	}
}
