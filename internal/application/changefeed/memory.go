package changefeed

import (
	"context"
	"sync"
)

type memorySub struct {
	table  string
	filter Filter
	h      Handler
}

// MemoryFeed delivers events synchronously inside Publish. It is meant for a
// single process and for tests.
type MemoryFeed struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]memorySub
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[uint64]memorySub)}
}

func (f *MemoryFeed) Subscribe(ctx context.Context, table, filter string, h Handler) (Unsubscribe, error) {
	flt, err := ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.next++
	id := f.next
	f.subs[id] = memorySub{table: table, filter: flt, h: h}
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}, nil
}

func (f *MemoryFeed) Publish(ctx context.Context, ev Event) error {
	f.mu.RLock()
	var targets []Handler
	for _, s := range f.subs {
		if s.table == ev.Table && s.filter.Match(ev) {
			targets = append(targets, s.h)
		}
	}
	f.mu.RUnlock()
	for _, h := range targets {
		h(ev)
	}
	return nil
}

// Subscribers returns the number of live subscriptions.
func (f *MemoryFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}
