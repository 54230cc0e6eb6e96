// Package changefeed delivers row-level change notifications (INSERT, UPDATE,
// DELETE) for a table to subscribers, optionally narrowed by a row filter.
package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
)

// Event describes one committed row change. New is empty for DELETE and Old is
// empty for INSERT.
type Event struct {
	Table           string         `json:"table"`
	Type            EventType      `json:"type"`
	New             map[string]any `json:"new,omitempty"`
	Old             map[string]any `json:"old,omitempty"`
	CommitTimestamp time.Time      `json:"commit_timestamp"`
}

// Handler receives events for a subscription. Handlers run on the feed's
// delivery goroutine and must not call the subscription's Unsubscribe.
type Handler func(Event)

// Unsubscribe releases a subscription. It is safe to call more than once.
type Unsubscribe func()

// Feed is a publish/subscribe transport for row changes.
type Feed interface {
	// Subscribe registers h for events on table that match filter
	// ("column=eq.value", or "" for all rows). ctx bounds the setup only.
	Subscribe(ctx context.Context, table, filter string, h Handler) (Unsubscribe, error)
	Publish(ctx context.Context, ev Event) error
}

var ErrInvalidFilter = errors.New("Invalid change feed filter")

// Filter narrows a subscription to rows whose Column equals Value.
// The zero Filter matches every row.
type Filter struct {
	Column string
	Value  string
}

// ParseFilter parses "column=eq.value". Only equality is supported.
func ParseFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}
	col, rest, ok := strings.Cut(expr, "=")
	if !ok || col == "" {
		return Filter{}, fmt.Errorf("%w: %q", ErrInvalidFilter, expr)
	}
	val, ok := strings.CutPrefix(rest, "eq.")
	if !ok {
		return Filter{}, fmt.Errorf("%w: unsupported operator in %q", ErrInvalidFilter, expr)
	}
	return Filter{Column: col, Value: val}, nil
}

// Match reports whether ev's row satisfies the filter. DELETE events are
// matched against the old row.
func (f Filter) Match(ev Event) bool {
	if f.Column == "" {
		return true
	}
	row := ev.New
	if ev.Type == Delete || row == nil {
		row = ev.Old
	}
	v, ok := row[f.Column]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == f.Value
}

// Row converts a model into the column map carried by events, using the
// model's JSON field names.
func Row(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// NewEvent builds an event stamped with the current time.
func NewEvent(table string, typ EventType, newRow, oldRow any) (Event, error) {
	ev := Event{Table: table, Type: typ, CommitTimestamp: time.Now().UTC()}
	var err error
	if newRow != nil {
		if ev.New, err = Row(newRow); err != nil {
			return Event{}, err
		}
	}
	if oldRow != nil {
		if ev.Old, err = Row(oldRow); err != nil {
			return Event{}, err
		}
	}
	return ev, nil
}
