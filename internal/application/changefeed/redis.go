package changefeed

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisChannelPrefix = "changefeed:"

// RedisFeed fans events out over Redis pub/sub, one channel per table.
type RedisFeed struct {
	Rdb *redis.Client
}

func (f *RedisFeed) channel(table string) string {
	return redisChannelPrefix + table
}

func (f *RedisFeed) Subscribe(ctx context.Context, table, filter string, h Handler) (Unsubscribe, error) {
	flt, err := ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	ps := f.Rdb.Subscribe(ctx, f.channel(table))
	// Wait for the subscription confirmation so no event published after
	// Subscribe returns can be missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	ch := ps.Channel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ch {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn().Err(err).Str("channel", msg.Channel).Msg("changefeed: dropping undecodable event")
				continue
			}
			if flt.Match(ev) {
				h(ev)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = ps.Close()
			<-done
		})
	}, nil
}

func (f *RedisFeed) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return f.Rdb.Publish(ctx, f.channel(ev.Table), b).Err()
}
