package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const natsSubjectPrefix = "changefeed."

// ConnectNATS dials NATS with connection-state logging.
func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("marketplace-api"),
		nats.Timeout(5*time.Second),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			log.Error().Err(err).Str("subject", subject).Msg("NATS error")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS connected")
	return nc, nil
}

// NATSFeed publishes events on subject "changefeed.<table>".
type NATSFeed struct {
	Conn *nats.Conn
}

func (f *NATSFeed) subject(table string) string {
	return natsSubjectPrefix + table
}

func (f *NATSFeed) Subscribe(ctx context.Context, table, filter string, h Handler) (Unsubscribe, error) {
	flt, err := ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	// inflight lets Unsubscribe wait for a handler that is already running;
	// stopped turns away deliveries that arrive after it.
	var (
		mu       sync.Mutex
		stopped  bool
		inflight sync.WaitGroup
	)
	sub, err := f.Conn.Subscribe(f.subject(table), func(m *nats.Msg) {
		mu.Lock()
		if stopped {
			mu.Unlock()
			return
		}
		inflight.Add(1)
		mu.Unlock()
		defer inflight.Done()

		var ev Event
		if err := json.Unmarshal(m.Data, &ev); err != nil {
			log.Warn().Err(err).Str("subject", m.Subject).Msg("changefeed: dropping undecodable event")
			return
		}
		if flt.Match(ev) {
			h(ev)
		}
	})
	if err != nil {
		return nil, err
	}
	// Flush so the server has registered interest before we return.
	if err := f.Conn.FlushTimeout(flushTimeout(ctx)); err != nil {
		_ = sub.Unsubscribe()
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			stopped = true
			mu.Unlock()
			_ = sub.Unsubscribe()
			inflight.Wait()
		})
	}, nil
}

func (f *NATSFeed) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return f.Conn.Publish(f.subject(ev.Table), b)
}

func flushTimeout(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return 5 * time.Second
}
