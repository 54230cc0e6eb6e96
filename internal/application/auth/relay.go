package auth

import (
	"context"
	"time"

	"marketplace-backend/internal/application/changefeed"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SessionsTable is the change feed table that carries session events
// between API instances.
const SessionsTable = "sessions"

const relayPublishTimeout = 5 * time.Second

// Relay mirrors session events across instances through the change feed.
// SIGNED_IN travels as an INSERT and SIGNED_OUT as a DELETE of the row
// {user_id, email, origin}. Events an instance published itself are not
// delivered back to it.
type Relay struct {
	Events *Events
	Feed   changefeed.Feed
	// Origin identifies this instance; Start fills it when empty.
	Origin string
}

// Start subscribes to the feed and to local events. The returned function
// stops both.
func (r *Relay) Start(ctx context.Context) (func(), error) {
	if r.Origin == "" {
		r.Origin = uuid.NewString()
	}
	unsubFeed, err := r.Feed.Subscribe(ctx, SessionsTable, "", r.receive)
	if err != nil {
		return nil, err
	}
	unsubLocal := r.Events.Subscribe(r.forward)
	return func() {
		unsubLocal()
		unsubFeed()
	}, nil
}

func (r *Relay) forward(ev SessionEvent) {
	if ev.Origin != "" {
		return
	}
	row := map[string]any{
		"user_id": ev.UserID.String(),
		"email":   ev.Email,
		"origin":  r.Origin,
	}
	fe := changefeed.Event{Table: SessionsTable, CommitTimestamp: ev.At}
	switch ev.Type {
	case SignedIn:
		fe.Type, fe.New = changefeed.Insert, row
	case SignedOut:
		fe.Type, fe.Old = changefeed.Delete, row
	default:
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
	defer cancel()
	if err := r.Feed.Publish(ctx, fe); err != nil {
		log.Warn().Err(err).Str("user_id", ev.UserID.String()).Str("type", string(ev.Type)).Msg("auth: relay publish failed")
	}
}

func (r *Relay) receive(fe changefeed.Event) {
	var (
		typ SessionEventType
		row map[string]any
	)
	switch fe.Type {
	case changefeed.Insert:
		typ, row = SignedIn, fe.New
	case changefeed.Delete:
		typ, row = SignedOut, fe.Old
	default:
		return
	}
	origin, _ := row["origin"].(string)
	if origin == "" || origin == r.Origin {
		return
	}
	raw, _ := row["user_id"].(string)
	userID, err := uuid.Parse(raw)
	if err != nil {
		log.Warn().Str("user_id", raw).Msg("auth: relay dropped event with bad user id")
		return
	}
	email, _ := row["email"].(string)
	r.Events.Publish(SessionEvent{Type: typ, UserID: userID, Email: email, At: fe.CommitTimestamp, Origin: origin})
}
