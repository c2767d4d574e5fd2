// Package notify forwards registry events to interested parties.
package notify

import (
	"context"
	"fmt"

	"kitty-services/types"

	"github.com/ninja-syndicate/ws"
	"github.com/rs/zerolog"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/multierr"
)

type Sink interface {
	Publish(ctx context.Context, evt *types.Event) error
}

// Log is a readable event history
type Log interface {
	Events(ctx context.Context, after int64, limit int) ([]*types.LoggedEvent, error)
}

// LogSink writes every event to a zerolog logger
type LogSink struct {
	log *zerolog.Logger
}

func NewLogSink(log *zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Publish(ctx context.Context, evt *types.Event) error {
	e := s.log.Info().
		Str("kind", string(evt.Kind)).
		Str("account", evt.Account.String()).
		Uint32("kitty_id", uint32(evt.KittyID))
	if evt.To != nil {
		e = e.Str("to", evt.To.String())
	}
	if evt.Seller != nil {
		e = e.Str("seller", evt.Seller.String())
	}
	if evt.Price.Valid {
		e = e.Str("price", evt.Price.Decimal.String())
	}
	e.Msg("kitty event")
	return nil
}

const HubKeyKittyEvents = "KITTY:EVENTS:SUBSCRIBE"
const HubKeyKittySubscribe = "KITTY:SUBSCRIBE"
const HubKeyAccountKittiesSubscribe = "ACCOUNT:KITTIES:SUBSCRIBE"

// KittyEventsURI is where every event is published
const KittyEventsURI = "/public/kitties"

func KittyURI(id types.KittyIndex) string {
	return fmt.Sprintf("/public/kitty/%s", id)
}

func AccountKittiesURI(id types.AccountID) string {
	return fmt.Sprintf("/public/account/%s/kitties", id)
}

// Viewer reads the registry state pushed to subscribers
type Viewer interface {
	Kitty(ctx context.Context, id types.KittyIndex) (*types.KittyView, error)
	KittiesOwnedBy(ctx context.Context, owner types.AccountID) ([]*types.KittyView, error)
	KittiesCount(ctx context.Context) (types.KittyIndex, error)
}

// KittyEventsUpdate is sent on the events key. The subscribe reply carries
// only the count.
type KittyEventsUpdate struct {
	Count types.KittyIndex `json:"count"`
	Event *types.Event     `json:"event,omitempty"`
}

// WSSink pushes refreshed state to websocket subscribers. Each key receives
// the same shape its subscribe handler replies with.
type WSSink struct {
	viewer Viewer
	send   func(uri, key string, payload interface{})
}

func NewWSSink(viewer Viewer) *WSSink {
	return &WSSink{
		viewer: viewer,
		send: func(uri, key string, payload interface{}) {
			ws.PublishMessage(uri, key, payload)
		},
	}
}

// WithSender replaces the websocket hub, mostly for tests
func (s *WSSink) WithSender(send func(uri, key string, payload interface{})) *WSSink {
	s.send = send
	return s
}

func (s *WSSink) Publish(ctx context.Context, evt *types.Event) error {
	var result error

	count, err := s.viewer.KittiesCount(ctx)
	if err != nil {
		result = multierr.Append(result, fmt.Errorf("count kitties: %w", err))
	} else {
		s.send(KittyEventsURI, HubKeyKittyEvents, &KittyEventsUpdate{Count: count, Event: evt})
	}

	kitty, err := s.viewer.Kitty(ctx, evt.KittyID)
	if err != nil {
		result = multierr.Append(result, fmt.Errorf("load kitty %s: %w", evt.KittyID, err))
	} else {
		s.send(KittyURI(evt.KittyID), HubKeyKittySubscribe, kitty)
	}

	for _, account := range evt.Parties() {
		owned, err := s.viewer.KittiesOwnedBy(ctx, account)
		if err != nil {
			result = multierr.Append(result, fmt.Errorf("load kitties of %s: %w", account, err))
			continue
		}
		s.send(AccountKittiesURI(account), HubKeyAccountKittiesSubscribe, owned)
	}
	return result
}

// MemorySink keeps published events in memory
type MemorySink struct {
	mu     deadlock.RWMutex
	events []*types.LoggedEvent
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Publish(ctx context.Context, evt *types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, &types.LoggedEvent{ID: int64(len(s.events) + 1), Event: *evt})
	return nil
}

// Events returns up to limit events with an id above after, oldest first
func (s *MemorySink) Events(ctx context.Context, after int64, limit int) ([]*types.LoggedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []*types.LoggedEvent{}
	for _, e := range s.events {
		if e.ID <= after {
			continue
		}
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, e)
	}
	return result, nil
}

// Fanout publishes to every sink, continuing past failures
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, evt *types.Event) error {
	var err error
	for _, s := range f {
		err = multierr.Append(err, s.Publish(ctx, evt))
	}
	return err
}
