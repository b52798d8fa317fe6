// Package event is the bridge's in-process pub/sub: session lifecycle
// transitions and config reload outcomes are published here instead of
// polled, per the global-state redesign (internal/lspsession publishes,
// cmd/mcp-lsp-bridge subscribes to drive a config hot-reload).
package event

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventType names one kind of event on the bus.
type EventType string

const (
	SessionStateChanged EventType = "session.state_changed"
	ConfigReloaded      EventType = "config.reloaded"
	ConfigReloadFailed  EventType = "config.reload_failed"
)

// Event is one published occurrence; Data is the EventType-specific
// payload (see types.go).
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Subscriber receives events it was registered for.
type Subscriber func(Event)

type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// topic is the single watermill topic every Event travels over; EventType
// filtering happens on the subscriber side, not via separate topics,
// since the bridge only ever has a handful of subscribers total.
const topic = "bridge.events"

// Bus fans events out to registered subscribers. Publish hands the event
// to a watermill gochannel and returns immediately; a background consumer
// goroutine decodes each message and invokes matching subscribers
// concurrently, so a slow or stuck subscriber can never block a
// publisher. PublishSync bypasses the channel entirely and calls every
// subscriber inline — the config watcher needs its reload to have been
// observed before it moves on, a guarantee an async channel hop cannot
// give without waiting on a reply itself.
type Bus struct {
	pubsub *gochannel.GoChannel
	cancel context.CancelFunc

	mu          sync.RWMutex
	subscribers map[EventType][]subscriberEntry
	nextID      uint64
}

var globalBus = NewBus()

// NewBus starts a bus with its own watermill gochannel and consumer loop.
func NewBus() *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		pubsub:      gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, watermill.NopLogger{}),
		subscribers: make(map[EventType][]subscriberEntry),
		cancel:      cancel,
	}
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err == nil {
		go b.consume(messages)
	}
	return b
}

func (b *Bus) consume(messages <-chan *message.Message) {
	for msg := range messages {
		var e Event
		if err := json.Unmarshal(msg.Payload, &e); err == nil {
			b.dispatch(e)
		}
		msg.Ack()
	}
}

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	subs := append([]subscriberEntry(nil), b.subscribers[e.Type]...)
	b.mu.RUnlock()
	for _, entry := range subs {
		go entry.fn(e)
	}
}

func (b *Bus) newID() uint64 {
	return atomic.AddUint64(&b.nextID, 1)
}

// Subscribe registers fn for every Event of eventType on the global bus.
// The returned function unsubscribes.
func Subscribe(eventType EventType, fn Subscriber) func() {
	return globalBus.Subscribe(eventType, fn)
}

func (b *Bus) Subscribe(eventType EventType, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.newID()
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriberEntry{id: id, fn: fn})
	return func() { b.unsubscribe(eventType, id) }
}

func (b *Bus) unsubscribe(eventType EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[eventType]
	for i, entry := range subs {
		if entry.id == id {
			b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers event to every matching subscriber asynchronously, via
// the global bus's watermill gochannel.
func Publish(event Event) {
	globalBus.Publish(event)
}

func (b *Bus) Publish(e Event) {
	body, err := json.Marshal(e)
	if err != nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), body)
	_ = b.pubsub.Publish(topic, msg)
}

// PublishSync delivers event to every matching subscriber on the global
// bus, calling each one inline before returning.
func PublishSync(event Event) {
	globalBus.PublishSync(event)
}

func (b *Bus) PublishSync(e Event) {
	b.mu.RLock()
	subs := append([]subscriberEntry(nil), b.subscribers[e.Type]...)
	b.mu.RUnlock()
	for _, entry := range subs {
		entry.fn(e)
	}
}

// Close stops the bus's consumer loop and releases its gochannel. Safe to
// call once per Bus; the global bus is closed by cmd/mcp-lsp-bridge on
// shutdown.
func (b *Bus) Close() error {
	b.cancel()
	return b.pubsub.Close()
}

// Close shuts down the global bus.
func Close() error {
	return globalBus.Close()
}
