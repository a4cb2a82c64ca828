package ports

import "github.com/trackex/realtime-status/internal/core/domain/event"

// EventSink is one open push channel as seen by the hub. The hub holds a
// non-owning reference: the streaming endpoint that created the sink owns its
// lifecycle and is the only one allowed to close it.
type EventSink interface {
	// TrySend offers one serialized frame without blocking. It returns false
	// when the sink is closed or its buffer is full; the hub treats a false
	// return as a dead connection.
	TrySend(frame []byte) bool
}

// BroadcastHub fans event notifications out to every sink registered under a
// subscription key. Delivery is best-effort and at-most-once per live sink.
type BroadcastHub interface {
	// Subscribe registers sink under key. Re-registration is tolerated.
	Subscribe(key string, sink EventSink)
	// Unsubscribe removes sink; the key entry itself is dropped once its sink
	// set becomes empty.
	Unsubscribe(key string, sink EventSink)
	// Broadcast serializes ev once and delivers it to every sink registered
	// under key, pruning sinks whose write fails. It returns the number of
	// successful deliveries; a key with no subscribers is a no-op.
	Broadcast(key string, ev event.Event) int
	// Subscribers reports the number of sinks currently registered under key.
	Subscribers(key string) int
	// Reset drops every registration. Intended for tests.
	Reset()
}
