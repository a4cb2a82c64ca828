package broadcast

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/trackex/realtime-status/internal/core/domain/event"
	"github.com/trackex/realtime-status/internal/core/ports"
)

var (
	framesDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_frames_delivered_total",
			Help: "Frames successfully handed to a connection sink",
		},
		[]string{"key"},
	)

	framesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_frames_dropped_total",
			Help: "Frames dropped because a sink was dead or full",
		},
		[]string{"key"},
	)

	activeSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcast_active_subscriptions",
			Help: "Currently registered connection sinks across all keys",
		},
	)
)

func init() {
	prometheus.MustRegister(framesDelivered)
	prometheus.MustRegister(framesDropped)
	prometheus.MustRegister(activeSubscriptions)
}

// Hub is the process-wide registry of open push channels, keyed by subscription
// key. It holds non-owning sink references: registration never transfers
// lifecycle responsibility, and a dead sink is detected opportunistically when
// a write to it fails.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[ports.EventSink]struct{}
	logger *logrus.Logger
}

// NewHub creates an empty hub. It is constructed once at the composition root
// and injected; there is no package-level instance.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[ports.EventSink]struct{}),
		logger: logger,
	}
}

// Subscribe implements ports.BroadcastHub.Subscribe.
func (h *Hub) Subscribe(key string, sink ports.EventSink) {
	h.mu.Lock()
	set, ok := h.subs[key]
	if !ok {
		set = make(map[ports.EventSink]struct{})
		h.subs[key] = set
	}
	if _, already := set[sink]; !already {
		set[sink] = struct{}{}
		activeSubscriptions.Inc()
	}
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.WithFields(logrus.Fields{"key": key, "subscribers": h.Subscribers(key)}).Debug("sink subscribed")
	}
}

// Unsubscribe implements ports.BroadcastHub.Unsubscribe. Removing the last
// sink for a key drops the key entry itself so abandoned keys never accumulate.
func (h *Hub) Unsubscribe(key string, sink ports.EventSink) {
	h.mu.Lock()
	if set, ok := h.subs[key]; ok {
		if _, registered := set[sink]; registered {
			delete(set, sink)
			activeSubscriptions.Dec()
		}
		if len(set) == 0 {
			delete(h.subs, key)
		}
	}
	h.mu.Unlock()
}

// Broadcast implements ports.BroadcastHub.Broadcast. The event is serialized
// once; the subscriber set is snapshotted under the lock, and every write
// happens outside it so a slow sink cannot stall registration traffic. Sinks
// whose write fails are pruned from the registry.
func (h *Hub) Broadcast(key string, ev event.Event) int {
	frame, err := ev.Frame()
	if err != nil {
		if h.logger != nil {
			h.logger.WithFields(logrus.Fields{"key": key, "type": ev.Type}).WithError(err).Error("failed to serialize event; broadcast skipped")
		}
		return 0
	}

	h.mu.Lock()
	set, ok := h.subs[key]
	if !ok || len(set) == 0 {
		h.mu.Unlock()
		if h.logger != nil {
			h.logger.WithFields(logrus.Fields{"key": key, "type": ev.Type}).Debug("broadcast to key with no subscribers; nothing to do")
		}
		return 0
	}
	sinks := make([]ports.EventSink, 0, len(set))
	for sink := range set {
		sinks = append(sinks, sink)
	}
	h.mu.Unlock()

	delivered := 0
	var dead []ports.EventSink
	for _, sink := range sinks {
		if sink.TrySend(frame) {
			delivered++
		} else {
			dead = append(dead, sink)
		}
	}

	framesDelivered.WithLabelValues(key).Add(float64(delivered))
	framesDropped.WithLabelValues(key).Add(float64(len(dead)))

	for _, sink := range dead {
		h.Unsubscribe(key, sink)
	}
	if len(dead) > 0 && h.logger != nil {
		h.logger.WithFields(logrus.Fields{"key": key, "pruned": len(dead)}).Info("removed dead sinks during broadcast")
	}

	if h.logger != nil {
		h.logger.WithFields(logrus.Fields{"key": key, "type": ev.Type, "delivered": delivered}).Debug("event broadcast")
	}
	return delivered
}

// Subscribers implements ports.BroadcastHub.Subscribers.
func (h *Hub) Subscribers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}

// Reset implements ports.BroadcastHub.Reset.
func (h *Hub) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.subs {
		activeSubscriptions.Sub(float64(len(set)))
	}
	h.subs = make(map[string]map[ports.EventSink]struct{})
}
