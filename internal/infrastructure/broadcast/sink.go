package broadcast

import (
	"sync"
)

// ChannelSink is the buffered, non-blocking sink the streaming endpoint
// registers with the hub. The endpoint that created it owns it: it drains
// Frames and is the only party allowed to Close it. TrySend never blocks, so a
// consumer that stops draining is observed as dead (full buffer) on the next
// broadcast rather than stalling the broadcaster.
type ChannelSink struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

// NewChannelSink creates a sink buffering up to size frames.
func NewChannelSink(size int) *ChannelSink {
	if size <= 0 {
		size = 16
	}
	return &ChannelSink{
		frames: make(chan []byte, size),
		done:   make(chan struct{}),
	}
}

// TrySend implements ports.EventSink.
func (s *ChannelSink) TrySend(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.frames <- frame:
		return true
	default:
		return false
	}
}

// Frames is the channel the owning endpoint drains.
func (s *ChannelSink) Frames() <-chan []byte {
	return s.frames
}

// Close marks the sink dead. Idempotent; pending frames are discarded by the
// owner simply abandoning the channel.
func (s *ChannelSink) Close() {
	s.once.Do(func() { close(s.done) })
}

// Closed reports whether Close has run.
func (s *ChannelSink) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
