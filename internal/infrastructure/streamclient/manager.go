package streamclient

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/trackex/realtime-status/internal/core/domain/event"
)

// State describes where the manager is in its connection lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	// StateDegraded means the stream gave up after exhausting retries and the
	// manager is running the polling fallback instead.
	StateDegraded State = "degraded"
)

// Handler processes a single decoded event from the stream.
type Handler func(ev event.Event)

// Poller is the fallback invoked on a fixed cadence when streaming is
// unavailable. It should fetch current state through the regular check
// endpoint and apply it the same way a stream event would.
type Poller func(ctx context.Context) error

// Config tunes the reconnect behavior. Zero values fall back to the defaults
// used by deployed agents.
type Config struct {
	URL          string
	Headers      map[string]string
	BackoffBase  time.Duration
	BackoffMax   time.Duration
	MaxRetries   int
	PollInterval time.Duration
	HTTPClient   *http.Client
}

func (c *Config) applyDefaults() {
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 60 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
}

// Manager maintains one server-push subscription: it connects, dispatches
// decoded events to registered handlers, reconnects with exponential backoff,
// and downgrades to polling once retries are exhausted.
type Manager struct {
	cfg    Config
	poller Poller
	logger *logrus.Logger

	mu       sync.Mutex
	handlers map[event.Type]Handler
	state    State
	cancel   context.CancelFunc
	gen      uint64
	wg       sync.WaitGroup
	closed   bool
}

func NewManager(cfg Config, poller Poller, logger *logrus.Logger) *Manager {
	cfg.applyDefaults()
	return &Manager{
		cfg:      cfg,
		poller:   poller,
		logger:   logger,
		handlers: make(map[event.Type]Handler),
		state:    StateDisconnected,
	}
}

// OnEvent registers the handler for one event type. Events with no registered
// handler are ignored.
func (m *Manager) OnEvent(t event.Type, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[t] = h
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// setState applies a state transition only if it comes from the current run;
// a superseded run racing on shutdown must not clobber its successor's state.
func (m *Manager) setState(gen uint64, s State) {
	m.mu.Lock()
	if gen == m.gen {
		m.state = s
	}
	m.mu.Unlock()
}

// Start launches the connection loop. Calling Start on a running manager
// restarts it against the current config.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.gen++
	gen := m.gen
	// Registered before the lock is released so a concurrent Close cannot
	// start its Wait between the unlock and the Add.
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		m.run(ctx, gen)
	}()
}

// UpdateScope tears down the current subscription and reconnects against a
// new stream URL. The retry budget starts fresh for the new scope.
func (m *Manager) UpdateScope(url string) {
	m.mu.Lock()
	m.cfg.URL = url
	m.mu.Unlock()
	m.Start()
}

// Close stops the connection loop and any fallback polling. The manager
// cannot be restarted after Close.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mu.Unlock()
	m.wg.Wait()
	m.mu.Lock()
	m.state = StateDisconnected
	m.mu.Unlock()
}

func (m *Manager) run(ctx context.Context, gen uint64) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = m.cfg.BackoffBase
	bo.MaxInterval = m.cfg.BackoffMax
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()

	retries := 0
	for {
		if ctx.Err() != nil {
			m.setState(gen, StateDisconnected)
			return
		}

		m.setState(gen, StateConnecting)
		connected, err := m.consume(ctx, gen)
		if ctx.Err() != nil {
			m.setState(gen, StateDisconnected)
			return
		}
		if connected {
			retries = 0
			bo.Reset()
		}
		retries++
		if m.logger != nil {
			m.logger.WithError(err).WithFields(logrus.Fields{
				"url":     m.streamURL(),
				"attempt": retries,
			}).Warn("stream connection lost")
		}

		if retries > m.cfg.MaxRetries {
			m.setState(gen, StateDegraded)
			if m.logger != nil {
				m.logger.WithFields(logrus.Fields{
					"retries":       retries - 1,
					"poll_interval": m.cfg.PollInterval,
				}).Error("stream retries exhausted, falling back to polling")
			}
			m.pollLoop(ctx)
			m.setState(gen, StateDisconnected)
			return
		}

		wait := bo.NextBackOff()
		select {
		case <-ctx.Done():
			m.setState(gen, StateDisconnected)
			return
		case <-time.After(wait):
		}
	}
}

func (m *Manager) streamURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.URL
}

// consume holds one stream connection open and dispatches its events. It
// returns once the connection ends, reporting whether the stream was ever
// established.
func (m *Manager) consume(ctx context.Context, gen uint64) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.streamURL(), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")
	for k, v := range m.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := m.cfg.HTTPClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("stream endpoint returned %d", resp.StatusCode)
	}

	connected := false
	var data strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data:") {
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			continue
		}
		if line != "" || data.Len() == 0 {
			// Comments and unknown fields are skipped per the SSE format.
			continue
		}

		payload := data.String()
		data.Reset()
		ev, err := event.Parse([]byte(payload))
		if err != nil {
			if m.logger != nil {
				m.logger.WithError(err).Debug("dropping malformed stream frame")
			}
			continue
		}
		if ev.Type == event.TypeConnected {
			connected = true
			m.setState(gen, StateConnected)
		}
		m.dispatch(ev)
	}
	return connected, scanner.Err()
}

func (m *Manager) dispatch(ev event.Event) {
	m.mu.Lock()
	h := m.handlers[ev.Type]
	m.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

// pollLoop is the degraded path: invoke the poller on a fixed interval until
// the manager is closed or restarted.
func (m *Manager) pollLoop(ctx context.Context) {
	if m.poller == nil {
		<-ctx.Done()
		return
	}

	// Poll immediately so the caller is not stale for a full interval after
	// the downgrade.
	if err := m.poller(ctx); err != nil && m.logger != nil && ctx.Err() == nil {
		m.logger.WithError(err).Warn("fallback poll failed")
	}

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.poller(ctx); err != nil && ctx.Err() == nil {
				if m.logger != nil {
					m.logger.WithError(err).Warn("fallback poll failed")
				}
			}
		}
	}
}
