package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Monitor polls an Oracle and notifies subscribers when the state flips
type Monitor struct {
	oracle   Oracle
	interval time.Duration
	logger   *slog.Logger

	mu          sync.Mutex
	known       bool
	online      bool
	nextID      int
	subscribers map[int]func(online bool)
}

// NewMonitor creates a monitor polling oracle every interval
func NewMonitor(oracle Oracle, interval time.Duration, logger *slog.Logger) *Monitor {
	return &Monitor{
		oracle:      oracle,
		interval:    interval,
		logger:      logger.With(slog.String("component", "connectivity_monitor")),
		subscribers: make(map[int]func(bool)),
	}
}

// Subscribe registers fn for state changes and returns a function removing it
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// Online returns the last observed state
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Check polls the oracle once and notifies subscribers on a transition.
// The first observation only records the state.
func (m *Monitor) Check(ctx context.Context) bool {
	online := m.oracle.IsOnline(ctx)

	m.mu.Lock()
	changed := m.known && online != m.online
	m.known = true
	m.online = online
	var notify []func(bool)
	if changed {
		for _, fn := range m.subscribers {
			notify = append(notify, fn)
		}
	}
	m.mu.Unlock()

	if changed {
		m.logger.Info("connectivity changed", slog.Bool("online", online))
		for _, fn := range notify {
			fn(online)
		}
	}
	return online
}

// Run polls until ctx is cancelled
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
