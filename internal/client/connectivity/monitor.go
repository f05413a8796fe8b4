// Package connectivity tracks whether the server is reachable and tells
// interested parties when it comes back.
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/logging"
)

// Pinger reports server reachability. A nil error means online.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor holds the process-wide online flag. An offline to online
// transition fires the OnReconnect callbacks once, after the debounce
// window; further transitions inside the window restart it.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	debounce time.Duration
	logger   logging.Logger

	online atomic.Bool

	mu        sync.Mutex
	ctx       context.Context
	callbacks []func(context.Context)
	timer     *time.Timer
}

func NewMonitor(p Pinger, interval, debounce time.Duration, logger logging.Logger) *Monitor {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Monitor{
		pinger:   p,
		interval: interval,
		debounce: debounce,
		logger:   logger.With("module", "connectivity"),
		ctx:      context.Background(),
	}
}

// Start seeds the flag with one probe and then probes every interval
// until ctx is done. The seed probe never fires callbacks.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()

	m.online.Store(m.ping(ctx) == nil)
	m.logger.Info(ctx, "connectivity seeded", "online", m.online.Load())

	if m.interval <= 0 {
		return
	}
	go m.watch(ctx)
}

func (m *Monitor) watch(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Probe(ctx)
		case <-ctx.Done():
			m.mu.Lock()
			if m.timer != nil {
				m.timer.Stop()
			}
			m.mu.Unlock()
			return
		}
	}
}

func (m *Monitor) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return m.pinger.Ping(ctx)
}

// Probe pings once and applies the result.
func (m *Monitor) Probe(ctx context.Context) bool {
	err := m.ping(ctx)
	if err != nil {
		m.logger.Debug(ctx, "probe failed", "error", err)
	}
	m.SetOnline(err == nil)
	return err == nil
}

func (m *Monitor) IsOnline() bool {
	return m.online.Load()
}

// OnReconnect registers fn to run after each debounced reconnect.
func (m *Monitor) OnReconnect(fn func(ctx context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// SetOnline records a reachability signal.
func (m *Monitor) SetOnline(online bool) {
	prev := m.online.Swap(online)
	if prev == online {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}

	if !online {
		m.logger.Info(m.ctx, "went offline")
		return
	}

	m.logger.Info(m.ctx, "back online")
	m.timer = time.AfterFunc(m.debounce, m.fire)
}

func (m *Monitor) fire() {
	m.mu.Lock()
	m.timer = nil
	ctx := m.ctx
	callbacks := append([]func(context.Context){}, m.callbacks...)
	m.mu.Unlock()

	if !m.IsOnline() || ctx.Err() != nil {
		return
	}
	for _, fn := range callbacks {
		fn(ctx)
	}
}
