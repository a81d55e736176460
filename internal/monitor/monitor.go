// Package monitor keeps the session's connected flag in step with the service's health
// endpoint.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/comigor/chat-go/internal/api"
	"github.com/comigor/chat-go/internal/logger"
)

const (
	DefaultInterval = 30 * time.Second
	DefaultTimeout  = 5 * time.Second
)

// HealthChecker is the boundary call the monitor polls.
type HealthChecker interface {
	CheckHealth(ctx context.Context) (*api.Health, error)
}

// ConnectedSetter receives every check result.
type ConnectedSetter interface {
	SetConnected(connected bool)
}

// Monitor polls health on a fixed interval. Checks run one at a time on a single
// goroutine; ticks that come due while a check is outstanding are skipped.
type Monitor struct {
	checker  HealthChecker
	target   ConnectedSetter
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a Monitor. Non-positive durations fall back to the defaults.
func New(checker HealthChecker, target ConnectedSetter, interval, timeout time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Monitor{
		checker:  checker,
		target:   target,
		interval: interval,
		timeout:  timeout,
	}
}

// Check runs one liveness check and records the result.
func (m *Monitor) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	return m.Record(m.checker.CheckHealth(ctx))
}

// Record writes the outcome of a health call made elsewhere, so the monitor stays the
// only writer of the connected flag.
func (m *Monitor) Record(h *api.Health, err error) bool {
	if err != nil {
		logger.L.Warn("health check failed", "error", err)
		m.target.SetConnected(false)
		return false
	}
	if h != nil {
		logger.L.Debug("health check ok", "status", h.Status)
	}
	m.target.SetConnected(true)
	return true
}

// Start checks immediately and then once per interval until Stop is called or ctx ends.
// It does not block; calling it on a running monitor is a no-op. Once ctx has ended the
// monitor can be started again.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	go m.run(ctx, stopCh, doneCh)
}

// Stop cancels future checks. A check already in flight is allowed to finish, and Stop
// returns once it has.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	doneCh := m.doneCh
	m.mu.Unlock()

	<-doneCh
}

func (m *Monitor) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	// The check is detached from ctx so teardown never aborts an outstanding check.
	checkCtx := context.WithoutCancel(ctx)
	m.Check(checkCtx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			if m.doneCh == doneCh {
				m.running = false
			}
			m.mu.Unlock()
			return
		case <-stopCh:
			return
		case <-ticker.C:
			m.Check(checkCtx)
		}
	}
}
