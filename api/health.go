/*
health.go - Background store health monitor

PURPOSE:
  Periodically pings the leave store and caches the result, so /health
  answers without touching the database on every request.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Checks once immediately on Start
  - Each check is bounded by Timeout
  - Logs only on state changes (up -> down, down -> up)

USAGE:
  monitor := NewHealthMonitor(store, logger)
  monitor.Start()
  // ... later
  monitor.Stop()

SEE ALSO:
  - handlers.go: HealthCheck endpoint
*/
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pinger is anything whose reachability can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus is the outcome of the latest check.
type HealthStatus struct {
	CheckedAt time.Time
	Err       error
}

var errNotChecked = errors.New("store not checked yet")

// HealthMonitor pings a Pinger on an interval.
type HealthMonitor struct {
	Target        Pinger
	CheckInterval time.Duration
	Timeout       time.Duration

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	statusMu sync.RWMutex
	status   HealthStatus
}

// NewHealthMonitor creates a monitor with a 30s interval and 2s timeout.
func NewHealthMonitor(target Pinger, logger *zap.Logger) *HealthMonitor {
	if logger == nil {
		logger = zap.L()
	}
	return &HealthMonitor{
		Target:        target,
		CheckInterval: 30 * time.Second,
		Timeout:       2 * time.Second,
		logger:        logger.Named("api.health"),
		status:        HealthStatus{Err: errNotChecked},
	}
}

// Start begins the monitor.
func (hm *HealthMonitor) Start() {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	if hm.ticker != nil {
		return
	}
	hm.ticker = time.NewTicker(hm.CheckInterval)
	hm.stop = make(chan struct{})
	hm.wg.Add(1)

	go hm.run()

	hm.logger.Info("health monitor started", zap.Duration("interval", hm.CheckInterval))
}

// Stop stops the monitor and waits for the running check to finish.
func (hm *HealthMonitor) Stop() {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	if hm.ticker != nil {
		hm.ticker.Stop()
		close(hm.stop)
		hm.wg.Wait()
		hm.ticker = nil
		hm.logger.Info("health monitor stopped")
	}
}

func (hm *HealthMonitor) run() {
	defer hm.wg.Done()

	hm.RunNow()

	for {
		select {
		case <-hm.ticker.C:
			hm.RunNow()
		case <-hm.stop:
			return
		}
	}
}

// RunNow checks immediately and records the result.
func (hm *HealthMonitor) RunNow() HealthStatus {
	ctx, cancel := context.WithTimeout(context.Background(), hm.Timeout)
	defer cancel()

	next := HealthStatus{CheckedAt: time.Now().UTC(), Err: hm.Target.Ping(ctx)}

	hm.statusMu.Lock()
	prev := hm.status
	hm.status = next
	hm.statusMu.Unlock()

	switch {
	case next.Err != nil && prev.Err == nil:
		hm.logger.Error("store became unreachable", zap.Error(next.Err))
	case next.Err != nil && errors.Is(prev.Err, errNotChecked):
		hm.logger.Error("store unreachable", zap.Error(next.Err))
	case next.Err == nil && prev.Err != nil:
		hm.logger.Info("store reachable")
	}
	return next
}

// Status returns the latest check result.
func (hm *HealthMonitor) Status() HealthStatus {
	hm.statusMu.RLock()
	defer hm.statusMu.RUnlock()
	return hm.status
}
