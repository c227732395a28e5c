package app

import (
	"sync/atomic"
	"time"
)

// Metrics tracks script execution statistics for a session.
type Metrics struct {
	runCount    atomic.Uint64
	runFailures atomic.Uint64
	runTotalNs  atomic.Int64
	runMinNs    atomic.Int64
	runMaxNs    atomic.Int64
	lastRunNs   atomic.Int64

	ops     atomic.Int64
	reloads atomic.Uint64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
	}
	// Initialize min to max int64 so the first run will be smaller
	m.runMinNs.Store(1<<63 - 1)
	return m
}

// RecordRun records one script execution, its duration and the number of
// vector operations it performed.
func (m *Metrics) RecordRun(duration time.Duration, ops int64, err error) {
	ns := duration.Nanoseconds()

	m.runCount.Add(1)
	m.runTotalNs.Add(ns)
	m.lastRunNs.Store(ns)
	m.ops.Add(ops)
	if err != nil {
		m.runFailures.Add(1)
	}

	for {
		old := m.runMinNs.Load()
		if ns >= old || m.runMinNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.runMaxNs.Load()
		if ns <= old || m.runMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordReload records a rerun triggered by a file change.
func (m *Metrics) RecordReload() {
	m.reloads.Add(1)
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	runCount := m.runCount.Load()

	var avgRunNs int64
	if runCount > 0 {
		avgRunNs = m.runTotalNs.Load() / int64(runCount)
	}

	minRunNs := m.runMinNs.Load()
	if minRunNs == 1<<63-1 {
		minRunNs = 0
	}

	return MetricsSnapshot{
		Uptime:       time.Since(m.startTime),
		RunCount:     runCount,
		RunFailures:  m.runFailures.Load(),
		AvgRunTimeNs: avgRunNs,
		MinRunTimeNs: minRunNs,
		MaxRunTimeNs: m.runMaxNs.Load(),
		LastRunNs:    m.lastRunNs.Load(),
		Ops:          m.ops.Load(),
		Reloads:      m.reloads.Load(),
	}
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime       time.Duration
	RunCount     uint64
	RunFailures  uint64
	AvgRunTimeNs int64
	MinRunTimeNs int64
	MaxRunTimeNs int64
	LastRunNs    int64
	Ops          int64
	Reloads      uint64
}

// FailureRate returns the percentage of failed runs.
func (s MetricsSnapshot) FailureRate() float64 {
	if s.RunCount == 0 {
		return 0
	}
	return float64(s.RunFailures) / float64(s.RunCount) * 100
}

// Timer provides a simple way to measure elapsed time.
type Timer struct {
	start time.Time
}

// StartTimer creates a new timer.
func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Stop returns the elapsed time and resets the timer.
func (t *Timer) Stop() time.Duration {
	elapsed := t.Elapsed()
	t.start = time.Now()
	return elapsed
}
