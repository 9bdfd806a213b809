package query

import (
	"sync"
	"sync/atomic"
	"time"

	"queryd/internal/domain"
)

// Compile-time checks: both monitors implement the domain interface.
var _ domain.QueryMonitor = (*ControlMonitor)(nil)
var _ domain.QueryMonitor = (*PingMonitor)(nil)

// ControlMonitor is the interactive controller handed to clients of a
// background run. RequestCancel flips the cancel flag the runner polls;
// the terminal callbacks record the outcome so pollers can derive a
// job status after the run ends.
type ControlMonitor struct {
	cancelRequested atomic.Bool

	mu      sync.Mutex
	outcome domain.JobStatus // zero until a terminal callback fires
}

// NewControlMonitor creates a ControlMonitor.
func NewControlMonitor() *ControlMonitor {
	return &ControlMonitor{}
}

// RequestCancel asks the runner to abort the query.
func (m *ControlMonitor) RequestCancel() {
	m.cancelRequested.Store(true)
}

// ShouldCancelQuery reports whether a cancel was requested.
func (m *ControlMonitor) ShouldCancelQuery() bool {
	return m.cancelRequested.Load()
}

// QueryCancelled records that the cancel request was honored.
func (m *ControlMonitor) QueryCancelled() {
	m.setOutcome(domain.JobStatusCanceled)
}

// QueryCancelledWithError records that the run failed.
func (m *ControlMonitor) QueryCancelledWithError() {
	m.setOutcome(domain.JobStatusFailed)
}

// QueryCompleted records that results were published.
func (m *ControlMonitor) QueryCompleted() {
	m.setOutcome(domain.JobStatusCompleted)
}

func (m *ControlMonitor) setOutcome(s domain.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcome = s
}

// Status derives the client-visible job status: RUNNING until a terminal
// callback has fired, then the recorded outcome.
func (m *ControlMonitor) Status() domain.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcome == "" {
		return domain.JobStatusRunning
	}
	return m.outcome
}

// PingMonitor extends ControlMonitor with a liveness deadline: if no Ping
// arrives within the timeout, ShouldCancelQuery turns true and the run is
// abandoned. Poll handlers ping it on every status request, so a vanished
// client stops burning engine time.
type PingMonitor struct {
	ControlMonitor
	timeout  time.Duration
	lastPing atomic.Int64 // unix nanoseconds
}

// NewPingMonitor creates a PingMonitor with the given liveness timeout.
func NewPingMonitor(timeout time.Duration) *PingMonitor {
	m := &PingMonitor{timeout: timeout}
	m.Ping()
	return m
}

// Ping marks the client as alive.
func (m *PingMonitor) Ping() {
	m.lastPing.Store(time.Now().UnixNano())
}

// ShouldCancelQuery reports a pending cancel request or an expired
// liveness deadline.
func (m *PingMonitor) ShouldCancelQuery() bool {
	if m.ControlMonitor.ShouldCancelQuery() {
		return true
	}
	last := time.Unix(0, m.lastPing.Load())
	return time.Since(last) > m.timeout
}

// RequestCancel flips the cancel flag on monitors that support it and
// reports whether the request was accepted.
func RequestCancel(mon domain.QueryMonitor) bool {
	switch m := mon.(type) {
	case *ControlMonitor:
		m.RequestCancel()
		return true
	case *PingMonitor:
		m.RequestCancel()
		return true
	default:
		return false
	}
}

// StatusOf derives a job status from any monitor. Monitors that do not
// record outcomes report RUNNING while registered.
func StatusOf(mon domain.QueryMonitor) domain.JobStatus {
	switch m := mon.(type) {
	case *ControlMonitor:
		return m.Status()
	case *PingMonitor:
		return m.Status()
	default:
		return domain.JobStatusRunning
	}
}
