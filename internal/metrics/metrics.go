// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Login outcomes.
const (
	LoginSuccess = "success"
	LoginFailed  = "failed"
)

// Session rejection reasons.
const (
	RejectMissing = "missing"
	RejectInvalid = "invalid"
	RejectExpired = "expired"
	RejectRevoked = "revoked"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Session lifecycle metrics
	IncUserRegistered()
	IncLogin(status string) // status: LoginSuccess or LoginFailed
	IncLogout()
	IncSessionRejected(reason string) // reason: one of the Reject* constants
	IncAuthRateLimited()

	// Task management metrics
	IncTaskCreated()
	IncTaskUpdated()
	IncTaskDeleted()

	// HTTP metrics
	ObserveRequestDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
